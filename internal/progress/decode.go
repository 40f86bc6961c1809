package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var errNotObject = errors.New("progress state is not a JSON object")

// Decode turns a persisted blob into a fully populated State. It never
// fails: absent or unparseable input yields Empty(), and each top-level
// field that does not match its schema falls back to its default while the
// valid fields are kept. The returned error only describes what was
// discarded and is meant for logging.
func Decode(raw []byte) (State, error) {
	st := Empty()
	if len(bytes.TrimSpace(raw)) == 0 {
		return st, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return st, fmt.Errorf("parse progress state: %w", err)
	}
	if doc == nil {
		return st, nil
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return st, errNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return st, fmt.Errorf("parse progress state: %w", err)
	}

	var errs []error
	// field decodes one top-level value into dst, reporting whether it was
	// present and valid. dst is a temporary so a failed field keeps its
	// default.
	field := func(name string, dst any) bool {
		v, present := obj[name]
		if !present {
			return false
		}
		if err := validate(name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return false
		}
		if err := json.Unmarshal(fields[name], dst); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return false
		}
		return true
	}

	var attempts Ledger
	if field("attempts", &attempts) && attempts != nil {
		st.Attempts = normalizeLedger(attempts, obj["attempts"])
	}
	var category Rollup
	if field("category", &category) {
		st.Category = category
	}
	var difficulty Rollup
	if field("difficulty", &difficulty) {
		st.Difficulty = difficulty
	}
	var totals Totals
	if field("totals", &totals) {
		st.Totals = totals
	}
	var history []HistoryEntry
	if field("history", &history) && history != nil {
		st.History = normalizeHistory(history)
	}
	var lastUpdated *time.Time
	if field("lastUpdated", &lastUpdated) {
		st.LastUpdated = lastUpdated
	}

	return st, errors.Join(errs...)
}

// normalizeLedger fills defaults the same way Apply does, keyed by the map
// key. doc is the validated JSON of the ledger, used to tell an absent
// timeTaken from an explicit zero.
func normalizeLedger(in Ledger, doc any) Ledger {
	records, _ := doc.(map[string]any)
	out := make(Ledger, len(in))
	for id, rec := range in {
		if id == "" {
			continue
		}
		rec.QuestionID = id
		rec.Category = orDefault(rec.Category, DefaultCategory)
		rec.Difficulty = orDefault(rec.Difficulty, DefaultDifficulty)
		fields, _ := records[id].(map[string]any)
		if v, ok := fields["timeTaken"]; !ok || v == nil {
			rec.TimeTaken = DefaultTimeTaken
		} else {
			rec.TimeTaken = sanitizeMinutes(rec.TimeTaken)
		}
		out[id] = rec
	}
	return out
}

// normalizeHistory drops duplicate questions (keeping the newest, which
// comes first) and enforces HistoryLimit.
func normalizeHistory(in []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, min(len(in), HistoryLimit))
	seen := make(map[string]bool, len(in))
	for _, h := range in {
		if len(out) == HistoryLimit {
			break
		}
		if seen[h.QuestionID] {
			continue
		}
		seen[h.QuestionID] = true
		h.Category = orDefault(h.Category, DefaultCategory)
		h.Difficulty = orDefault(h.Difficulty, DefaultDifficulty)
		out = append(out, h)
	}
	return out
}
