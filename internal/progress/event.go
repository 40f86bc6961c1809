package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidEvent is wrapped by ParseEvents for every rejected event.
var ErrInvalidEvent = errors.New("invalid attempt event")

// Event is one scored answer submitted by the learner. Zero-valued optional
// fields are replaced by their defaults when the event is applied.
type Event struct {
	QuestionID string   `json:"questionId"`
	Correct    bool     `json:"correct"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	TimeTaken  *float64 `json:"timeTaken,omitempty"` // minutes; nil means DefaultTimeTaken
	Prompt     string   `json:"prompt,omitempty"`
	Source     string   `json:"source,omitempty"`
	QuizID     string   `json:"quizId,omitempty"`
}

// Minutes is a helper for building events with an explicit time.
func Minutes(m float64) *float64 {
	return &m
}

// record builds the ledger entry for e with defaults applied.
func (e Event) record(now time.Time) AttemptRecord {
	rec := AttemptRecord{
		QuestionID: e.QuestionID,
		Correct:    e.Correct,
		Category:   orDefault(e.Category, DefaultCategory),
		Difficulty: orDefault(e.Difficulty, DefaultDifficulty),
		TimeTaken:  DefaultTimeTaken,
		Prompt:     e.Prompt,
		Source:     orDefault(e.Source, DefaultSource),
		QuizID:     e.QuizID,
		UpdatedAt:  now,
	}
	if e.TimeTaken != nil {
		rec.TimeTaken = sanitizeMinutes(*e.TimeTaken)
	}
	return rec
}

// sanitizeMinutes clamps negative durations to 0 and replaces NaN and
// infinities, which cannot be encoded as JSON, with DefaultTimeTaken.
func sanitizeMinutes(m float64) float64 {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return DefaultTimeTaken
	}
	return max(m, 0)
}

// ParseEvents reads a single event object or an array of events. Each event
// is validated independently; valid events are returned even when others are
// rejected, and the rejections are reported in the joined error.
func ParseEvents(r io.Reader) ([]Event, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var items []json.RawMessage
	var docs []any
	switch v := doc.(type) {
	case []any:
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		docs = v
	default:
		items = []json.RawMessage{raw}
		docs = []any{v}
	}

	var (
		events []Event
		errs   []error
	)
	for i, item := range items {
		if err := validate("event", docs[i]); err != nil {
			errs = append(errs, fmt.Errorf("%w #%d: %v", ErrInvalidEvent, i, err))
			continue
		}
		var ev Event
		if err := json.Unmarshal(item, &ev); err != nil {
			errs = append(errs, fmt.Errorf("%w #%d: %v", ErrInvalidEvent, i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
