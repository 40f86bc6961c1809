package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// StorageKey is the key the whole progress state is persisted under.
	StorageKey = "placeprep.quizProgress"

	// HistoryLimit is the maximum number of entries kept in State.History.
	HistoryLimit = 25

	// QuickPracticeQuizID marks ad hoc practice attempts that are not scoped
	// to a named quiz.
	QuickPracticeQuizID = "quick-practice"

	DefaultCategory   = "general"
	DefaultDifficulty = "unknown"
	DefaultSource     = "quiz"
	DefaultTimeTaken  = 1.0
)

// AttemptRecord is the live answer for one question. The ledger holds at
// most one record per QuestionID.
type AttemptRecord struct {
	QuestionID string    `json:"questionId"`
	Correct    bool      `json:"correct"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	TimeTaken  float64   `json:"timeTaken"` // minutes
	Prompt     string    `json:"prompt,omitempty"`
	Source     string    `json:"source,omitempty"`
	QuizID     string    `json:"quizId,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Ledger maps question IDs to their live attempt record.
type Ledger map[string]AttemptRecord

// Bucket aggregates attempts for one category or difficulty label.
// 0 <= Correct <= Attempts always holds for buckets stored in a Rollup.
type Bucket struct {
	Attempts int `json:"attempts"`
	Correct  int `json:"correct"`
}

// Totals aggregates every live attempt record.
type Totals struct {
	Attempts         int     `json:"attempts"`
	Correct          int     `json:"correct"`
	TimeSpentMinutes float64 `json:"timeSpentMinutes"`
}

// HistoryEntry is one row of the bounded recent-attempt log.
type HistoryEntry struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	Correct    bool      `json:"correct"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	TimeTaken  float64   `json:"timeTaken"`
	Timestamp  time.Time `json:"timestamp"`
	Prompt     string    `json:"prompt,omitempty"`
	Source     string    `json:"source,omitempty"`
	QuizID     string    `json:"quizId,omitempty"`
}

// State is the complete persisted progress of one learner.
type State struct {
	Attempts    Ledger         `json:"attempts"`
	Category    Rollup         `json:"category"`
	Difficulty  Rollup         `json:"difficulty"`
	Totals      Totals         `json:"totals"`
	History     []HistoryEntry `json:"history"`
	LastUpdated *time.Time     `json:"lastUpdated"`
}

// Rollup is an insertion-ordered mapping from label to Bucket. Buckets that
// drop to zero attempts are removed. The zero value is an empty rollup.
type Rollup struct {
	keys    []string
	buckets map[string]Bucket
}

// Len returns the number of live buckets.
func (r Rollup) Len() int {
	return len(r.keys)
}

// Keys returns the bucket labels in insertion order.
func (r Rollup) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the bucket for key.
func (r Rollup) Get(key string) (Bucket, bool) {
	b, ok := r.buckets[key]
	return b, ok
}

// add counts one attempt against key, creating the bucket if needed.
func (r *Rollup) add(key string, correct bool) {
	b := r.buckets[key]
	b.Attempts++
	if correct {
		b.Correct++
	}
	r.set(key, b)
}

// remove reverses one attempt previously counted against key.
func (r *Rollup) remove(key string, correct bool) {
	b, ok := r.buckets[key]
	if !ok {
		return
	}
	b.Attempts--
	if correct {
		b.Correct--
	}
	r.set(key, b)
}

// set stores b under key after clamping, deleting the bucket when it is empty.
func (r *Rollup) set(key string, b Bucket) {
	if b.Attempts <= 0 {
		r.delete(key)
		return
	}
	b.Correct = clamp(b.Correct, 0, b.Attempts)

	if r.buckets == nil {
		r.buckets = make(map[string]Bucket)
	}
	if _, exists := r.buckets[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.buckets[key] = b
}

func (r *Rollup) delete(key string) {
	if _, ok := r.buckets[key]; !ok {
		return
	}
	delete(r.buckets, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

func (r Rollup) clone() Rollup {
	out := Rollup{
		keys:    make([]string, len(r.keys)),
		buckets: make(map[string]Bucket, len(r.buckets)),
	}
	copy(out.keys, r.keys)
	for k, b := range r.buckets {
		out.buckets[k] = b
	}
	return out
}

// MarshalJSON encodes the rollup as a JSON object in insertion order.
func (r Rollup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.buckets[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
// Buckets are clamped on the way in and empty ones are dropped.
func (r *Rollup) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Rollup{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("rollup: expected object, got %v", tok)
	}

	var out Rollup
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("rollup: unexpected key %v", tok)
		}
		var b Bucket
		if err := dec.Decode(&b); err != nil {
			return fmt.Errorf("rollup %q: %w", key, err)
		}
		out.set(key, b)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
