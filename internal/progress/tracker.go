package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/placeprep/placeprep/internal/store"
)

// Tracker owns the progress state of one learner for the length of a
// session. It is constructed with Open, handed to whatever needs it, and
// flushed with Close. A Tracker is not safe for concurrent use.
type Tracker struct {
	kv     store.KV
	events store.EventRepo
	key    string
	log    *zap.Logger
	now    func() time.Time
	state  State
	dirty  bool // last persist failed
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithKey overrides the storage key (default StorageKey).
func WithKey(key string) Option {
	return func(t *Tracker) {
		if key != "" {
			t.key = key
		}
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithEventLog mirrors every mutation into an append-only event log.
func WithEventLog(repo store.EventRepo) Option {
	return func(t *Tracker) {
		t.events = repo
	}
}

// Open loads the persisted state from kv and returns a ready Tracker. It
// never fails: a missing or malformed blob starts the session from the
// defaults. kv may be nil for a purely in-memory tracker.
func Open(ctx context.Context, kv store.KV, opts ...Option) *Tracker {
	t := &Tracker{
		kv:    kv,
		key:   StorageKey,
		log:   zap.NewNop(),
		now:   time.Now,
		state: Empty(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.state = t.load(ctx)
	return t
}

func (t *Tracker) load(ctx context.Context) State {
	if t.kv == nil {
		return Empty()
	}
	raw, err := t.kv.Load(ctx, t.key)
	if err != nil {
		t.log.Warn("load progress failed, starting empty", zap.String("key", t.key), zap.Error(err))
		return Empty()
	}
	st, err := Decode(raw)
	if err != nil {
		t.log.Debug("discarded malformed progress fields", zap.String("key", t.key), zap.Error(err))
	}
	return st
}

// Record applies one attempt and persists the new state. It returns false,
// and changes nothing, when ev has no question ID.
func (t *Tracker) Record(ctx context.Context, ev Event) bool {
	next, ok := Apply(t.state, ev, t.now())
	if !ok {
		return false
	}
	t.state = next
	t.persist(ctx)

	rec := next.Attempts[ev.QuestionID]
	t.logEvent(ctx, store.ProgressEventData{
		Kind:       store.EventAttempt,
		QuestionID: rec.QuestionID,
		QuizID:     rec.QuizID,
		Category:   rec.Category,
		Difficulty: rec.Difficulty,
		Correct:    rec.Correct,
		TimeTaken:  rec.TimeTaken,
		Source:     rec.Source,
		RecordedAt: rec.UpdatedAt,
	})
	return true
}

// Reset replaces the whole state with the defaults and persists it.
func (t *Tracker) Reset(ctx context.Context) {
	t.state = Empty()
	t.persist(ctx)
	t.logEvent(ctx, store.ProgressEventData{Kind: store.EventReset, RecordedAt: t.now()})
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	return t.state.Clone()
}

// Snapshot returns a read-only copy of the state together with its derived
// statistics.
func (t *Tracker) Snapshot() Snapshot {
	st := t.state.Clone()
	return Snapshot{
		Totals:          st.Totals,
		CategoryStats:   st.Category,
		DifficultyStats: st.Difficulty,
		History:         st.History,
		LastUpdated:     st.LastUpdated,
		View:            Derive(st),
	}
}

// Close retries the last write if it was lost. Unlike Record and Reset it
// reports the write error so callers can surface it at the end of a session.
func (t *Tracker) Close(ctx context.Context) error {
	if t.kv == nil || !t.dirty {
		return nil
	}
	if err := t.save(ctx); err != nil {
		return fmt.Errorf("flush progress: %w", err)
	}
	return nil
}

// persist saves the state, logging failures. The in-memory state stays
// authoritative when the write is lost.
func (t *Tracker) persist(ctx context.Context) {
	if t.kv == nil {
		return
	}
	if err := t.save(ctx); err != nil {
		t.log.Warn("persist progress failed", zap.String("key", t.key), zap.Error(err))
	}
}

func (t *Tracker) save(ctx context.Context) error {
	b, err := json.Marshal(t.state)
	if err == nil {
		err = t.kv.Save(ctx, t.key, b)
	}
	t.dirty = err != nil
	return err
}

func (t *Tracker) logEvent(ctx context.Context, data store.ProgressEventData) {
	if t.events == nil {
		return
	}
	if err := t.events.AppendProgressEvent(ctx, data); err != nil {
		t.log.Warn("append progress event failed", zap.String("kind", string(data.Kind)), zap.Error(err))
	}
}

// Snapshot is the read surface of a Tracker.
type Snapshot struct {
	Totals          Totals         `json:"totals"`
	CategoryStats   Rollup         `json:"categoryStats"`
	DifficultyStats Rollup         `json:"difficultyStats"`
	History         []HistoryEntry `json:"history"`
	LastUpdated     *time.Time     `json:"lastUpdated"`
	View
}
