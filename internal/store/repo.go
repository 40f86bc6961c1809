package store

import (
	"context"
	"time"
)

// QueryOpts configures event and revision queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// KV is a best-effort key-value store holding JSON documents.
type KV interface {
	// Load returns the current value for key, or nil if none was saved.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the value for key.
	Save(ctx context.Context, key string, value []byte) error
}

// Revision describes one saved version of a key.
type Revision struct {
	ID       string // uuid
	Key      string
	Sequence int64
	SavedAt  time.Time
	Size     int
}

// KVRepo is a KV that keeps past values of each key as revisions.
type KVRepo interface {
	KV

	// Revisions lists revisions of key, newest first.
	Revisions(ctx context.Context, key string, opts QueryOpts) ([]Revision, error)

	// Prune deletes all but the keep most recent revisions of key.
	Prune(ctx context.Context, key string, keep int) error
}

// EventKind identifies a progress event type.
type EventKind string

const (
	EventAttempt EventKind = "attempt"
	EventReset   EventKind = "reset"
)

// ProgressEventData captures one progress mutation for the append-only log.
type ProgressEventData struct {
	Kind       EventKind
	QuestionID string
	QuizID     string
	Category   string
	Difficulty string
	Correct    bool
	TimeTaken  float64
	Source     string
	RecordedAt time.Time
}

// ProgressEventRecord is a stored progress event.
type ProgressEventRecord struct {
	ID       int64
	Sequence int64
	ProgressEventData
}

// EventRepo provides append and query access to the progress event log.
type EventRepo interface {
	// AppendProgressEvent records a progress mutation.
	AppendProgressEvent(ctx context.Context, data ProgressEventData) error

	// QueryEvents returns events matching opts, newest first.
	QueryEvents(ctx context.Context, opts QueryOpts) ([]ProgressEventRecord, error)
}
