package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter hands out the global monotonic sequence number shared by
// kv revisions and progress events, so a revision can be placed relative to
// the events that produced it.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// eventRepo implements EventRepo on the progress_events table.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendProgressEvent(ctx context.Context, data ProgressEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	recordedAt := data.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(ProgressEventsTable.Name).
		Columns("sequence", "timestamp", "kind", "question_id", "quiz_id", "category", "difficulty", "correct", "time_taken", "source").
		Values(seqNum, formatTime(recordedAt), string(data.Kind), data.QuestionID, data.QuizID, data.Category,
			data.Difficulty, data.Correct, data.TimeTaken, data.Source).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save %s event: %w", data.Kind, err)
	}
	return nil
}

func (r *eventRepo) QueryEvents(ctx context.Context, opts QueryOpts) ([]ProgressEventRecord, error) {
	t := entsql.Dialect(dialect.SQLite).Table(ProgressEventsTable.Name)
	sel := entsql.Dialect(dialect.SQLite).
		Select(t.Columns("id", "sequence", "kind", "question_id", "quiz_id", "category",
			"difficulty", "correct", "time_taken", "source", "timestamp")...).
		From(t).
		OrderBy(entsql.Desc(t.C("sequence")))
	opts.apply(sel, t)

	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query progress events: %w", err)
	}
	defer rows.Close()

	var records []ProgressEventRecord
	for rows.Next() {
		var (
			rec  ProgressEventRecord
			kind string
		)
		err := rows.Scan(&rec.ID, &rec.Sequence, &kind, &rec.QuestionID, &rec.QuizID,
			&rec.Category, &rec.Difficulty, &rec.Correct, &rec.TimeTaken, &rec.Source, &rec.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan progress event: %w", err)
		}
		rec.Kind = EventKind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}
