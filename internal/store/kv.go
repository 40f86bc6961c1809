package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// kvRepo implements KVRepo on the kv_revisions table. Each Save appends a
// revision; Load reads the newest one.
type kvRepo struct {
	drv  *entsql.Driver
	seq  *sequenceCounter
	keep int
}

func (r *kvRepo) Load(ctx context.Context, key string) ([]byte, error) {
	t := entsql.Dialect(dialect.SQLite).Table(KVRevisionsTable.Name)
	query, args := entsql.Dialect(dialect.SQLite).
		Select(t.C("value")).
		From(t).
		Where(entsql.EQ(t.C("name"), key)).
		OrderBy(entsql.Desc(t.C("id"))).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("load %q: %w", key, err)
		}
		return nil, nil
	}
	var value []byte
	if err := rows.Scan(&value); err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (r *kvRepo) Save(ctx context.Context, key string, value []byte) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(KVRevisionsTable.Name).
		Columns("sequence", "timestamp", "revision", "name", "value").
		Values(seqNum, formatTime(time.Now()), uuid.NewString(), key, value).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}

	if r.keep > 0 {
		return r.Prune(ctx, key, r.keep)
	}
	return nil
}

func (r *kvRepo) Revisions(ctx context.Context, key string, opts QueryOpts) ([]Revision, error) {
	t := entsql.Dialect(dialect.SQLite).Table(KVRevisionsTable.Name)
	sel := entsql.Dialect(dialect.SQLite).
		Select(t.C("revision"), t.C("name"), t.C("sequence"), t.C("timestamp"), "LENGTH("+t.C("value")+")").
		From(t).
		Where(entsql.EQ(t.C("name"), key)).
		OrderBy(entsql.Desc(t.C("id")))
	opts.apply(sel, t)

	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.Key, &rev.Sequence, &rev.SavedAt, &rev.Size); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (r *kvRepo) Prune(ctx context.Context, key string, keep int) error {
	if keep < 1 {
		return fmt.Errorf("prune %q: keep must be at least 1, got %d", key, keep)
	}

	b := entsql.Dialect(dialect.SQLite)
	recent := b.Select("id").
		From(b.Table(KVRevisionsTable.Name)).
		Where(entsql.EQ("name", key)).
		OrderBy(entsql.Desc("id")).
		Limit(keep)
	query, args := b.Delete(KVRevisionsTable.Name).
		Where(entsql.And(entsql.EQ("name", key), entsql.NotIn("id", recent))).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("prune %q: %w", key, err)
	}
	return nil
}

// apply adds the sequence and time filters and the limit in opts to sel.
func (o QueryOpts) apply(sel *entsql.Selector, t *entsql.SelectTable) {
	if o.After > 0 {
		sel.Where(entsql.GT(t.C("sequence"), o.After))
	}
	if o.Before > 0 {
		sel.Where(entsql.LT(t.C("sequence"), o.Before))
	}
	if !o.From.IsZero() {
		sel.Where(entsql.GTE(t.C("timestamp"), formatTime(o.From)))
	}
	if !o.To.IsZero() {
		sel.Where(entsql.LTE(t.C("timestamp"), formatTime(o.To)))
	}
	if o.Limit > 0 {
		sel.Limit(o.Limit)
	}
}
