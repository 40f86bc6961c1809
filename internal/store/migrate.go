package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// The table definitions below mirror the entities in ent/schema. They are
// handed to ent's migration engine, which diffs them against the live
// database and applies the changes.
var (
	// KVRevisionsColumns holds the columns for the "kv_revisions" table.
	KVRevisionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "revision", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString},
		{Name: "value", Type: field.TypeBytes},
	}
	// KVRevisionsTable holds the schema information for the "kv_revisions" table.
	KVRevisionsTable = &schema.Table{
		Name:       "kv_revisions",
		Columns:    KVRevisionsColumns,
		PrimaryKey: []*schema.Column{KVRevisionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "kvrevision_sequence", Unique: false, Columns: []*schema.Column{KVRevisionsColumns[1]}},
			{Name: "kvrevision_timestamp", Unique: false, Columns: []*schema.Column{KVRevisionsColumns[2]}},
			{Name: "kvrevision_name", Unique: false, Columns: []*schema.Column{KVRevisionsColumns[4]}},
		},
	}
	// ProgressEventsColumns holds the columns for the "progress_events" table.
	ProgressEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "kind", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString, Default: ""},
		{Name: "quiz_id", Type: field.TypeString, Default: ""},
		{Name: "category", Type: field.TypeString, Default: ""},
		{Name: "difficulty", Type: field.TypeString, Default: ""},
		{Name: "correct", Type: field.TypeBool, Default: false},
		{Name: "time_taken", Type: field.TypeFloat64, Default: 0},
		{Name: "source", Type: field.TypeString, Default: ""},
	}
	// ProgressEventsTable holds the schema information for the "progress_events" table.
	ProgressEventsTable = &schema.Table{
		Name:       "progress_events",
		Columns:    ProgressEventsColumns,
		PrimaryKey: []*schema.Column{ProgressEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "progressevent_sequence", Unique: false, Columns: []*schema.Column{ProgressEventsColumns[1]}},
			{Name: "progressevent_timestamp", Unique: false, Columns: []*schema.Column{ProgressEventsColumns[2]}},
			{Name: "progressevent_kind", Unique: false, Columns: []*schema.Column{ProgressEventsColumns[3]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		KVRevisionsTable,
		ProgressEventsTable,
	}
)

// migrate creates or upgrades the tables through ent's Atlas-based
// migration engine.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migration: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
