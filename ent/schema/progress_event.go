package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProgressEvent records one mutation of the progress state: an attempt
// or a reset.
type ProgressEvent struct {
	ent.Schema
}

func (ProgressEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (ProgressEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("kind").
			NotEmpty().
			Comment("attempt or reset"),
		field.String("question_id").
			Default("").
			Comment("Question answered; empty for resets"),
		field.String("quiz_id").
			Default(""),
		field.String("category").
			Default(""),
		field.String("difficulty").
			Default(""),
		field.Bool("correct").
			Default(false),
		field.Float("time_taken").
			Default(0).
			Comment("Minutes spent on the question"),
		field.String("source").
			Default(""),
	}
}

func (ProgressEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("kind"),
	}
}
