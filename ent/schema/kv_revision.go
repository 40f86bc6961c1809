package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// KVRevision is one saved value of a key. The newest revision of a key
// is its current value.
type KVRevision struct {
	ent.Schema
}

func (KVRevision) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (KVRevision) Fields() []ent.Field {
	return []ent.Field{
		field.String("revision").
			Unique().
			Immutable().
			NotEmpty().
			Comment("UUID of this revision"),
		field.String("name").
			NotEmpty().
			Comment("Key the value was saved under"),
		field.Bytes("value").
			Comment("Stored JSON document"),
	}
}

func (KVRevision) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("name"),
	}
}
