package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

type ClientAddress struct{ ent.Schema }

func (ClientAddress) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "client_addresses"},
	}
}

func (ClientAddress) Fields() []ent.Field {
	return []ent.Field{
		field.String("client_id").NotEmpty().Unique().Immutable(),
		field.String("street").Default(""),
		field.String("city").Default(""),
		field.String("region").Default(""),
		field.String("postal").Default(""),
		field.String("country").Default(""),
		field.String("full_address").Default(""),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (ClientAddress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("client_id").Unique(),
	}
}
