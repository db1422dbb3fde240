package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"
)

type AddressMismatch struct{ ent.Schema }

func (AddressMismatch) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "address_mismatches"},
	}
}

func (AddressMismatch) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("client_id").NotEmpty(),
		field.String("document_id").NotEmpty(),
		field.Enum("mismatch_type").Values("full", "partial", "not_validated"),
		field.String("extracted_street").Default(""),
		field.String("extracted_city").Default(""),
		field.String("extracted_region").Default(""),
		field.String("extracted_postal").Default(""),
		field.String("extracted_country").Default(""),
		field.String("stored_street").Default(""),
		field.String("stored_city").Default(""),
		field.String("stored_region").Default(""),
		field.String("stored_postal").Default(""),
		field.String("stored_country").Default(""),
		field.JSON("components", []string{}).Optional(),
		field.Bool("resolved").Default(false),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (AddressMismatch) Indexes() []ent.Index {
	return []ent.Index{
		// one live record per client/document pair
		index.Fields("client_id", "document_id").Unique(),
	}
}
