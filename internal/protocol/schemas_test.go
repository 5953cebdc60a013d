package protocol_test

import (
	"encoding/json"
	"testing"

	"personalpage/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	valid := func(schema, doc string) {
		t.Helper()
		if err := protocol.Validate(schema, []byte(doc)); err != nil {
			t.Fatalf("%s: expected valid, got %v", schema, err)
		}
	}
	invalid := func(schema, doc string) {
		t.Helper()
		if err := protocol.Validate(schema, []byte(doc)); err == nil {
			t.Fatalf("%s: expected %s to be rejected", schema, doc)
		}
	}

	valid(protocol.SchemaPosts, `[]`)
	valid(protocol.SchemaPosts, `[{"id":"lq2x9k1a","title":"T","content":"C","createdAt":1700000000000}]`)
	invalid(protocol.SchemaPosts, `{"id":"x"}`)
	invalid(protocol.SchemaPosts, `[{"id":"","title":"T","content":"C","createdAt":1}]`)
	invalid(protocol.SchemaPosts, `[{"id":"x","title":"T","content":"C","createdAt":1.5}]`)
	invalid(protocol.SchemaPosts, `[{"id":"x","title":"T"}]`)
	invalid(protocol.SchemaPosts, `not json`)

	valid(protocol.SchemaPost, `{"id":"a","title":"T","content":"C","createdAt":1}`)
	invalid(protocol.SchemaPost, `{"id":"c","title":"T","content":"C"}`)

	valid(protocol.SchemaProfile, `{}`)
	valid(protocol.SchemaProfile, `{"name":"Фамилия Имя Отчество","avatar":"https://i.pravatar.cc/96?img=12","school":"НИУ ВШЭ МИЭМ","age":"52 года","hobbies":"Что-то"}`)
	invalid(protocol.SchemaProfile, `null`)
	invalid(protocol.SchemaProfile, `{"age":52}`)

	b, err := json.Marshal(protocol.NewChanged(protocol.ScopePosts, 1700000000000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	valid(protocol.SchemaChanged, string(b))
	invalid(protocol.SchemaChanged, `{"type":"CHANGED","protocol_version":"1","scope":"avatars","at":1}`)
}

func TestValidate_UnknownSchema(t *testing.T) {
	if err := protocol.Validate("nope.schema.json", []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown schema")
	}
}
