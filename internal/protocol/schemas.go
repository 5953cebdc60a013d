package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	SchemaPost    = "post.schema.json"
	SchemaPosts   = "posts.schema.json"
	SchemaProfile = "profile.schema.json"
	SchemaChanged = "changed.schema.json"

	schemaBaseURL = "https://schemas.personalpage.local/"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	c := jsonschema.NewCompiler()
	names := []string{SchemaPost, SchemaPosts, SchemaProfile, SchemaChanged}
	for _, name := range names {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("%s: %w", name, err)
			return
		}
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		out[name] = s
	}
	schemas = out
}

// Validate checks a raw JSON document against one of the embedded schemas.
func Validate(schema string, raw []byte) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s: %w", schema, err)
	}
	return s.Validate(v)
}

func ValidatePost(raw []byte) error    { return Validate(SchemaPost, raw) }
func ValidatePosts(raw []byte) error   { return Validate(SchemaPosts, raw) }
func ValidateProfile(raw []byte) error { return Validate(SchemaProfile, raw) }
