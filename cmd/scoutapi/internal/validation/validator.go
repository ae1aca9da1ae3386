// Package validation checks request payloads against embedded JSON schemas
// before they reach the services.
package validation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
)

// BulkObservations names the bulk upsert payload schema.
const BulkObservations = "bulk_observations.json"

//go:embed schemas/*.json
var schemaFS embed.FS

const maxMessageLen = 200

// SchemaValidator validates payloads against the embedded schemas, keeping
// compiled schemas in an LRU cache.
type SchemaValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
}

// NewSchemaValidator creates a validator caching up to cacheSize compiled schemas.
func NewSchemaValidator(cacheSize int) (*SchemaValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &SchemaValidator{schemaCache: cache}, nil
}

// Validate checks the raw JSON document against the named schema. Malformed
// JSON and schema violations are BadRequest errors.
func (v *SchemaValidator) Validate(name string, raw []byte) error {
	schema, err := v.schema(name)
	if err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return apperr.BadRequest("Malformed JSON body: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return apperr.BadRequest("%s", formatValidationError(err))
	}
	return nil
}

func (v *SchemaValidator) schema(name string) (*jsonschema.Schema, error) {
	if cached, ok := v.schemaCache.Get(name); ok {
		return cached, nil
	}
	schema, err := compileSchema(name)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(name, schema)
	return schema, nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	content, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	if err := compiler.AddResource(name, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// formatValidationError renders the deepest failing location as a JSON path,
// e.g. "validation failed at '$.observations.0.count': minimum: got -1, want 0".
func formatValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := "$"
	parts := make([]string, 0, len(ve.InstanceLocation))
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	msg := ve.Error()
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "... (truncated)"
	}
	return fmt.Sprintf("validation failed at '%s': %s", path, msg)
}
