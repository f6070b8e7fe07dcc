// Package schema validates request payloads against embedded JSON schemas
// and reports every violated field.
package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/studydesk/studydesk-api/internal/model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const rootField = "(root)"

// Validator holds one compiled schema per payload kind.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles the embedded schemas. A schema is addressed by its file name
// without the extension, e.g. "notes" or "register".
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("cannot read schemas: %w", err)
	}

	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("cannot read schema %s: %w", e.Name(), err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = compiled
	}

	return v, nil
}

// HasSchema returns true if id is known.
func (v *Validator) HasSchema(id string) bool {
	_, ok := v.schemas[id]
	return ok
}

// Validate checks a JSON document. It returns the violated fields, or nil
// when the document is valid. The error is reserved for unknown schemas and
// undecodable input.
func (v *Validator) Validate(id string, doc []byte) ([]model.FieldError, error) {
	return v.validate(id, gojsonschema.NewBytesLoader(doc))
}

// ValidateStruct checks a Go value through its JSON encoding.
func (v *Validator) ValidateStruct(id string, doc any) ([]model.FieldError, error) {
	return v.validate(id, gojsonschema.NewGoLoader(doc))
}

func (v *Validator) validate(id string, loader gojsonschema.JSONLoader) ([]model.FieldError, error) {
	s, ok := v.schemas[id]
	if !ok {
		return nil, fmt.Errorf("there is no schema %s", id)
	}

	result, err := s.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("cannot validate with schema %s: %w", id, err)
	}
	if result.Valid() {
		return nil, nil
	}

	fields := make([]model.FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		fields = append(fields, toFieldError(e))
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return fields, nil
}

func toFieldError(e gojsonschema.ResultError) model.FieldError {
	field := e.Field()
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			if field == rootField {
				field = prop
			} else {
				field = field + "." + prop
			}
			return model.FieldError{Field: field, Message: "is required"}
		}
	}
	if e.Type() == "additional_property_not_allowed" {
		if prop, ok := e.Details()["property"].(string); ok {
			if field != rootField {
				prop = field + "." + prop
			}
			return model.FieldError{Field: prop, Message: "is not allowed"}
		}
	}
	if field == rootField {
		field = "body"
	}
	return model.FieldError{Field: field, Message: e.Description()}
}
