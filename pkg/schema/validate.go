// Package schema validates command payloads/responses against a flight's
// declared JSON Schema, and validates a flight's declared measurement
// descriptors against the codec's shape grammar.
//
// Validation is data-driven: one recursive walker interprets whatever
// schema document it is handed, rather than generating a bespoke validator
// per command type.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/aeroline/flightcore/pkg/codec"
	"github.com/aeroline/flightcore/pkg/models"
)

// ValidationError describes one schema violation at a JSON pointer-ish
// path.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseSchema decodes a JSON Schema document. An empty string is a
// declared absence of a schema and returns (nil, nil): anything validates.
func ParseSchema(raw string) (*jsonschema.Schema, error) {
	if raw == "" {
		return nil, nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return &s, nil
}

// Validate walks instance against schemaDoc, collecting every violation
// found rather than stopping at the first.
func Validate(schemaDoc *jsonschema.Schema, instance any) []error {
	if schemaDoc == nil {
		return nil
	}
	var errs []error
	walk("$", schemaDoc, instance, &errs)
	return errs
}

// ValidatePayload parses schemaJSON and validates raw against it, wrapping
// any violation in models.ErrInvalidPayload for the API layer's error
// taxonomy. An empty schemaJSON accepts any well-formed JSON payload.
func ValidatePayload(schemaJSON string, raw []byte) error {
	schemaDoc, err := ParseSchema(schemaJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("%w: invalid json: %v", models.ErrInvalidPayload, err)
	}

	if errs := Validate(schemaDoc, instance); len(errs) > 0 {
		return fmt.Errorf("%w: %v", models.ErrInvalidPayload, errs)
	}
	return nil
}

// ValidateMeasuredParts checks that every measurement descriptor declared
// for a flight's parts uses a decodable codec shape, representing the
// check as a walk over the (name, type) data rather than per-descriptor
// code.
func ValidateMeasuredParts(parts map[string][]models.MeasurementDescriptor) error {
	for partID, descriptors := range parts {
		for i, descriptor := range descriptors {
			if _, err := codec.ParseShape(descriptor.Type); err != nil {
				return fmt.Errorf("%w: part %s series %d shape %q: %v", models.ErrInvalidPayload, partID, i, descriptor.Type, err)
			}
		}
	}
	return nil
}

func walk(path string, s *jsonschema.Schema, instance any, errs *[]error) {
	if s == nil {
		return
	}

	if len(s.Enum) > 0 && !enumContains(s.Enum, instance) {
		*errs = append(*errs, &ValidationError{Path: path, Message: "value not in enum"})
		return
	}

	switch s.Type {
	case "object":
		walkObject(path, s, instance, errs)
	case "array":
		walkArray(path, s, instance, errs)
	case "string":
		if _, ok := instance.(string); !ok {
			*errs = append(*errs, &ValidationError{Path: path, Message: "expected string"})
		}
	case "number":
		if _, ok := instance.(float64); !ok {
			*errs = append(*errs, &ValidationError{Path: path, Message: "expected number"})
		}
	case "integer":
		f, ok := instance.(float64)
		if !ok || f != float64(int64(f)) {
			*errs = append(*errs, &ValidationError{Path: path, Message: "expected integer"})
		}
	case "boolean":
		if _, ok := instance.(bool); !ok {
			*errs = append(*errs, &ValidationError{Path: path, Message: "expected boolean"})
		}
	}
}

func walkObject(path string, s *jsonschema.Schema, instance any, errs *[]error) {
	obj, ok := instance.(map[string]any)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path, Message: "expected object"})
		return
	}

	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			*errs = append(*errs, &ValidationError{Path: path, Message: fmt.Sprintf("missing required field %q", name)})
		}
	}

	if s.Properties == nil {
		return
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		value, present := obj[pair.Key]
		if !present {
			continue
		}
		walk(path+"."+pair.Key, pair.Value, value, errs)
	}
}

func walkArray(path string, s *jsonschema.Schema, instance any, errs *[]error) {
	arr, ok := instance.([]any)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path, Message: "expected array"})
		return
	}
	if s.Items == nil {
		return
	}
	for i, item := range arr {
		walk(fmt.Sprintf("%s[%d]", path, i), s.Items, item, errs)
	}
}

func enumContains(enum []any, v any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}
