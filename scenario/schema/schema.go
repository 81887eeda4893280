// Package schema provides the embedded DialogScenario JSON Schema and shared
// schema validation utilities.
package schema

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed dialogscenario.schema.json
var embeddedSchema string

// Loader returns a gojsonschema loader for the embedded scenario schema.
// The schema is embedded so validation works offline.
func Loader() gojsonschema.JSONLoader {
	return gojsonschema.NewStringLoader(embeddedSchema)
}

// ValidationError represents a single schema validation error with
// field-level detail.
type ValidationError struct {
	Field       string
	Description string
	Value       interface{}
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Description, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationResult contains the results of JSON schema validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidateJSON validates raw scenario JSON bytes against the embedded schema.
func ValidateJSON(jsonData []byte) (*ValidationResult, error) {
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(Loader(), documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	vr := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			vr.Errors = append(vr.Errors, ValidationError{
				Field:       e.Field(),
				Description: e.Description(),
				Value:       e.Value(),
			})
		}
	}
	return vr, nil
}
