package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/source.schema.json
var sourceSchemaJSON []byte

//go:embed schemas/metadata.schema.json
var metadataSchemaJSON []byte

// Validator checks that registry documents have the JSON shape the audit
// depends on: a top-level object whose url and integrity (source.json) or
// versions (metadata.json) are of the right type or null. Other fields are
// left to lenient decoding and strict lint. It does not judge content: a
// source.json without a url is well-shaped.
type Validator struct {
	source   *jsonschema.Schema
	metadata *jsonschema.Schema
}

var (
	defaultValidator     *Validator
	defaultValidatorErr  error
	defaultValidatorOnce sync.Once
)

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	source, err := compiler.Compile(sourceSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile source schema: %w", err)
	}
	metadata, err := compiler.Compile(metadataSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", err)
	}
	return &Validator{source: source, metadata: metadata}, nil
}

// sharedValidator returns a process-wide Validator; the schemas are static.
func sharedValidator() (*Validator, error) {
	defaultValidatorOnce.Do(func() {
		defaultValidator, defaultValidatorErr = NewValidator()
	})
	return defaultValidator, defaultValidatorErr
}

// ValidateSource checks data against the source.json shape.
func (v *Validator) ValidateSource(data []byte) error {
	return validateShape(v.source, data)
}

// ValidateMetadata checks data against the metadata.json shape.
func (v *Validator) ValidateMetadata(data []byte) error {
	return validateShape(v.metadata, data)
}

func validateShape(schema *jsonschema.Schema, data []byte) error {
	if !json.Valid(data) {
		return errors.New("invalid JSON")
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	keys := make([]string, 0, len(result.Errors))
	for k := range result.Errors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", k, result.Errors[k].Error()))
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
