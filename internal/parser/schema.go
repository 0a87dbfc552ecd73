package parser

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaParser runs the brace scanner and then validates the record against a
// JSON schema. Records that fail validation are reported as malformed.
type SchemaParser struct {
	schema *gojsonschema.Schema
}

// NewSchemaParser compiles the provided JSON schema document.
func NewSchemaParser(schema string) (*SchemaParser, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaParser{schema: compiled}, nil
}

func (p *SchemaParser) Parse(text string) (map[string]any, error) {
	data, err := ParseStructured(text)
	if err != nil {
		return nil, err
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, &MalformedError{Err: fmt.Errorf("validate: %w", err)}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, &MalformedError{Err: fmt.Errorf("schema violations: %s", strings.Join(details, "; "))}
	}

	return data, nil
}
