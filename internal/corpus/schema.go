package corpus

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema describes the textual shape every record must have. Keys not listed
// here are free-form and preserved verbatim. A missing id is not malformed; lint
// reports it.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "question": {"type": "string"},
    "text": {"type": "string"},
    "scenario": {"type": "string"},
    "explanation": {"type": "string"},
    "options": {"type": "array", "items": {"type": "string"}},
    "choices": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "text": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	})
	return schema, schemaErr
}

// validateRecord returns one problem string per schema violation in raw.
func validateRecord(raw []byte) []string {
	s, err := compiledSchema()
	if err != nil {
		return []string{fmt.Sprintf("(schema): %v", err)}
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []string{fmt.Sprintf("(root): %v", err)}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return problems
}
