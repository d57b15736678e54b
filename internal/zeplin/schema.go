package zeplin

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Screen and layer payload schemas. The Zeplin API is duck-typed JSON;
// validating the shape here keeps malformed payloads from leaking past
// the adapter boundary.

const screenSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "image"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "image": {
      "type": "object",
      "required": ["original_url"],
      "properties": {
        "original_url": {"type": "string", "minLength": 1},
        "width": {"type": "integer", "minimum": 0},
        "height": {"type": "integer", "minimum": 0}
      }
    },
    "latest_version": {
      "type": "object",
      "properties": {
        "id": {"type": "string"}
      }
    }
  }
}`

const layersSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["type"],
    "properties": {
      "type": {"type": "string"},
      "name": {"type": "string"},
      "content": {"type": "string"},
      "rect": {
        "type": "object",
        "properties": {
          "x": {"type": "number"},
          "y": {"type": "number"},
          "width": {"type": "number"},
          "height": {"type": "number"}
        }
      },
      "texts": {"type": "array"}
    }
  }
}`

// ValidationError represents a payload shape violation with field paths.
type ValidationError struct {
	Payload string
	Errors  []FieldError
}

// FieldError is a single violation at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("zeplin %s payload failed validation:\n", ve.Payload))
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// validatePayload validates raw JSON against a schema string.
func validatePayload(name, schema string, payload []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s payload: %w", name, err)
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Payload: name,
		Errors:  make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
