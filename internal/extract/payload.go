package extract

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fieldPayloadSchema constrains the JSON the model may return: an
// array of named fields with bounded confidences. Anything outside
// this shape is rejected before it reaches the pipeline.
const fieldPayloadSchema = `{
  "type": "array",
  "maxItems": 200,
  "items": {
    "type": "object",
    "required": ["field_name", "value", "confidence"],
    "properties": {
      "field_name": {
        "type": "string",
        "minLength": 1,
        "maxLength": 100,
        "pattern": "^[a-z][a-z0-9_]*$"
      },
      "value": {
        "type": ["string", "number", "boolean", "null"]
      },
      "confidence": {
        "type": "number",
        "minimum": 0,
        "maximum": 1
      },
      "raw_text": {
        "type": "string",
        "maxLength": 500
      }
    },
    "additionalProperties": false
  }
}`

var fieldPayloadCompiled = jsonschema.MustCompileString("field_payload.json", fieldPayloadSchema)

// DecodeFieldPayload validates raw model output against the field
// payload schema and decodes it.
func DecodeFieldPayload(data []byte) ([]wireField, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse field payload: %w (raw: %s)", err, truncate(string(data), 200))
	}
	if err := fieldPayloadCompiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("field payload rejected: %w", err)
	}
	var fields []wireField
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode field payload: %w", err)
	}
	return fields, nil
}
