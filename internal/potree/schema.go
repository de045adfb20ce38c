package potree

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const cloudSchemaURL = "https://github.com/ecopia-map/potree_streamer/schemas/cloud.schema.json"

const cloudSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["boundingBox", "pointAttributes", "scale", "hierarchyStepSize"],
  "properties": {
    "version": {"type": "string"},
    "octreeDir": {"type": "string", "minLength": 1},
    "projection": {"type": "string"},
    "points": {"type": "integer", "minimum": 0},
    "boundingBox": {"$ref": "#/definitions/box"},
    "tightBoundingBox": {"$ref": "#/definitions/box"},
    "pointAttributes": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string"}
    },
    "spacing": {"type": "number", "minimum": 0},
    "scale": {"type": "number", "exclusiveMinimum": 0},
    "hierarchyStepSize": {"type": "integer", "minimum": 1}
  },
  "definitions": {
    "box": {
      "type": "object",
      "required": ["lx", "ly", "lz", "ux", "uy", "uz"],
      "properties": {
        "lx": {"type": "number"},
        "ly": {"type": "number"},
        "lz": {"type": "number"},
        "ux": {"type": "number"},
        "uy": {"type": "number"},
        "uz": {"type": "number"}
      }
    }
  }
}`

var cloudSchema = jsonschema.MustCompileString(cloudSchemaURL, cloudSchemaJSON)

// validateCloudDocument checks a decoded cloud.js document against the schema and
// reports the innermost violation as a FormatError.
func validateCloudDocument(doc interface{}) error {
	err := cloudSchema.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &FormatError{Err: err}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	return &FormatError{Field: field, Reason: ve.Message}
}
