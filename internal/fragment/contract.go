// Copyright fmforge, 2026. All rights reserved.

package fragment

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// fragmentSchema is the JSON contract the generator is asked to follow:
// a features array of objects with a required name, an optional parent
// reference, and a variability kind limited to the four defined values.
const fragmentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["features"],
  "properties": {
    "root": {"type": "string"},
    "features": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "parent": {"type": "string"},
          "kind": {"enum": ["mandatory", "optional", "or", "alt"]}
        }
      }
    }
  }
}`

// validateContract checks a JSON payload against the fragment contract
// and returns one message per violation, empty when the payload
// conforms.
func validateContract(payload string) []string {
	schemaLoader := gojsonschema.NewStringLoader(fragmentSchema)
	documentLoader := gojsonschema.NewStringLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return []string{fmt.Sprintf("contract validation: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	var out []string
	for _, desc := range result.Errors() {
		out = append(out, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return out
}
