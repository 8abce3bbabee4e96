package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// documentSchema matches the engine's workflow wire format: workflow
// identity, node and edge objects, and the source-handle enum. Structural
// rules that need the registry (branching handles) are checked by
// Workflow.Validate, not here.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Remediation Workflow Document",
  "type": "object",
  "required": ["id", "name", "nodes", "edges"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "nodes": {"type": "array", "items": {"$ref": "#/definitions/node"}},
    "edges": {"type": "array", "items": {"$ref": "#/definitions/edge"}}
  },
  "definitions": {
    "node": {
      "type": "object",
      "required": ["id", "type", "position"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"type": "string", "minLength": 1},
        "position": {
          "type": "object",
          "required": ["x", "y"],
          "properties": {
            "x": {"type": "number"},
            "y": {"type": "number"}
          }
        },
        "data": {"type": "object"}
      }
    },
    "edge": {
      "type": "object",
      "required": ["source", "target"],
      "properties": {
        "id": {"type": "string"},
        "source": {"type": "string", "minLength": 1},
        "target": {"type": "string", "minLength": 1},
        "sourceHandle": {"enum": ["default", "true", "false"]},
        "targetHandle": {"type": "string"},
        "label": {"type": "string"}
      }
    }
  }
}`

// ValidateSchema checks raw workflow bytes (JSON or YAML) against the
// embedded JSON Schema only. Structural invariants that need the parsed
// graph (duplicate ids, dangling edges, branch handles) are left to
// Workflow.Validate.
func ValidateSchema(raw []byte) error {
	if len(raw) == 0 {
		return errors.New("empty workflow document")
	}

	var doc interface{}
	if looksLikeJSON(raw) {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, desc := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += fmt.Sprintf("%s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("schema validation failed: %s", errMsg)
	}

	return nil
}

// ValidateDocument checks raw workflow bytes against the schema, then
// parses and runs the structural invariants. Schema violations are
// reported before structural ones so a malformed document gets shape
// errors rather than confusing parse errors.
func ValidateDocument(raw []byte) error {
	if err := ValidateSchema(raw); err != nil {
		return err
	}

	if _, err := Parse(raw); err != nil {
		return err
	}

	return nil
}
