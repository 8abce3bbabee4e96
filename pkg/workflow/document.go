package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse parses a workflow document from JSON or YAML bytes. The format is
// sniffed from the first non-space byte. Edge IDs missing from the document
// are filled in; the parsed workflow is structurally validated before being
// returned.
func Parse(data []byte) (*Workflow, error) {
	if len(data) == 0 {
		return nil, errors.New("empty workflow document")
	}

	var wf Workflow
	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if wf.ID == "" {
		return nil, errors.New("missing required field: id")
	}
	if wf.Name == "" {
		return nil, errors.New("missing required field: name")
	}

	if wf.Nodes == nil {
		wf.Nodes = make([]*Node, 0)
	}
	if wf.Edges == nil {
		wf.Edges = make([]*Edge, 0)
	}
	for _, edge := range wf.Edges {
		if edge.ID == "" {
			edge.ID = NewEdgeID()
		}
	}

	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	return &wf, nil
}

// ParseFile parses a workflow document from a file.
func ParseFile(filePath string) (*Workflow, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// ToYAML serializes a workflow to YAML bytes.
func ToYAML(workflow *Workflow) ([]byte, error) {
	if workflow == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	out, err := yaml.Marshal(workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return out, nil
}

// ToJSON serializes a workflow to indented JSON bytes.
func ToJSON(workflow *Workflow) ([]byte, error) {
	if workflow == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	out, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return out, nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
