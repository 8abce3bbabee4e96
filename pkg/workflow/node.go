package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Position is a node's placement on the canvas in logical pixel coordinates.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents one remediation step in a workflow graph.
//
// Type keys into the node type registry; Data holds configuration values
// keyed by property name. A key absent from Data means the schema default
// applies.
type Node struct {
	ID       string                 `json:"id" yaml:"id"`
	Type     string                 `json:"type" yaml:"type"`
	Position Position               `json:"position" yaml:"position"`
	Data     map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewNodeID generates a fresh node identifier prefixed with the node type,
// e.g. "shell_command-3f8a91c2".
func NewNodeID(nodeType string) string {
	return fmt.Sprintf("%s-%s", nodeType, uuid.New().String()[:8])
}

// Validate checks the node's own fields. Registry membership is checked by
// the workflow operations, not here, so documents referencing unknown types
// still parse.
func (n *Node) Validate() error {
	if n.ID == "" {
		return errors.New("node: empty node ID")
	}
	if n.Type == "" {
		return fmt.Errorf("node %s: empty type", n.ID)
	}
	return nil
}

// CloneData returns a deep copy of the node's configuration map. Nested
// slices (array and multi_select values) are copied; nested maps are copied
// one level at a time.
func (n *Node) CloneData() map[string]interface{} {
	if n.Data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(n.Data))
	for k, v := range n.Data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, item := range val {
			cp[i] = cloneValue(item)
		}
		return cp
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(val))
		for k, item := range val {
			cp[k] = cloneValue(item)
		}
		return cp
	default:
		return val
	}
}
