package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Source handle values. A branching node emits over exactly the "true" and
// "false" handles; every other node emits over the default handle. An empty
// SourceHandle on the wire means default.
const (
	HandleDefault = "default"
	HandleTrue    = "true"
	HandleFalse   = "false"
)

// Edge represents a directed connection between two nodes in a workflow.
// Field names follow the engine's wire format.
type Edge struct {
	ID           string `json:"id" yaml:"id,omitempty"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NewEdgeID generates a fresh edge identifier, e.g. "edge-9c41d07e".
func NewEdgeID() string {
	return fmt.Sprintf("edge-%s", uuid.New().String()[:8])
}

// NormalizedSourceHandle maps an absent handle to HandleDefault.
func (e *Edge) NormalizedSourceHandle() string {
	if e.SourceHandle == "" {
		return HandleDefault
	}
	return e.SourceHandle
}

// Validate checks the edge's own fields. Endpoint existence and the
// branching-handle rule need the surrounding workflow and are enforced by
// Workflow.AddEdge and Workflow.Validate.
func (e *Edge) Validate() error {
	if e.ID == "" {
		return errors.New("edge: empty edge ID")
	}
	if e.Source == "" {
		return errors.New("edge: empty source node")
	}
	if e.Target == "" {
		return errors.New("edge: empty target node")
	}
	if e.Source == e.Target {
		return fmt.Errorf("edge: self-loop detected (node %s to itself)", e.Source)
	}
	switch e.NormalizedSourceHandle() {
	case HandleDefault, HandleTrue, HandleFalse:
	default:
		return fmt.Errorf("edge %s: invalid source handle %q", e.ID, e.SourceHandle)
	}
	return nil
}
