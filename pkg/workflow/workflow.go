package workflow

import (
	"errors"
	"fmt"
	"strings"

	opserrors "github.com/carsch18/opsflow/pkg/errors"
)

// duplicateOffset is the position delta applied to a duplicated node so the
// copy does not sit exactly on top of the original.
const duplicateOffset = 50

// Workflow represents a directed graph of remediation steps and the
// control-flow connections between them. It is the single source of truth
// for the editor; mutation happens only through the operations below, each
// of which validates before touching any state.
type Workflow struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Edges []*Edge `json:"edges" yaml:"edges"`
}

// NewWorkflow creates an empty workflow with the given identity.
func NewWorkflow(id, name string) *Workflow {
	return &Workflow{
		ID:    id,
		Name:  name,
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// Node returns the node with the given id.
func (w *Workflow) Node(id string) (*Node, error) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, nil
		}
	}
	return nil, fmt.Errorf("node %s: %w", id, opserrors.ErrNotFound)
}

// HasNode reports whether a node with the given id exists.
func (w *Workflow) HasNode(id string) bool {
	_, err := w.Node(id)
	return err == nil
}

// AddNode creates a node of the given type at the given position and
// appends it. The node gets a fresh type-prefixed id and a data map holding
// exactly the type schema's keys at their defaults. Fails without mutation
// when the type is not in the registry.
func (w *Workflow) AddNode(nodeType string, pos Position) (*Node, error) {
	def, err := TypeDef(nodeType)
	if err != nil {
		return nil, err
	}

	node := &Node{
		ID:       NewNodeID(nodeType),
		Type:     nodeType,
		Position: pos,
		Data:     SchemaDefaults(def.Schema),
	}
	w.Nodes = append(w.Nodes, node)
	return node, nil
}

// UpdateNodeData replaces a node's configuration map wholly. Keys the
// caller omits are gone afterwards; there is no merge.
func (w *Workflow) UpdateNodeData(id string, data map[string]interface{}) error {
	node, err := w.Node(id)
	if err != nil {
		return err
	}
	node.Data = data
	return nil
}

// RemoveNode removes a node and cascades removal of every edge that
// references it as source or target. The node lookup happens before any
// mutation, so an unknown id leaves the graph untouched; the node and edge
// updates then land together, never one without the other.
func (w *Workflow) RemoveNode(id string) error {
	found := false
	newNodes := make([]*Node, 0, len(w.Nodes))
	for _, node := range w.Nodes {
		if node.ID != id {
			newNodes = append(newNodes, node)
		} else {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("node %s: %w", id, opserrors.ErrNotFound)
	}

	newEdges := make([]*Edge, 0, len(w.Edges))
	for _, edge := range w.Edges {
		if edge.Source != id && edge.Target != id {
			newEdges = append(newEdges, edge)
		}
	}

	w.Nodes = newNodes
	w.Edges = newEdges
	return nil
}

// DuplicateNode copies a node's type and configuration into a new node
// offset by a fixed delta. Edges incident to the original are not copied.
func (w *Workflow) DuplicateNode(id string) (*Node, error) {
	src, err := w.Node(id)
	if err != nil {
		return nil, err
	}

	dup := &Node{
		ID:   NewNodeID(src.Type),
		Type: src.Type,
		Position: Position{
			X: src.Position.X + duplicateOffset,
			Y: src.Position.Y + duplicateOffset,
		},
		Data: src.CloneData(),
	}
	w.Nodes = append(w.Nodes, dup)
	return dup, nil
}

// AddEdge validates and appends an edge. All checks run before the append:
// the edge's own fields, existence of both endpoints, the branching-handle
// rule, and duplicate detection on the (source, handle, target) triple. An
// empty ID is filled in.
func (w *Workflow) AddEdge(edge *Edge) error {
	if edge == nil {
		return errors.New("cannot add nil edge")
	}
	if edge.ID == "" {
		edge.ID = NewEdgeID()
	}

	if err := edge.Validate(); err != nil {
		return fmt.Errorf("%w: %v", opserrors.ErrInvalidEdge, err)
	}
	if err := w.checkEdgeEndpoints(edge); err != nil {
		return err
	}

	for _, existing := range w.Edges {
		if existing.Source == edge.Source &&
			existing.Target == edge.Target &&
			existing.NormalizedSourceHandle() == edge.NormalizedSourceHandle() {
			return fmt.Errorf("%w: duplicate edge from %s to %s", opserrors.ErrInvalidEdge, edge.Source, edge.Target)
		}
	}

	w.Edges = append(w.Edges, edge)
	return nil
}

// RemoveEdge removes an edge by id.
func (w *Workflow) RemoveEdge(edgeID string) error {
	found := false
	newEdges := make([]*Edge, 0, len(w.Edges))
	for _, edge := range w.Edges {
		if edge.ID != edgeID {
			newEdges = append(newEdges, edge)
		} else {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("edge %s: %w", edgeID, opserrors.ErrNotFound)
	}

	w.Edges = newEdges
	return nil
}

// OutgoingEdges returns the edges whose source is the given node, in graph
// order.
func (w *Workflow) OutgoingEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, edge := range w.Edges {
		if edge.Source == nodeID {
			out = append(out, edge)
		}
	}
	return out
}

// IncomingEdges returns the edges whose target is the given node, in graph
// order.
func (w *Workflow) IncomingEdges(nodeID string) []*Edge {
	var in []*Edge
	for _, edge := range w.Edges {
		if edge.Target == nodeID {
			in = append(in, edge)
		}
	}
	return in
}

// checkEdgeEndpoints enforces the referential and branching invariants for
// one edge against the current graph.
func (w *Workflow) checkEdgeEndpoints(edge *Edge) error {
	source, err := w.Node(edge.Source)
	if err != nil {
		return fmt.Errorf("%w: source node %s does not exist", opserrors.ErrInvalidEdge, edge.Source)
	}
	if !w.HasNode(edge.Target) {
		return fmt.Errorf("%w: target node %s does not exist", opserrors.ErrInvalidEdge, edge.Target)
	}

	branching := IsBranching(source.Type)
	handle := edge.NormalizedSourceHandle()
	if branching && handle == HandleDefault {
		return fmt.Errorf("%w: node %s branches and requires a true or false handle", opserrors.ErrInvalidEdge, edge.Source)
	}
	if !branching && handle != HandleDefault {
		return fmt.Errorf("%w: node %s does not branch, handle %q is not valid", opserrors.ErrInvalidEdge, edge.Source, handle)
	}
	return nil
}

// Validate checks all workflow invariants and reports every violation at
// once.
func (w *Workflow) Validate() error {
	var validationErrors []string

	// Invariant 1: node IDs must be present and unique
	nodeIDs := make(map[string]bool)
	for _, node := range w.Nodes {
		if err := node.Validate(); err != nil {
			validationErrors = append(validationErrors, err.Error())
			continue
		}
		if nodeIDs[node.ID] {
			validationErrors = append(validationErrors, fmt.Sprintf("duplicate node ID found: %s", node.ID))
		}
		nodeIDs[node.ID] = true
	}

	// Invariant 2: edges must be well-formed and reference existing nodes
	for _, edge := range w.Edges {
		if err := edge.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("edge validation failed: %v", err))
			continue
		}
		if !nodeIDs[edge.Source] {
			validationErrors = append(validationErrors, fmt.Sprintf("edge %s references missing source node: %s", edge.ID, edge.Source))
		}
		if !nodeIDs[edge.Target] {
			validationErrors = append(validationErrors, fmt.Sprintf("edge %s references missing target node: %s", edge.ID, edge.Target))
		}
	}

	// Invariant 3: true/false handles only leave branching node types.
	// Skipped when the source type is not in the registry: the workflow may
	// come from an engine build that knows types this editor does not, and
	// such nodes still have to open (as placeholders) rather than fail.
	for _, edge := range w.Edges {
		if !nodeIDs[edge.Source] {
			continue
		}
		node, err := w.Node(edge.Source)
		if err != nil {
			continue
		}
		def, err := TypeDef(node.Type)
		if err != nil {
			continue
		}
		handle := edge.NormalizedSourceHandle()
		if handle != HandleDefault && !def.Branching {
			validationErrors = append(validationErrors, fmt.Sprintf("edge %s uses handle %q but node %s is not a branching type", edge.ID, handle, edge.Source))
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, "; "))
	}

	return nil
}
