package tui

import (
	"github.com/carsch18/opsflow/pkg/workflow"
)

// defaultUndoDepth bounds how many edits back the editor can travel.
const defaultUndoDepth = 100

// UndoStack keeps bounded snapshots of past workflow states. A snapshot
// is taken before each mutation, so undo restores the graph exactly as
// it was when the snapshot was pushed. Position nudges coalesce: a run
// of pushes with the same key collapses into the first, making a held
// arrow key one undo step.
type UndoStack struct {
	past     []*workflow.Workflow
	future   []*workflow.Workflow
	capacity int
	lastKey  string
}

// NewUndoStack creates an undo stack holding at most capacity states.
func NewUndoStack(capacity int) *UndoStack {
	if capacity <= 0 {
		capacity = defaultUndoDepth
	}
	return &UndoStack{capacity: capacity}
}

// Push records the state the workflow has now, before the caller
// mutates it. A non-empty key marks a coalescing gesture; pass "" for
// discrete edits. Any redo history is discarded.
func (u *UndoStack) Push(wf *workflow.Workflow, key string) {
	if wf == nil {
		return
	}
	if key != "" && key == u.lastKey && len(u.future) == 0 && len(u.past) > 0 {
		return
	}
	u.lastKey = key
	u.future = u.future[:0]

	u.past = append(u.past, snapshotWorkflow(wf))
	if len(u.past) > u.capacity {
		copy(u.past, u.past[1:])
		u.past = u.past[:len(u.past)-1]
	}
}

// Undo trades the current state for the most recent snapshot. The
// returned workflow is the caller's to install; ok is false when there
// is nothing to undo.
func (u *UndoStack) Undo(current *workflow.Workflow) (*workflow.Workflow, bool) {
	if len(u.past) == 0 {
		return nil, false
	}
	state := u.past[len(u.past)-1]
	u.past = u.past[:len(u.past)-1]
	u.future = append(u.future, snapshotWorkflow(current))
	u.lastKey = ""
	return state, true
}

// Redo reverses the most recent undo.
func (u *UndoStack) Redo(current *workflow.Workflow) (*workflow.Workflow, bool) {
	if len(u.future) == 0 {
		return nil, false
	}
	state := u.future[len(u.future)-1]
	u.future = u.future[:len(u.future)-1]
	u.past = append(u.past, snapshotWorkflow(current))
	u.lastKey = ""
	return state, true
}

// CanUndo reports whether a past state is available.
func (u *UndoStack) CanUndo() bool {
	return len(u.past) > 0
}

// CanRedo reports whether an undone state is available.
func (u *UndoStack) CanRedo() bool {
	return len(u.future) > 0
}

// Clear drops all history, for when a different workflow loads.
func (u *UndoStack) Clear() {
	u.past = nil
	u.future = nil
	u.lastKey = ""
}

// Depth returns how many undo steps are available.
func (u *UndoStack) Depth() int {
	return len(u.past)
}

// snapshotWorkflow deep-copies a workflow so later edits cannot reach a
// stored snapshot.
func snapshotWorkflow(wf *workflow.Workflow) *workflow.Workflow {
	cp := workflow.NewWorkflow(wf.ID, wf.Name)
	for _, node := range wf.Nodes {
		cp.Nodes = append(cp.Nodes, &workflow.Node{
			ID:       node.ID,
			Type:     node.Type,
			Position: node.Position,
			Data:     node.CloneData(),
		})
	}
	for _, edge := range wf.Edges {
		copied := *edge
		cp.Edges = append(cp.Edges, &copied)
	}
	return cp
}
