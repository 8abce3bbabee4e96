package execution

import "fmt"

// Status is a node's state within a run overlay.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Run-level statuses reported by the engine.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ParseStatus converts an engine-reported status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusSkipped:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown node status %q", s)
}

// Terminal reports whether a node in this status can transition further.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal.
// Pending may move anywhere, running may only finish, and terminal
// statuses never change for the remainder of the run.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if s == StatusRunning && next == StatusPending {
		return false
	}
	return s != next
}

// DeriveEdgeStatus computes an edge's highlight from its endpoint
// statuses. Highlights are never stored; an edge lights up only when
// flow actually crossed it, taking the downstream node's outcome.
func DeriveEdgeStatus(source, target Status) (Status, bool) {
	if source != StatusSuccess {
		return "", false
	}
	switch target {
	case StatusRunning:
		return StatusRunning, true
	case StatusSuccess:
		return StatusSuccess, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}
