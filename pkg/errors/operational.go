package errors

import (
	"errors"
	"fmt"
	"time"
)

// Editor error taxonomy. Every failure produced by the graph model, the
// registry, or the engine client wraps exactly one of these sentinels so
// callers can classify with errors.Is.
var (
	// ErrNotFound indicates a workflow or node id that is absent from the
	// model. Raised before any mutation takes place.
	ErrNotFound = errors.New("not found")

	// ErrInvalidEdge indicates an edge that dangles or violates the
	// branching-handle rule. Raised before any mutation takes place.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrUnknownNodeType indicates a registry miss. Expected at run time
	// (a workflow may reference types this build does not know); callers
	// must degrade to a placeholder rather than fail.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrRemoteUnavailable indicates a network failure or non-2xx response
	// from the workflow engine. Expected at run time; callers surface a
	// notification and keep the editor usable.
	ErrRemoteUnavailable = errors.New("engine unavailable")
)

// OperationalError represents enhanced error information for debugging.
//
// It wraps errors with operational context including workflow ID, node ID,
// and timestamp. This enables better error tracking and debugging across
// editor commands and engine calls.
type OperationalError struct {
	Operation  string                 // What operation was being performed
	WorkflowID string                 // Which workflow
	NodeID     string                 // Which node (if applicable)
	Timestamp  time.Time              // When error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error                  // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err != nil {
//	    return NewOperationalError("deleting node", workflowID, nodeID, err)
//	}
func NewOperationalError(operation, workflowID, nodeID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation:  operation,
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Attributes: nil,
		Cause:      cause,
	}
}

// NewOperationalErrorWithAttrs creates an OperationalError with additional attributes.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	return NewOperationalErrorWithAttrs(
//	    "executing workflow",
//	    workflowID,
//	    "",
//	    err,
//	    map[string]interface{}{
//	        "statusCode": resp.StatusCode,
//	        "dryRun":     req.DryRun,
//	    },
//	)
func NewOperationalErrorWithAttrs(operation, workflowID, nodeID string, cause error, attrs map[string]interface{}) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation:  operation,
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Attributes: attrs,
		Cause:      cause,
	}
}

// Error implements the error interface.
//
// Format: "[timestamp] operation: workflow={id} node={id}: {cause}"
// If node ID is empty, it's omitted from the message.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	timestamp := e.Timestamp.Format(time.RFC3339)

	var msg string
	if e.NodeID != "" {
		msg = fmt.Sprintf("[%s] %s: workflow=%s node=%s: %v",
			timestamp,
			e.Operation,
			e.WorkflowID,
			e.NodeID,
			e.Cause)
	} else {
		msg = fmt.Sprintf("[%s] %s: workflow=%s: %v",
			timestamp,
			e.Operation,
			e.WorkflowID,
			e.Cause)
	}

	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
