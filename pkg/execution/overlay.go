package execution

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carsch18/opsflow/pkg/engine"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// Outcome is the overall verdict of a finished run.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Overlay tracks per-node execution state for the run currently shown
// on the canvas. It never infers status on its own; every transition
// comes from an engine result. The overlay is read by the renderer and
// mutated only by the canvas controller, on the UI goroutine, so it
// carries no locking.
type Overlay struct {
	runID      string
	workflowID string
	dryRun     bool
	startedAt  time.Time
	duration   time.Duration
	active     bool
	outcome    Outcome
	runErr     string
	statuses   map[string]Status
	names      map[string]string
	entries    []LogEntry
}

// NewOverlay returns an idle overlay with no run attached.
func NewOverlay() *Overlay {
	return &Overlay{}
}

// BeginRun marks every node in the workflow pending and opens a new
// run. It fails while a run is outstanding; the execute control is
// disabled in that state and this guard backs it up.
func (o *Overlay) BeginRun(wf *workflow.Workflow, dryRun bool) (string, error) {
	if o.active {
		return "", fmt.Errorf("execution already in progress for workflow %s", o.workflowID)
	}

	o.runID = "run-" + uuid.New().String()[:8]
	o.workflowID = wf.ID
	o.dryRun = dryRun
	o.startedAt = time.Now()
	o.duration = 0
	o.active = true
	o.outcome = OutcomeNone
	o.runErr = ""
	o.entries = nil

	o.statuses = make(map[string]Status, len(wf.Nodes))
	o.names = make(map[string]string, len(wf.Nodes))
	for _, node := range wf.Nodes {
		o.statuses[node.ID] = StatusPending
		if def, err := workflow.TypeDef(node.Type); err == nil {
			o.names[node.ID] = def.DisplayName
		} else {
			o.names[node.ID] = node.Type
		}
	}

	return o.runID, nil
}

// ApplyResponse transitions nodes per the engine's batch result and
// appends one log entry per node result, in the order the engine
// reported them. A node already in a terminal state keeps it.
func (o *Overlay) ApplyResponse(resp *engine.ExecuteResponse) {
	if !o.active {
		return
	}

	failed := 0
	for _, result := range resp.NodeResults {
		status, err := ParseStatus(result.Status)
		if err != nil {
			status = StatusFailed
		}
		if status == StatusFailed {
			failed++
		}

		if current, ok := o.statuses[result.NodeID]; ok && current.CanTransition(status) {
			o.statuses[result.NodeID] = status
		}

		detail := result.Output
		if result.Error != "" {
			detail = result.Error
		}
		o.entries = append(o.entries, LogEntry{
			Timestamp: time.Now(),
			NodeID:    result.NodeID,
			Name:      o.displayName(result.NodeID),
			Status:    status,
			Duration:  time.Duration(result.DurationMS) * time.Millisecond,
			Detail:    truncateDetail(detail),
		})
	}

	o.duration = time.Duration(resp.DurationMS) * time.Millisecond
	o.runErr = resp.Error
	o.active = false

	if resp.Status == RunCompleted && resp.Error == "" && failed == 0 {
		o.outcome = OutcomeSucceeded
	} else {
		o.outcome = OutcomeFailed
	}

	if resp.Error != "" {
		o.entries = append(o.entries, LogEntry{
			Timestamp: time.Now(),
			Name:      "execution",
			Status:    StatusFailed,
			Detail:    resp.Error,
		})
	}
}

// AbortRun handles a request that never produced a batch result. Per
// the external contract no partial node states are applied, so the
// canvas styling reverts wholesale; the failure stays in the log.
func (o *Overlay) AbortRun(errText string) {
	if !o.active {
		return
	}

	o.statuses = nil
	o.duration = time.Since(o.startedAt)
	o.active = false
	o.outcome = OutcomeFailed
	o.runErr = errText
	o.entries = append(o.entries, LogEntry{
		Timestamp: time.Now(),
		Name:      "execution",
		Status:    StatusFailed,
		Detail:    errText,
	})
}

// Clear detaches the overlay from its run, as when the editor closes.
func (o *Overlay) Clear() {
	*o = Overlay{}
}

// Active reports whether a request is outstanding. The execute control
// stays disabled while true.
func (o *Overlay) Active() bool {
	return o.active
}

// NodeStatus returns a node's state in the current run. ok is false
// when no run is attached or the node is not part of it.
func (o *Overlay) NodeStatus(id string) (Status, bool) {
	status, ok := o.statuses[id]
	return status, ok
}

// EdgeStatus derives an edge's highlight from its endpoints.
func (o *Overlay) EdgeStatus(sourceID, targetID string) (Status, bool) {
	source, ok := o.statuses[sourceID]
	if !ok {
		return "", false
	}
	target, ok := o.statuses[targetID]
	if !ok {
		return "", false
	}
	return DeriveEdgeStatus(source, target)
}

// Entries returns a copy of the execution log in append order.
func (o *Overlay) Entries() []LogEntry {
	out := make([]LogEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

// Outcome returns the verdict of the last finished run, or OutcomeNone
// while idle or outstanding.
func (o *Overlay) Outcome() Outcome {
	if o.active {
		return OutcomeNone
	}
	return o.outcome
}

// RunError returns the run-level error text, verbatim as the engine
// reported it.
func (o *Overlay) RunError() string {
	return o.runErr
}

// RunDuration returns how long the last finished run took.
func (o *Overlay) RunDuration() time.Duration {
	return o.duration
}

// FailedCount counts nodes whose current status is failed.
func (o *Overlay) FailedCount() int {
	n := 0
	for _, status := range o.statuses {
		if status == StatusFailed {
			n++
		}
	}
	return n
}

func (o *Overlay) displayName(nodeID string) string {
	if name, ok := o.names[nodeID]; ok {
		return name
	}
	return nodeID
}

// RunRecord is the archived form of a finished run, written to the
// local history store.
type RunRecord struct {
	RunID      string
	WorkflowID string
	DryRun     bool
	Outcome    Outcome
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
	Entries    []LogEntry
}

// Record snapshots the last finished run for archival. ok is false
// while the overlay is idle or a request is still outstanding.
func (o *Overlay) Record() (RunRecord, bool) {
	if o.active || o.outcome == OutcomeNone {
		return RunRecord{}, false
	}
	return RunRecord{
		RunID:      o.runID,
		WorkflowID: o.workflowID,
		DryRun:     o.dryRun,
		Outcome:    o.outcome,
		Error:      o.runErr,
		StartedAt:  o.startedAt,
		Duration:   o.duration,
		Entries:    o.Entries(),
	}, true
}
