package enginesim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// nodeOutcome is the simulator's verdict for a single node.
type nodeOutcome struct {
	Status     string `json:"status"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// resultEntry pairs a node id with its outcome. Entries keep execution
// order; the wire format relies on it.
type resultEntry struct {
	nodeID  string
	outcome nodeOutcome
}

// orderedResults marshals as a JSON object whose keys appear in entry
// order. encoding/json sorts map keys, which would scramble the
// execution order clients read back out of the document.
type orderedResults []resultEntry

func (r orderedResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.nodeID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(entry.outcome)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// runResult is the execute response body.
type runResult struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Status      string         `json:"status"`
	DryRun      bool           `json:"dry_run"`
	DurationMS  int64          `json:"duration_ms"`
	NodeResults orderedResults `json:"node_results"`
	Error       string         `json:"error,omitempty"`
}

// simulateRun walks the workflow graph from its alert triggers and
// fabricates per-node results. Branching nodes evaluate against the
// trigger data; nodes on untaken branches and nodes downstream of a
// failure are reported as skipped. A node failure does not fail the
// run itself, matching how the real engine reports completed runs
// with failed nodes inside them.
func simulateRun(wf *workflow.Workflow, trigger map[string]interface{}, dryRun bool) *runResult {
	result := &runResult{
		ExecutionID: "exec-" + uuid.New().String()[:8],
		WorkflowID:  wf.ID,
		Status:      "completed",
		DryRun:      dryRun,
	}

	queue := make([]string, 0, len(wf.Nodes))
	for _, node := range wf.Nodes {
		if node.Type == "alert_trigger" {
			queue = append(queue, node.ID)
		}
	}
	if len(queue) == 0 {
		result.Status = "failed"
		result.Error = "workflow has no alert_trigger node"
		return result
	}

	visited := make(map[string]bool, len(wf.Nodes))
	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		if visited[nodeID] {
			continue
		}
		visited[nodeID] = true

		node, err := wf.Node(nodeID)
		if err != nil {
			continue
		}

		outcome, verdict := executeNode(node, trigger, dryRun)
		result.NodeResults = append(result.NodeResults, resultEntry{nodeID: nodeID, outcome: outcome})
		result.DurationMS += outcome.DurationMS

		if outcome.Status != "success" {
			continue
		}

		for _, edge := range wf.OutgoingEdges(nodeID) {
			handle := edge.NormalizedSourceHandle()
			if workflow.IsBranching(node.Type) && handle != fmt.Sprintf("%t", verdict) {
				continue
			}
			queue = append(queue, edge.Target)
		}
	}

	// Everything the walk never reached is reported as skipped, in
	// document order after the executed nodes.
	for _, node := range wf.Nodes {
		if visited[node.ID] {
			continue
		}
		result.NodeResults = append(result.NodeResults, resultEntry{
			nodeID:  node.ID,
			outcome: nodeOutcome{Status: "skipped", Output: "not reached"},
		})
	}

	return result
}

// executeNode fabricates one node's outcome. The boolean verdict is
// only meaningful for branching types and decides which handle's
// edges the walk follows.
func executeNode(node *workflow.Node, trigger map[string]interface{}, dryRun bool) (nodeOutcome, bool) {
	if injected, ok := trigger["fail_node"].(string); ok && injected == node.ID {
		return nodeOutcome{
			Status:     "failed",
			Error:      fmt.Sprintf("injected failure for node %s", node.ID),
			DurationMS: durationFor(node, dryRun),
		}, false
	}

	switch node.Type {
	case "alert_trigger":
		pattern := workflow.StringFieldValue(node.Data["pattern"])
		return success(node, dryRun, fmt.Sprintf("alert matched pattern %q", pattern)), false

	case "metric_check":
		return evaluateMetricCheck(node, trigger, dryRun)

	case "condition":
		return evaluateCondition(node, trigger, dryRun)

	case "shell_command":
		command := workflow.StringFieldValue(node.Data["command"])
		if line := strings.SplitN(command, "\n", 2); len(line) > 0 {
			command = line[0]
		}
		return success(node, dryRun, fmt.Sprintf("ran %q", command)), false

	case "restart_service":
		service := workflow.StringFieldValue(node.Data["service_name"])
		return success(node, dryRun, fmt.Sprintf("restarted %s", service)), false

	case "wait":
		seconds, _ := workflow.NumberValue(node.Data["duration_seconds"])
		return success(node, dryRun, fmt.Sprintf("waited %.0fs (simulated)", seconds)), false

	case "notify_slack":
		channel := workflow.StringFieldValue(node.Data["channel"])
		return success(node, dryRun, fmt.Sprintf("notified %s", channel)), false

	case "approval_gate":
		return success(node, dryRun, "auto-approved (simulation)"), false

	case "silence_alerts":
		pattern := workflow.StringFieldValue(node.Data["pattern"])
		seconds, _ := workflow.NumberValue(node.Data["duration_seconds"])
		return success(node, dryRun, fmt.Sprintf("silenced alerts matching %q for %.0fs", pattern, seconds)), false

	default:
		return success(node, dryRun, fmt.Sprintf("no-op (unsupported type %s)", node.Type)), false
	}
}

// evaluateMetricCheck compares the observed metric from the trigger
// data against the configured threshold.
func evaluateMetricCheck(node *workflow.Node, trigger map[string]interface{}, dryRun bool) (nodeOutcome, bool) {
	metric := workflow.StringFieldValue(node.Data["metric"])
	observed, ok := workflow.NumberValue(trigger[metric])
	if !ok {
		return nodeOutcome{
			Status:     "failed",
			Error:      fmt.Sprintf("metric %q not present in trigger data", metric),
			DurationMS: durationFor(node, dryRun),
		}, false
	}

	threshold, _ := workflow.NumberValue(node.Data["threshold"])
	operator := workflow.StringFieldValue(node.Data["operator"])
	if operator == "" {
		operator = ">"
	}

	var verdict bool
	switch operator {
	case ">":
		verdict = observed > threshold
	case ">=":
		verdict = observed >= threshold
	case "<":
		verdict = observed < threshold
	case "<=":
		verdict = observed <= threshold
	case "==":
		verdict = observed == threshold
	default:
		return nodeOutcome{
			Status:     "failed",
			Error:      fmt.Sprintf("unsupported operator %q", operator),
			DurationMS: durationFor(node, dryRun),
		}, false
	}

	outcome := success(node, dryRun, fmt.Sprintf("%s observed %v, verdict %t", metric, observed, verdict))
	return outcome, verdict
}

// evaluateCondition compiles and runs the node's expression with the
// trigger data as its environment.
func evaluateCondition(node *workflow.Node, trigger map[string]interface{}, dryRun bool) (nodeOutcome, bool) {
	source := workflow.StringFieldValue(node.Data["expression"])

	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nodeOutcome{
			Status:     "failed",
			Error:      fmt.Sprintf("expression does not compile: %v", err),
			DurationMS: durationFor(node, dryRun),
		}, false
	}

	env := trigger
	if env == nil {
		env = map[string]interface{}{}
	}
	value, err := expr.Run(program, env)
	if err != nil {
		return nodeOutcome{
			Status:     "failed",
			Error:      fmt.Sprintf("expression failed: %v", err),
			DurationMS: durationFor(node, dryRun),
		}, false
	}

	verdict, ok := value.(bool)
	if !ok {
		return nodeOutcome{
			Status:     "failed",
			Error:      fmt.Sprintf("expression evaluated to %T, want bool", value),
			DurationMS: durationFor(node, dryRun),
		}, false
	}

	outcome := success(node, dryRun, fmt.Sprintf("expression evaluated to %t", verdict))
	return outcome, verdict
}

func success(node *workflow.Node, dryRun bool, output string) nodeOutcome {
	if dryRun {
		output = "dry run: " + output
	}
	return nodeOutcome{
		Status:     "success",
		Output:     output,
		DurationMS: durationFor(node, dryRun),
	}
}

// durationFor fabricates a plausible duration per node type. Dry runs
// report zero since nothing actually executed.
func durationFor(node *workflow.Node, dryRun bool) int64 {
	if dryRun {
		return 0
	}
	switch node.Type {
	case "alert_trigger":
		return 1
	case "metric_check":
		return 4
	case "condition":
		return 2
	case "shell_command":
		return 40
	case "restart_service":
		return 250
	case "wait":
		seconds, _ := workflow.NumberValue(node.Data["duration_seconds"])
		return int64(seconds * 1000)
	case "notify_slack":
		return 60
	case "silence_alerts":
		return 8
	default:
		return 10
	}
}
