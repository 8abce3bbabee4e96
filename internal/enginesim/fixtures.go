package enginesim

import (
	"fmt"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// seedWorkflows builds the workflows the simulator starts with. Node
// ids are stable so they can appear in documentation and tests.
func seedWorkflows() ([]*workflow.Workflow, error) {
	disk, err := diskRemediation()
	if err != nil {
		return nil, err
	}
	api, err := apiRemediation()
	if err != nil {
		return nil, err
	}
	return []*workflow.Workflow{disk, api}, nil
}

// diskRemediation reacts to disk alerts: check usage, prune when the
// disk really is full, silence the alert noise when it is not.
func diskRemediation() (*workflow.Workflow, error) {
	wf := workflow.NewWorkflow("wf-disk-remediation", "Disk Remediation")

	wf.Nodes = append(wf.Nodes,
		&workflow.Node{
			ID:       "trigger",
			Type:     "alert_trigger",
			Position: workflow.Position{X: 40, Y: 40},
			Data: map[string]interface{}{
				"pattern":      "disk.*",
				"severity":     "warning",
				"service_name": "",
			},
		},
		&workflow.Node{
			ID:       "check-usage",
			Type:     "metric_check",
			Position: workflow.Position{X: 400, Y: 40},
			Data: map[string]interface{}{
				"metric":         "disk.used_pct",
				"operator":       ">",
				"threshold":      float64(90),
				"window_seconds": float64(300),
			},
		},
		&workflow.Node{
			ID:       "prune-docker",
			Type:     "shell_command",
			Position: workflow.Position{X: 760, Y: 0},
			Data: map[string]interface{}{
				"command":         "docker system prune -f",
				"timeout_seconds": float64(120),
				"run_as":          "root",
				"env":             []string{},
			},
		},
		&workflow.Node{
			ID:       "silence-noise",
			Type:     "silence_alerts",
			Position: workflow.Position{X: 760, Y: 320},
			Data: map[string]interface{}{
				"pattern":          "disk.*",
				"duration_seconds": float64(3600),
			},
		},
		&workflow.Node{
			ID:       "notify-oncall",
			Type:     "notify_slack",
			Position: workflow.Position{X: 1120, Y: 40},
			Data: map[string]interface{}{
				"channel":           "#incidents",
				"message":           "Disk pressure remediated",
				"mention":           []string{"@oncall"},
				"notify_on_resolve": false,
			},
		},
	)

	edges := []*workflow.Edge{
		{ID: "edge-trigger-check", Source: "trigger", Target: "check-usage", SourceHandle: workflow.HandleDefault},
		{ID: "edge-check-prune", Source: "check-usage", Target: "prune-docker", SourceHandle: workflow.HandleTrue, Label: "true"},
		{ID: "edge-check-silence", Source: "check-usage", Target: "silence-noise", SourceHandle: workflow.HandleFalse, Label: "false"},
		{ID: "edge-prune-notify", Source: "prune-docker", Target: "notify-oncall", SourceHandle: workflow.HandleDefault},
	}
	for _, edge := range edges {
		if err := wf.AddEdge(edge); err != nil {
			return nil, fmt.Errorf("seed %s: %w", wf.ID, err)
		}
	}

	return wf, nil
}

// apiRemediation handles API 5xx storms: restart the gateway for
// critical alerts, verify the error rate recovered, escalate when it
// did not.
func apiRemediation() (*workflow.Workflow, error) {
	wf := workflow.NewWorkflow("wf-api-restart", "API 5xx Remediation")

	wf.Nodes = append(wf.Nodes,
		&workflow.Node{
			ID:       "trigger",
			Type:     "alert_trigger",
			Position: workflow.Position{X: 40, Y: 200},
			Data: map[string]interface{}{
				"pattern":      "api.http_5xx.*",
				"severity":     "critical",
				"service_name": "api-gateway",
			},
		},
		&workflow.Node{
			ID:       "check-critical",
			Type:     "condition",
			Position: workflow.Position{X: 400, Y: 200},
			Data: map[string]interface{}{
				"expression": `severity == "critical" && error_rate > 0.05`,
			},
		},
		&workflow.Node{
			ID:       "restart-api",
			Type:     "restart_service",
			Position: workflow.Position{X: 760, Y: 80},
			Data: map[string]interface{}{
				"service_name":  "api-gateway",
				"graceful":      true,
				"drain_seconds": float64(30),
			},
		},
		&workflow.Node{
			ID:       "notify-watch",
			Type:     "notify_slack",
			Position: workflow.Position{X: 760, Y: 400},
			Data: map[string]interface{}{
				"channel":           "#ops-watch",
				"message":           "Elevated 5xx below the critical threshold",
				"mention":           []string{},
				"notify_on_resolve": false,
			},
		},
		&workflow.Node{
			ID:       "settle",
			Type:     "wait",
			Position: workflow.Position{X: 1120, Y: 80},
			Data: map[string]interface{}{
				"duration_seconds": float64(60),
			},
		},
		&workflow.Node{
			ID:       "verify-rate",
			Type:     "metric_check",
			Position: workflow.Position{X: 1480, Y: 80},
			Data: map[string]interface{}{
				"metric":         "error_rate",
				"operator":       "<",
				"threshold":      float64(0.01),
				"window_seconds": float64(120),
			},
		},
		&workflow.Node{
			ID:       "notify-resolved",
			Type:     "notify_slack",
			Position: workflow.Position{X: 1840, Y: 0},
			Data: map[string]interface{}{
				"channel":           "#incidents",
				"message":           "API gateway restarted, error rate recovered",
				"mention":           []string{"@here"},
				"notify_on_resolve": true,
			},
		},
		&workflow.Node{
			ID:       "escalate",
			Type:     "approval_gate",
			Position: workflow.Position{X: 1840, Y: 320},
			Data: map[string]interface{}{
				"approvers":       []string{"sre-oncall"},
				"message":         "Error rate still elevated after restart. Approve manual intervention.",
				"timeout_seconds": float64(900),
			},
		},
	)

	edges := []*workflow.Edge{
		{ID: "edge-trigger-cond", Source: "trigger", Target: "check-critical", SourceHandle: workflow.HandleDefault},
		{ID: "edge-cond-restart", Source: "check-critical", Target: "restart-api", SourceHandle: workflow.HandleTrue, Label: "true"},
		{ID: "edge-cond-watch", Source: "check-critical", Target: "notify-watch", SourceHandle: workflow.HandleFalse, Label: "false"},
		{ID: "edge-restart-settle", Source: "restart-api", Target: "settle", SourceHandle: workflow.HandleDefault},
		{ID: "edge-settle-verify", Source: "settle", Target: "verify-rate", SourceHandle: workflow.HandleDefault},
		{ID: "edge-verify-resolved", Source: "verify-rate", Target: "notify-resolved", SourceHandle: workflow.HandleTrue, Label: "true"},
		{ID: "edge-verify-escalate", Source: "verify-rate", Target: "escalate", SourceHandle: workflow.HandleFalse, Label: "false"},
	}
	for _, edge := range edges {
		if err := wf.AddEdge(edge); err != nil {
			return nil, fmt.Errorf("seed %s: %w", wf.ID, err)
		}
	}

	return wf, nil
}
