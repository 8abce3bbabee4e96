package tui

import (
	"strings"
	"testing"

	"github.com/carsch18/opsflow/pkg/engine"
	"github.com/carsch18/opsflow/pkg/execution"
	"github.com/carsch18/opsflow/pkg/workflow"
)

func remediationFixture(t *testing.T) (*workflow.Workflow, *workflow.Node, *workflow.Node, *workflow.Node) {
	t.Helper()
	wf := workflow.NewWorkflow("wf-disk", "Disk Remediation")

	trigger, err := wf.AddNode("alert_trigger", workflow.Position{X: 40, Y: 40})
	if err != nil {
		t.Fatalf("AddNode(alert_trigger) error = %v", err)
	}
	check, err := wf.AddNode("metric_check", workflow.Position{X: 400, Y: 40})
	if err != nil {
		t.Fatalf("AddNode(metric_check) error = %v", err)
	}
	restart, err := wf.AddNode("restart_service", workflow.Position{X: 760, Y: 40})
	if err != nil {
		t.Fatalf("AddNode(restart_service) error = %v", err)
	}

	mustAddEdge(t, wf, trigger.ID, check.ID, workflow.HandleDefault)
	mustAddEdge(t, wf, check.ID, restart.ID, workflow.HandleTrue)

	return wf, trigger, check, restart
}

// TestComposeSceneRemediationPipeline walks a three-node pipeline
// through composition: nodes first in graph order, then edges, with
// the branch edge leaving the true anchor.
func TestComposeSceneRemediationPipeline(t *testing.T) {
	wf, trigger, check, restart := remediationFixture(t)

	scene := ComposeScene(wf, SceneOptions{SelectedID: check.ID})

	if scene.Placeholder != nil {
		t.Fatal("unexpected placeholder for a loaded workflow")
	}
	if len(scene.Nodes) != 3 {
		t.Fatalf("got %d scene nodes, want 3", len(scene.Nodes))
	}
	if len(scene.Edges) != 2 {
		t.Fatalf("got %d scene edges, want 2", len(scene.Edges))
	}

	if scene.Nodes[0].ID != trigger.ID || scene.Nodes[2].ID != restart.ID {
		t.Errorf("nodes out of graph order: %s, %s, %s",
			scene.Nodes[0].ID, scene.Nodes[1].ID, scene.Nodes[2].ID)
	}

	// Trigger nodes take no input; everything downstream does.
	if scene.Nodes[0].HasInput {
		t.Error("trigger node should have no input anchor")
	}
	if !scene.Nodes[1].HasInput || !scene.Nodes[2].HasInput {
		t.Error("downstream nodes should have input anchors")
	}

	if got := scene.Nodes[0].Title; got != "⚡ Alert Trigger" {
		t.Errorf("trigger title = %q", got)
	}
	if scene.Nodes[1].Category != workflow.CategoryLogic {
		t.Errorf("check category = %q, want logic", scene.Nodes[1].Category)
	}
	if len(scene.Nodes[1].Outputs) != 2 {
		t.Fatalf("branching node has %d outputs, want 2", len(scene.Nodes[1].Outputs))
	}
	if !scene.Nodes[1].Selected {
		t.Error("check node should carry the selection")
	}

	// The true-branch edge starts at the 35% anchor of the check node.
	branch := scene.Edges[1]
	if branch.Label != workflow.HandleTrue {
		t.Errorf("branch edge label = %q, want %q", branch.Label, workflow.HandleTrue)
	}
	checkBox := scene.Nodes[1].Box
	wantStart := Point{X: checkBox.X + checkBox.Width, Y: checkBox.Y + 0.35*checkBox.Height}
	start := branch.Points[0]
	if !almostEqual(start.X, wantStart.X) || !almostEqual(start.Y, wantStart.Y) {
		t.Errorf("branch edge starts at %+v, want %+v", start, wantStart)
	}

	// Both edges terminate at their target's left-center input.
	end := branch.Points[len(branch.Points)-1]
	restartBox := scene.Nodes[2].Box
	if !almostEqual(end.X, restartBox.X) || !almostEqual(end.Y, restartBox.Y+restartBox.Height/2) {
		t.Errorf("branch edge ends at %+v, want input anchor of restart", end)
	}
}

// TestComposeSceneSkipsDanglingEdge verifies an edge whose endpoint is
// gone simply does not render.
func TestComposeSceneSkipsDanglingEdge(t *testing.T) {
	wf, trigger, _, _ := remediationFixture(t)

	// Bypass AddEdge validation to simulate a stale document.
	wf.Edges = append(wf.Edges, &workflow.Edge{
		ID:     "edge-stale",
		Source: trigger.ID,
		Target: "node-gone",
	})

	scene := ComposeScene(wf, SceneOptions{})
	for _, edge := range scene.Edges {
		if edge.ID == "edge-stale" {
			t.Error("dangling edge should be skipped")
		}
	}
	if len(scene.Edges) != 2 {
		t.Errorf("got %d edges, want 2", len(scene.Edges))
	}
}

// TestComposeSceneUnknownType verifies an unrecognized node type still
// renders as a flagged card with anchors.
func TestComposeSceneUnknownType(t *testing.T) {
	wf := workflow.NewWorkflow("wf-x", "Mixed")
	wf.Nodes = append(wf.Nodes, &workflow.Node{
		ID:       "node-legacy",
		Type:     "page_oncall",
		Position: workflow.Position{X: 40, Y: 40},
		Data:     map[string]interface{}{"rotation": "primary"},
	})

	scene := ComposeScene(wf, SceneOptions{})
	if len(scene.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(scene.Nodes))
	}

	sn := scene.Nodes[0]
	if !sn.Unknown {
		t.Error("node should be flagged unknown")
	}
	if sn.Title != "⚠ page_oncall" {
		t.Errorf("title = %q", sn.Title)
	}
	if sn.Preview != "unknown node type" {
		t.Errorf("preview = %q", sn.Preview)
	}
	if !sn.HasInput {
		t.Error("unknown node should still accept connections")
	}
	if len(sn.Outputs) != 1 {
		t.Errorf("unknown node has %d outputs, want 1", len(sn.Outputs))
	}
}

// TestPlaceholderScene verifies the not-found frame carries the id and
// message with no graph.
func TestPlaceholderScene(t *testing.T) {
	scene := PlaceholderScene("wf-missing", "workflow wf-missing: not found")

	if scene.Placeholder == nil {
		t.Fatal("placeholder missing")
	}
	if scene.Placeholder.WorkflowID != "wf-missing" {
		t.Errorf("placeholder id = %q", scene.Placeholder.WorkflowID)
	}
	if len(scene.Nodes) != 0 || len(scene.Edges) != 0 {
		t.Errorf("placeholder scene has %d nodes, %d edges, want none",
			len(scene.Nodes), len(scene.Edges))
	}
}

// TestComposeSceneOverlayStatuses verifies node status and derived edge
// highlights flow from a run result into the scene.
func TestComposeSceneOverlayStatuses(t *testing.T) {
	wf, trigger, check, restart := remediationFixture(t)

	overlay := execution.NewOverlay()
	if _, err := overlay.BeginRun(wf, false); err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	overlay.ApplyResponse(&engine.ExecuteResponse{
		Status:     execution.RunCompleted,
		DurationMS: 1200,
		NodeResults: []engine.NodeResult{
			{NodeID: trigger.ID, Status: "success", DurationMS: 5},
			{NodeID: check.ID, Status: "success", DurationMS: 40},
			{NodeID: restart.ID, Status: "failed", Error: "systemctl exited 1", DurationMS: 300},
		},
	})

	scene := ComposeScene(wf, SceneOptions{Overlay: overlay})

	for i, want := range []execution.Status{
		execution.StatusSuccess, execution.StatusSuccess, execution.StatusFailed,
	} {
		sn := scene.Nodes[i]
		if !sn.HasStatus || sn.Status != want {
			t.Errorf("node %d status = %v (has %v), want %v", i, sn.Status, sn.HasStatus, want)
		}
	}

	// Both edges sit on the executed path: trigger -> check succeeded
	// into success, check -> restart succeeded into failure.
	if !scene.Edges[0].Highlight || scene.Edges[0].Status != execution.StatusSuccess {
		t.Errorf("first edge = %v highlight %v", scene.Edges[0].Status, scene.Edges[0].Highlight)
	}
	if !scene.Edges[1].Highlight || scene.Edges[1].Status != execution.StatusFailed {
		t.Errorf("second edge = %v highlight %v", scene.Edges[1].Status, scene.Edges[1].Highlight)
	}
}

// TestComposeSceneSkippedBranchNotHighlighted verifies the untaken
// branch stays unlit.
func TestComposeSceneSkippedBranchNotHighlighted(t *testing.T) {
	wf, trigger, check, _ := remediationFixture(t)
	notify, err := wf.AddNode("notify_slack", workflow.Position{X: 760, Y: 300})
	if err != nil {
		t.Fatalf("AddNode(notify_slack) error = %v", err)
	}
	mustAddEdge(t, wf, check.ID, notify.ID, workflow.HandleFalse)

	overlay := execution.NewOverlay()
	if _, err := overlay.BeginRun(wf, false); err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	overlay.ApplyResponse(&engine.ExecuteResponse{
		Status: execution.RunCompleted,
		NodeResults: []engine.NodeResult{
			{NodeID: trigger.ID, Status: "success"},
			{NodeID: check.ID, Status: "success"},
			{NodeID: notify.ID, Status: "skipped"},
		},
	})

	scene := ComposeScene(wf, SceneOptions{Overlay: overlay})
	for _, edge := range scene.Edges {
		if edge.Label == workflow.HandleFalse && edge.Highlight {
			t.Error("edge into a skipped node should not highlight")
		}
	}
}

// TestConfigPreview exercises the preview priority chain.
func TestConfigPreview(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
		want string
	}{
		{
			name: "empty",
			data: nil,
			want: "",
		},
		{
			name: "command wins over message",
			data: map[string]interface{}{
				"message": "restarting now",
				"command": "df -h /var",
			},
			want: "df -h /var",
		},
		{
			name: "metric folds operator and threshold",
			data: map[string]interface{}{
				"metric":    "disk.used_pct",
				"operator":  ">",
				"threshold": float64(90),
			},
			want: "disk.used_pct > 90",
		},
		{
			name: "metric alone",
			data: map[string]interface{}{"metric": "disk.used_pct"},
			want: "disk.used_pct",
		},
		{
			name: "duration gets unit suffix",
			data: map[string]interface{}{"duration_seconds": float64(300)},
			want: "300s",
		},
		{
			name: "channel",
			data: map[string]interface{}{"channel": "#incidents"},
			want: "#incidents",
		},
		{
			name: "no preview key present",
			data: map[string]interface{}{"graceful": true},
			want: "",
		},
	}

	for _, tt := range tests {
		if got := configPreview(tt.data); got != tt.want {
			t.Errorf("%s: configPreview() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// TestTruncatePreview verifies whitespace folding and the ellipsis cut.
func TestTruncatePreview(t *testing.T) {
	long := "systemctl restart nginx && journalctl -u nginx --since '5 min ago'"
	got := truncatePreview(long)
	if runes := []rune(got); len(runes) != previewChars {
		t.Errorf("truncated to %d runes, want %d", len(runes), previewChars)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated preview %q should end with ellipsis", got)
	}

	multiline := "echo a\n  echo b"
	if got := truncatePreview(multiline); got != "echo a echo b" {
		t.Errorf("whitespace fold = %q", got)
	}

	short := "df -h"
	if got := truncatePreview(short); got != short {
		t.Errorf("short preview altered: %q", got)
	}
}
