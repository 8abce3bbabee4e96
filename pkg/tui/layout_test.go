package tui

import (
	"testing"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// TestNodeBoxForClampsWidth verifies box width tracks the longer text
// line within the min and max bounds.
func TestNodeBoxForClampsWidth(t *testing.T) {
	pos := workflow.Position{X: 10, Y: 20}

	short := nodeBoxFor(pos, "ab", "")
	if short.Width != minNodeCols*unitsPerCol {
		t.Errorf("short title width = %v, want %v", short.Width, minNodeCols*unitsPerCol)
	}
	if short.X != 10 || short.Y != 20 {
		t.Errorf("box anchored at (%v, %v), want (10, 20)", short.X, short.Y)
	}

	long := nodeBoxFor(pos, "a very long node header that keeps going", "")
	if long.Width != maxNodeCols*unitsPerCol {
		t.Errorf("long title width = %v, want %v", long.Width, maxNodeCols*unitsPerCol)
	}

	// The preview line can be the widest text.
	preview := nodeBoxFor(pos, "ab", "systemctl restart nginx")
	wantCols := float64(len("systemctl restart nginx")+nodePadCols) * unitsPerCol
	if preview.Width != wantCols {
		t.Errorf("preview-driven width = %v, want %v", preview.Width, wantCols)
	}

	if short.Height != nodeRows*unitsPerRow {
		t.Errorf("height = %v, want %v", short.Height, nodeRows*unitsPerRow)
	}
}

// TestAutoLayoutPositionsLinear verifies a linear pipeline lays out
// left to right on a single row.
func TestAutoLayoutPositionsLinear(t *testing.T) {
	wf := workflow.NewWorkflow("wf-1", "Linear")
	a, _ := wf.AddNode("alert_trigger", workflow.Position{})
	b, _ := wf.AddNode("shell_command", workflow.Position{})
	c, _ := wf.AddNode("notify_slack", workflow.Position{})

	mustAddEdge(t, wf, a.ID, b.ID, workflow.HandleDefault)
	mustAddEdge(t, wf, b.ID, c.ID, workflow.HandleDefault)

	positions := AutoLayoutPositions(wf)
	if len(positions) != 3 {
		t.Fatalf("got %d positions, want 3", len(positions))
	}

	pa, pb, pc := positions[a.ID], positions[b.ID], positions[c.ID]
	if !(pa.X < pb.X && pb.X < pc.X) {
		t.Errorf("layers not advancing along X: %v, %v, %v", pa.X, pb.X, pc.X)
	}
	if pa.Y != pb.Y || pb.Y != pc.Y {
		t.Errorf("single-row pipeline spread across Y: %v, %v, %v", pa.Y, pb.Y, pc.Y)
	}
}

// TestAutoLayoutPositionsBranch verifies branch targets share a layer
// and stack down Y with a gap.
func TestAutoLayoutPositionsBranch(t *testing.T) {
	wf := workflow.NewWorkflow("wf-2", "Branch")
	trigger, _ := wf.AddNode("alert_trigger", workflow.Position{})
	check, _ := wf.AddNode("metric_check", workflow.Position{})
	restart, _ := wf.AddNode("restart_service", workflow.Position{})
	notify, _ := wf.AddNode("notify_slack", workflow.Position{})

	mustAddEdge(t, wf, trigger.ID, check.ID, workflow.HandleDefault)
	mustAddEdge(t, wf, check.ID, restart.ID, workflow.HandleTrue)
	mustAddEdge(t, wf, check.ID, notify.ID, workflow.HandleFalse)

	positions := AutoLayoutPositions(wf)

	pr, pn := positions[restart.ID], positions[notify.ID]
	if pr.X != pn.X {
		t.Errorf("branch targets in different layers: X %v vs %v", pr.X, pn.X)
	}
	if pr.Y >= pn.Y {
		t.Errorf("branch targets not stacked in graph order: Y %v vs %v", pr.Y, pn.Y)
	}

	boxHeight := float64(nodeRows) * unitsPerRow
	if gap := pn.Y - pr.Y; gap < boxHeight {
		t.Errorf("stacked nodes overlap: gap %v < box height %v", gap, boxHeight)
	}

	if positions[check.ID].X <= positions[trigger.ID].X {
		t.Errorf("check should sit right of trigger: %v vs %v",
			positions[check.ID].X, positions[trigger.ID].X)
	}
}

// TestAutoLayoutPositionsCycle verifies nodes on a cycle keep their
// stored positions instead of being flung to a bogus layer.
func TestAutoLayoutPositionsCycle(t *testing.T) {
	wf := workflow.NewWorkflow("wf-3", "Cycle")
	a, _ := wf.AddNode("shell_command", workflow.Position{X: 111, Y: 222})
	b, _ := wf.AddNode("restart_service", workflow.Position{X: 333, Y: 444})

	mustAddEdge(t, wf, a.ID, b.ID, workflow.HandleDefault)
	mustAddEdge(t, wf, b.ID, a.ID, workflow.HandleDefault)

	positions := AutoLayoutPositions(wf)

	if p := positions[a.ID]; p.X != 111 || p.Y != 222 {
		t.Errorf("cycle node a moved to (%v, %v), want (111, 222)", p.X, p.Y)
	}
	if p := positions[b.ID]; p.X != 333 || p.Y != 444 {
		t.Errorf("cycle node b moved to (%v, %v), want (333, 444)", p.X, p.Y)
	}
}

// TestAutoLayoutPositionsEmpty verifies the empty graph yields no
// positions rather than a panic.
func TestAutoLayoutPositionsEmpty(t *testing.T) {
	wf := workflow.NewWorkflow("wf-4", "Empty")
	if positions := AutoLayoutPositions(wf); len(positions) != 0 {
		t.Errorf("got %d positions for empty workflow, want 0", len(positions))
	}
}

func mustAddEdge(t *testing.T, wf *workflow.Workflow, source, target, handle string) {
	t.Helper()
	err := wf.AddEdge(&workflow.Edge{Source: source, Target: target, SourceHandle: handle})
	if err != nil {
		t.Fatalf("AddEdge(%s -> %s) error = %v", source, target, err)
	}
}
