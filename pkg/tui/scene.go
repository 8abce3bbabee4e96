package tui

import (
	"strings"

	"github.com/carsch18/opsflow/pkg/execution"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// Scene is the visual tree for one frame: everything the canvas needs
// to draw, and nothing it has to look up. It is rebuilt from scratch on
// every change; nothing in it survives across frames.
type Scene struct {
	WorkflowID  string
	Name        string
	Nodes       []SceneNode
	Edges       []SceneEdge
	Placeholder *ScenePlaceholder
}

// SceneNode is one node card: header text, config preview, geometry,
// and any execution status to style the border with.
type SceneNode struct {
	ID        string
	Title     string
	Preview   string
	Category  workflow.Category
	Box       NodeBox
	Input     Anchor
	HasInput  bool
	Outputs   []Anchor
	Selected  bool
	Unknown   bool
	Status    execution.Status
	HasStatus bool
}

// SceneEdge is one connector: the sampled curve, the label and where to
// put it, and whether execution flow crossed this edge.
type SceneEdge struct {
	ID        string
	Points    []Point
	Label     string
	LabelAt   Point
	Selected  bool
	Status    execution.Status
	Highlight bool
}

// ScenePlaceholder replaces the node graph when the workflow could not
// be loaded. The id stays visible so the operator knows what was asked
// for.
type ScenePlaceholder struct {
	WorkflowID string
	Message    string
}

// SceneOptions carries the editor state that shapes a frame beyond the
// workflow itself.
type SceneOptions struct {
	SelectedID     string
	SelectedEdgeID string
	Overlay        *execution.Overlay
}

// ComposeScene builds the visual tree for a workflow. Nodes come first
// in workflow order; edges follow so connectors draw over the cards
// they join. The workflow is only read.
func ComposeScene(wf *workflow.Workflow, opts SceneOptions) Scene {
	scene := Scene{
		WorkflowID: wf.ID,
		Name:       wf.Name,
		Nodes:      make([]SceneNode, 0, len(wf.Nodes)),
		Edges:      make([]SceneEdge, 0, len(wf.Edges)),
	}

	boxes := make(map[string]NodeBox, len(wf.Nodes))
	branching := make(map[string]bool, len(wf.Nodes))

	for _, node := range wf.Nodes {
		sn := composeNode(node, opts)
		boxes[node.ID] = sn.Box
		branching[node.ID] = workflow.IsBranching(node.Type)
		scene.Nodes = append(scene.Nodes, sn)
	}

	for _, edge := range wf.Edges {
		sourceBox, okSource := boxes[edge.Source]
		targetBox, okTarget := boxes[edge.Target]
		if !okSource || !okTarget {
			continue
		}

		from := OutputAnchorFor(sourceBox, branching[edge.Source], edge.NormalizedSourceHandle())
		to := InputAnchor(targetBox)
		curve := NewEdgeCurve(from.Point, to.Point)

		se := SceneEdge{
			ID:       edge.ID,
			Points:   curve.Sample(curveSteps(from.Point, to.Point)),
			Label:    edge.Label,
			LabelAt:  curve.LabelPoint(),
			Selected: edge.ID != "" && edge.ID == opts.SelectedEdgeID,
		}
		if opts.Overlay != nil {
			sourceStatus, _ := opts.Overlay.NodeStatus(edge.Source)
			targetStatus, _ := opts.Overlay.NodeStatus(edge.Target)
			if status, ok := execution.DeriveEdgeStatus(sourceStatus, targetStatus); ok {
				se.Status = status
				se.Highlight = true
			}
		}
		scene.Edges = append(scene.Edges, se)
	}

	return scene
}

// PlaceholderScene builds the frame shown when a workflow failed to
// load: no nodes, no edges, just the id and what went wrong.
func PlaceholderScene(workflowID, message string) Scene {
	return Scene{
		WorkflowID: workflowID,
		Placeholder: &ScenePlaceholder{
			WorkflowID: workflowID,
			Message:    message,
		},
	}
}

func composeNode(node *workflow.Node, opts SceneOptions) SceneNode {
	sn := SceneNode{
		ID:       node.ID,
		Selected: node.ID == opts.SelectedID,
	}

	def, err := workflow.TypeDef(node.Type)
	if err != nil {
		// Unknown types still render, flagged, so the rest of the
		// graph stays usable.
		sn.Unknown = true
		sn.Title = "⚠ " + node.Type
		sn.Preview = "unknown node type"
	} else {
		sn.Title = def.Icon + " " + def.DisplayName
		sn.Category = def.Category
		sn.Preview = configPreview(node.Data)
	}

	sn.Box = nodeBoxFor(node.Position, sn.Title, sn.Preview)
	if sn.Unknown || def.Category != workflow.CategoryTrigger {
		sn.Input = InputAnchor(sn.Box)
		sn.HasInput = true
	}
	sn.Outputs = OutputAnchors(sn.Box, def.Branching)

	if opts.Overlay != nil {
		if status, ok := opts.Overlay.NodeStatus(node.ID); ok {
			sn.Status = status
			sn.HasStatus = true
		}
	}

	return sn
}

// previewKeys is the priority order for the one-line config preview.
// The first key present in the node's data wins.
var previewKeys = []string{
	"command",
	"pattern",
	"metric",
	"channel",
	"duration_seconds",
	"service_name",
	"message",
	"expression",
}

// configPreview summarizes a node's configuration in one line. A
// metric preview folds in the operator and threshold so the check
// reads as written.
func configPreview(data map[string]interface{}) string {
	if len(data) == 0 {
		return ""
	}
	for _, key := range previewKeys {
		value, ok := data[key]
		if !ok {
			continue
		}
		text := workflow.StringFieldValue(value)
		if text == "" {
			continue
		}
		switch key {
		case "metric":
			op := workflow.StringFieldValue(data["operator"])
			threshold := workflow.StringFieldValue(data["threshold"])
			if op != "" && threshold != "" {
				text = text + " " + op + " " + threshold
			}
		case "duration_seconds":
			text += "s"
		}
		return truncatePreview(text)
	}
	return ""
}

func truncatePreview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= previewChars {
		return s
	}
	return string(runes[:previewChars-1]) + "…"
}

// curveSteps picks a sample count dense enough that the rasterized
// polyline has no gaps at cell resolution.
func curveSteps(from, to Point) int {
	dx := to.X - from.X
	if dx < 0 {
		dx = -dx
	}
	dy := to.Y - from.Y
	if dy < 0 {
		dy = -dy
	}
	cells := int(dx/unitsPerCol+dy/unitsPerRow) * 2
	if cells < 16 {
		return 16
	}
	if cells > 160 {
		return 160
	}
	return cells
}
