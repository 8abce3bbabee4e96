package tui

import (
	"github.com/carsch18/opsflow/pkg/workflow"
)

// Node box sizing in cells. Width stretches to the longer of header
// and preview, within bounds; height is fixed: border, header line,
// preview line, border.
const (
	minNodeCols  = 18
	maxNodeCols  = 34
	nodeRows     = 4
	nodePadCols  = 4
	previewChars = 24
)

// Auto-layout spacing in workflow units. Remediation pipelines read
// left to right, so layers advance along X.
const (
	layoutStartX   = 40.0
	layoutStartY   = 32.0
	layerGapUnits  = 48.0
	columnGapUnits = 32.0
)

// nodeBoxFor sizes a node's box from its rendered text. The box
// anchors at the node's stored position.
func nodeBoxFor(pos workflow.Position, title, preview string) NodeBox {
	cols := len([]rune(title))
	if p := len([]rune(preview)); p > cols {
		cols = p
	}
	cols += nodePadCols
	if cols < minNodeCols {
		cols = minNodeCols
	}
	if cols > maxNodeCols {
		cols = maxNodeCols
	}

	return NodeBox{
		X:      pos.X,
		Y:      pos.Y,
		Width:  float64(cols) * unitsPerCol,
		Height: nodeRows * unitsPerRow,
	}
}

// AutoLayoutPositions computes fresh positions for every node using
// layered topological ordering: a node's layer is the longest edge
// path reaching it, layers advance along X, and nodes within a layer
// stack down the Y axis. Nodes on a cycle keep their current position.
// The caller applies the returned positions through the controller.
func AutoLayoutPositions(wf *workflow.Workflow) map[string]workflow.Position {
	positions := make(map[string]workflow.Position, len(wf.Nodes))
	if len(wf.Nodes) == 0 {
		return positions
	}

	adjacency := make(map[string][]string, len(wf.Nodes))
	inDegree := make(map[string]int, len(wf.Nodes))
	for _, node := range wf.Nodes {
		adjacency[node.ID] = nil
		inDegree[node.ID] = 0
	}
	for _, edge := range wf.Edges {
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	// Kahn's algorithm with longest-path layer assignment.
	layerOf := make(map[string]int, len(wf.Nodes))
	queue := make([]string, 0, len(wf.Nodes))
	for _, node := range wf.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
			layerOf[node.ID] = 0
		}
	}

	maxLayer := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if candidate := layerOf[current] + 1; candidate > layerOf[next] {
				layerOf[next] = candidate
				if candidate > maxLayer {
					maxLayer = candidate
				}
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// Group by layer, preserving the workflow's node order within
	// each layer so layouts stay stable run to run.
	layers := make([][]*workflow.Node, maxLayer+1)
	for _, node := range wf.Nodes {
		if inDegree[node.ID] > 0 {
			// Part of a cycle; leave it where the user put it.
			positions[node.ID] = node.Position
			continue
		}
		l := layerOf[node.ID]
		layers[l] = append(layers[l], node)
	}

	boxWidth := float64(maxNodeCols) * unitsPerCol
	boxHeight := float64(nodeRows) * unitsPerRow

	x := layoutStartX
	for _, layer := range layers {
		y := layoutStartY
		for _, node := range layer {
			positions[node.ID] = workflow.Position{X: x, Y: y}
			y += boxHeight + columnGapUnits
		}
		x += boxWidth + layerGapUnits
	}

	return positions
}
