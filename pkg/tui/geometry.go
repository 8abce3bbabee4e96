package tui

import (
	"github.com/carsch18/opsflow/pkg/workflow"
)

// Node positions use workflow units, the same coordinate space the
// engine stores. The viewport maps workflow units to terminal cells at
// draw time; geometry stays in floats so anchor math is exact.
const (
	unitsPerCol = 8.0
	unitsPerRow = 16.0
)

// Point is a coordinate in workflow space.
type Point struct {
	X float64
	Y float64
}

// NodeBox is a node's rectangle in workflow space. Width and height
// are whole multiples of the cell size so rasterization lands on cell
// boundaries.
type NodeBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether a point falls inside the box.
func (b NodeBox) Contains(p Point) bool {
	return p.X >= b.X && p.X < b.X+b.Width &&
		p.Y >= b.Y && p.Y < b.Y+b.Height
}

// Center returns the box midpoint.
func (b NodeBox) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Anchor is a connection point on a node's border. Label carries
// "true"/"false" for branching outputs and is empty otherwise.
type Anchor struct {
	Point
	Label string
}

// InputAnchor returns the single input anchor at left-center. Trigger
// nodes have no input; callers skip them.
func InputAnchor(box NodeBox) Anchor {
	return Anchor{Point: Point{X: box.X, Y: box.Y + box.Height/2}}
}

// OutputAnchors returns a node's output anchors: one at right-center,
// or for branching nodes two labeled anchors at 35% and 65% of the
// node height.
func OutputAnchors(box NodeBox, branching bool) []Anchor {
	if !branching {
		return []Anchor{
			{Point: Point{X: box.X + box.Width, Y: box.Y + box.Height/2}},
		}
	}
	return []Anchor{
		{Point: Point{X: box.X + box.Width, Y: box.Y + 0.35*box.Height}, Label: workflow.HandleTrue},
		{Point: Point{X: box.X + box.Width, Y: box.Y + 0.65*box.Height}, Label: workflow.HandleFalse},
	}
}

// OutputAnchorFor picks the output anchor matching a source handle.
// An empty handle means default. A true/false handle on a
// non-branching node falls back to the default anchor rather than
// inventing one; the model rejects such edges before they get here.
func OutputAnchorFor(box NodeBox, branching bool, handle string) Anchor {
	anchors := OutputAnchors(box, branching)
	for _, a := range anchors {
		if a.Label == handle {
			return a
		}
	}
	return anchors[0]
}

// EdgeCurve is the cubic connector between two anchors. Both control
// points sit at the horizontal midpoint, one at the source height and
// one at the target height. That keeps the S shape smooth regardless
// of where the nodes sit relative to each other, including a target
// left of its source.
type EdgeCurve struct {
	Start    Point
	Control1 Point
	Control2 Point
	End      Point
}

// NewEdgeCurve builds the connector curve from source to target.
func NewEdgeCurve(from, to Point) EdgeCurve {
	mx := (from.X + to.X) / 2
	return EdgeCurve{
		Start:    from,
		Control1: Point{X: mx, Y: from.Y},
		Control2: Point{X: mx, Y: to.Y},
		End:      to,
	}
}

// At evaluates the curve at u in [0, 1].
func (c EdgeCurve) At(u float64) Point {
	v := 1 - u
	b0 := v * v * v
	b1 := 3 * v * v * u
	b2 := 3 * v * u * u
	b3 := u * u * u
	return Point{
		X: b0*c.Start.X + b1*c.Control1.X + b2*c.Control2.X + b3*c.End.X,
		Y: b0*c.Start.Y + b1*c.Control1.Y + b2*c.Control2.Y + b3*c.End.Y,
	}
}

// Sample returns steps+1 points along the curve, endpoints included.
func (c EdgeCurve) Sample(steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	points := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		points = append(points, c.At(float64(i)/float64(steps)))
	}
	return points
}

// LabelPoint is where an edge label renders: the curve's vertical
// midpoint, lifted half a row so the text does not sit on the line.
func (c EdgeCurve) LabelPoint() Point {
	mid := c.At(0.5)
	return Point{X: mid.X, Y: mid.Y - unitsPerRow/2}
}
