package tui

import (
	"fmt"
	"math"

	"github.com/dshills/goterm"

	"github.com/carsch18/opsflow/pkg/execution"
)

var ErrInvalidZoomLevel = fmt.Errorf("zoom level must be between 0.5 and 2.0")

const (
	minZoom  = 0.5
	maxZoom  = 2.0
	zoomStep = 0.25
)

// Canvas rasterizes a Scene into a rectangular screen region. It owns
// only the viewport; every frame clears the region and redraws the
// whole scene, so there is no drawing state to fall out of sync.
type Canvas struct {
	X, Y          int // region origin in screen cells
	Width, Height int // region size in cells

	ViewportX float64 // workflow coords at the region's top-left
	ViewportY float64
	ZoomLevel float64

	theme *Theme
}

func NewCanvas(theme *Theme) *Canvas {
	return &Canvas{ZoomLevel: 1.0, theme: theme}
}

// SetRegion positions the canvas within the screen. Called on startup
// and whenever the terminal is resized.
func (c *Canvas) SetRegion(x, y, width, height int) {
	c.X, c.Y = x, y
	c.Width, c.Height = width, height
}

// Pan moves the viewport by whole cells. Negative coordinates are
// allowed; stored layouts can place nodes anywhere.
func (c *Canvas) Pan(deltaCols, deltaRows int) {
	c.ViewportX += float64(deltaCols) * unitsPerCol / c.ZoomLevel
	c.ViewportY += float64(deltaRows) * unitsPerRow / c.ZoomLevel
}

// Zoom sets the zoom level, keeping the workflow point at the region
// center fixed so the view does not jump.
func (c *Canvas) Zoom(level float64) error {
	if level < minZoom || level > maxZoom {
		return ErrInvalidZoomLevel
	}

	centerX := c.ViewportX + float64(c.Width)*unitsPerCol/(2.0*c.ZoomLevel)
	centerY := c.ViewportY + float64(c.Height)*unitsPerRow/(2.0*c.ZoomLevel)

	c.ZoomLevel = level

	c.ViewportX = centerX - float64(c.Width)*unitsPerCol/(2.0*c.ZoomLevel)
	c.ViewportY = centerY - float64(c.Height)*unitsPerRow/(2.0*c.ZoomLevel)
	return nil
}

// ZoomIn steps the zoom up one notch, stopping at the maximum.
func (c *Canvas) ZoomIn() {
	level := c.ZoomLevel + zoomStep
	if level > maxZoom {
		level = maxZoom
	}
	_ = c.Zoom(level)
}

// ZoomOut steps the zoom down one notch, stopping at the minimum.
func (c *Canvas) ZoomOut() {
	level := c.ZoomLevel - zoomStep
	if level < minZoom {
		level = minZoom
	}
	_ = c.Zoom(level)
}

// ResetView returns to 100% zoom at the origin.
func (c *Canvas) ResetView() {
	c.ZoomLevel = 1.0
	c.ViewportX = 0
	c.ViewportY = 0
}

// FitAll adjusts zoom and viewport so every node in the scene is
// visible, with a little margin.
func (c *Canvas) FitAll(scene Scene) {
	if len(scene.Nodes) == 0 || c.Width == 0 || c.Height == 0 {
		c.ResetView()
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, sn := range scene.Nodes {
		minX = math.Min(minX, sn.Box.X)
		minY = math.Min(minY, sn.Box.Y)
		maxX = math.Max(maxX, sn.Box.X+sn.Box.Width)
		maxY = math.Max(maxY, sn.Box.Y+sn.Box.Height)
	}

	contentWidth := maxX - minX
	contentHeight := maxY - minY
	if contentWidth <= 0 || contentHeight <= 0 {
		c.ResetView()
		return
	}

	zoomX := float64(c.Width) * unitsPerCol / contentWidth
	zoomY := float64(c.Height) * unitsPerRow / contentHeight
	zoom := math.Min(zoomX, zoomY) * 0.9
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	c.ZoomLevel = zoom

	centerX := minX + contentWidth/2
	centerY := minY + contentHeight/2
	c.ViewportX = centerX - float64(c.Width)*unitsPerCol/(2.0*c.ZoomLevel)
	c.ViewportY = centerY - float64(c.Height)*unitsPerRow/(2.0*c.ZoomLevel)
}

// CenterOn pans so the given workflow point sits at the region center.
func (c *Canvas) CenterOn(p Point) {
	c.ViewportX = p.X - float64(c.Width)*unitsPerCol/(2.0*c.ZoomLevel)
	c.ViewportY = p.Y - float64(c.Height)*unitsPerRow/(2.0*c.ZoomLevel)
}

// toScreen maps a workflow-space point to a screen cell.
func (c *Canvas) toScreen(p Point) (int, int) {
	col := c.X + int(math.Round((p.X-c.ViewportX)*c.ZoomLevel/unitsPerCol))
	row := c.Y + int(math.Round((p.Y-c.ViewportY)*c.ZoomLevel/unitsPerRow))
	return col, row
}

func (c *Canvas) inRegion(col, row int) bool {
	return col >= c.X && row >= c.Y && col < c.X+c.Width && row < c.Y+c.Height
}

func (c *Canvas) put(screen *goterm.Screen, col, row int, r rune, fg goterm.Color, style goterm.Style) {
	if !c.inRegion(col, row) {
		return
	}
	screen.SetCell(col, row, goterm.NewCell(r, fg, c.theme.Bg, style))
}

func (c *Canvas) text(screen *goterm.Screen, col, row int, s string, fg goterm.Color, style goterm.Style, maxCol int) {
	for i, r := range []rune(s) {
		x := col + i
		if x >= maxCol {
			return
		}
		c.put(screen, x, row, r, fg, style)
	}
}

// Draw renders one full frame: clear the region, then nodes, then
// edges over them. Nothing from the previous frame survives.
func (c *Canvas) Draw(screen *goterm.Screen, scene Scene) {
	c.clearRegion(screen)

	if scene.Placeholder != nil {
		c.drawPlaceholder(screen, scene.Placeholder)
		return
	}

	for i := range scene.Nodes {
		c.drawNode(screen, &scene.Nodes[i])
	}
	for i := range scene.Edges {
		c.drawEdge(screen, &scene.Edges[i])
	}
}

func (c *Canvas) clearRegion(screen *goterm.Screen) {
	blank := goterm.NewCell(' ', c.theme.Fg, c.theme.Bg, goterm.StyleNone)
	for row := c.Y; row < c.Y+c.Height; row++ {
		for col := c.X; col < c.X+c.Width; col++ {
			screen.SetCell(col, row, blank)
		}
	}
	// Sparse dot grid so panning reads against empty space.
	for row := c.Y; row < c.Y+c.Height; row += 4 {
		for col := c.X; col < c.X+c.Width; col += 8 {
			screen.SetCell(col, row, goterm.NewCell('·', c.theme.GridFg, c.theme.Bg, goterm.StyleDim))
		}
	}
}

func (c *Canvas) drawPlaceholder(screen *goterm.Screen, ph *ScenePlaceholder) {
	lines := []string{
		"⚠  workflow not found",
		"",
		"id: " + ph.WorkflowID,
	}
	if ph.Message != "" {
		lines = append(lines, ph.Message)
	}

	row := c.Y + c.Height/2 - len(lines)/2
	for i, line := range lines {
		col := c.X + (c.Width-len([]rune(line)))/2
		if col < c.X {
			col = c.X
		}
		style := goterm.StyleBold
		if i > 0 {
			style = goterm.StyleDim
		}
		c.text(screen, col, row+i, line, c.theme.Fg, style, c.X+c.Width)
	}
}

func (c *Canvas) drawNode(screen *goterm.Screen, sn *SceneNode) {
	col0, row0 := c.toScreen(Point{X: sn.Box.X, Y: sn.Box.Y})
	cols := int(math.Round(sn.Box.Width * c.ZoomLevel / unitsPerCol))
	rows := int(math.Round(sn.Box.Height * c.ZoomLevel / unitsPerRow))
	if cols < 6 {
		cols = 6
	}
	if rows < 2 {
		rows = 2
	}
	if col0 >= c.X+c.Width || row0 >= c.Y+c.Height || col0+cols <= c.X || row0+rows <= c.Y {
		return
	}

	borderFg := c.theme.BorderFg
	borderStyle := goterm.StyleNone
	if sn.Unknown {
		borderFg = c.theme.DimFg
		borderStyle = goterm.StyleDim
	}
	if sn.HasStatus {
		borderFg = c.theme.StatusColor(sn.Status)
		borderStyle = c.theme.StatusStyle(sn.Status)
	}

	tl, tr, bl, br, hz, vt := '┌', '┐', '└', '┘', '─', '│'
	if sn.Selected {
		tl, tr, bl, br, hz, vt = '╔', '╗', '╚', '╝', '═', '║'
		if !sn.HasStatus {
			borderFg = c.theme.SelectFg
		}
	}

	right := col0 + cols - 1
	bottom := row0 + rows - 1

	c.put(screen, col0, row0, tl, borderFg, borderStyle)
	c.put(screen, right, row0, tr, borderFg, borderStyle)
	c.put(screen, col0, bottom, bl, borderFg, borderStyle)
	c.put(screen, right, bottom, br, borderFg, borderStyle)
	for x := col0 + 1; x < right; x++ {
		c.put(screen, x, row0, hz, borderFg, borderStyle)
		c.put(screen, x, bottom, hz, borderFg, borderStyle)
	}
	for y := row0 + 1; y < bottom; y++ {
		c.put(screen, col0, y, vt, borderFg, borderStyle)
		c.put(screen, right, y, vt, borderFg, borderStyle)
	}

	if sn.HasStatus && cols >= 8 {
		c.put(screen, right-1, row0, StatusGlyph(sn.Status), borderFg, borderStyle)
	}

	titleFg := c.theme.CategoryColor(sn.Category)
	if sn.Unknown {
		titleFg = c.theme.StatusColor(execution.StatusFailed)
	}
	if rows >= 3 {
		c.text(screen, col0+2, row0+1, sn.Title, titleFg, goterm.StyleBold, right-1)
	}
	if rows >= 4 && sn.Preview != "" {
		c.text(screen, col0+2, row0+2, sn.Preview, c.theme.DimFg, goterm.StyleDim, right-1)
	}

	c.drawAnchors(screen, sn, col0, right, row0, bottom)
}

// drawAnchors marks the connection points on the border: one inlet on
// the left, outlets on the right. Branch outlets carry their handle
// name just inside the box.
func (c *Canvas) drawAnchors(screen *goterm.Screen, sn *SceneNode, col0, right, row0, bottom int) {
	clampRow := func(row int) int {
		if row <= row0 {
			row = row0 + 1
		}
		if row >= bottom {
			row = bottom - 1
		}
		return row
	}

	if sn.HasInput {
		_, row := c.toScreen(sn.Input.Point)
		c.put(screen, col0, clampRow(row), '◦', c.theme.BorderFg, goterm.StyleNone)
	}

	for _, anchor := range sn.Outputs {
		_, row := c.toScreen(anchor.Point)
		row = clampRow(row)
		c.put(screen, right, row, '●', c.theme.BorderFg, goterm.StyleNone)
		if anchor.Label != "" {
			col := right - 1 - len([]rune(anchor.Label))
			if col > col0 {
				c.text(screen, col, row, anchor.Label, c.theme.LabelFg, goterm.StyleDim, right)
			}
		}
	}
}

func (c *Canvas) drawEdge(screen *goterm.Screen, se *SceneEdge) {
	fg := c.theme.EdgeFg
	style := goterm.StyleDim
	if se.Highlight {
		fg = c.theme.StatusColor(se.Status)
		style = c.theme.StatusStyle(se.Status)
	}
	if se.Selected {
		fg = c.theme.SelectFg
		style = goterm.StyleBold
	}

	// The first sample sits on the source anchor; leave that cell to
	// the node so the outlet marker stays visible.
	prevCol, prevRow := math.MinInt32, math.MinInt32
	for i := 1; i < len(se.Points); i++ {
		col, row := c.toScreen(se.Points[i])
		if col == prevCol && row == prevRow {
			continue
		}
		prevCol, prevRow = col, row

		r := '·'
		if i == len(se.Points)-1 {
			r = '▶'
		}
		c.put(screen, col, row, r, fg, style)
	}

	if se.Label != "" {
		col, row := c.toScreen(se.LabelAt)
		col -= len([]rune(se.Label)) / 2
		c.text(screen, col, row, se.Label, c.theme.LabelFg, goterm.StyleNone, c.X+c.Width)
	}
}
