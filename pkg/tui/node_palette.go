package tui

import (
	"strings"

	"github.com/dshills/goterm"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// NodePalette is the add-node picker. It lists the node type catalog
// in registry order and narrows with a typed filter; picking a type is
// the only thing it does, the editor inserts the node.
type NodePalette struct {
	types         []workflow.NodeTypeDefinition
	selectedIndex int
	filterText    string
	visible       bool
	theme         *Theme

	x, y, width, height int
}

func NewNodePalette(theme *Theme) *NodePalette {
	return &NodePalette{
		types: workflow.TypeDefs(),
		theme: theme,
	}
}

// SetRegion positions the palette within the screen.
func (p *NodePalette) SetRegion(x, y, width, height int) {
	p.x, p.y = x, y
	p.width, p.height = width, height
}

// Show opens the palette with a clean filter.
func (p *NodePalette) Show() {
	p.visible = true
	p.selectedIndex = 0
	p.filterText = ""
}

// Hide closes the palette.
func (p *NodePalette) Hide() {
	p.visible = false
}

// IsVisible returns whether the palette is open.
func (p *NodePalette) IsVisible() bool {
	return p.visible
}

// Next moves selection down, wrapping.
func (p *NodePalette) Next() {
	filtered := p.filtered()
	if len(filtered) == 0 {
		return
	}
	p.selectedIndex = (p.selectedIndex + 1) % len(filtered)
}

// Previous moves selection up, wrapping.
func (p *NodePalette) Previous() {
	filtered := p.filtered()
	if len(filtered) == 0 {
		return
	}
	p.selectedIndex--
	if p.selectedIndex < 0 {
		p.selectedIndex = len(filtered) - 1
	}
}

// AppendFilter adds one typed rune to the filter.
func (p *NodePalette) AppendFilter(r rune) {
	p.filterText += string(r)
	p.selectedIndex = 0
}

// BackspaceFilter removes the last filter rune.
func (p *NodePalette) BackspaceFilter() {
	runes := []rune(p.filterText)
	if len(runes) == 0 {
		return
	}
	p.filterText = string(runes[:len(runes)-1])
	p.selectedIndex = 0
}

// filtered returns the catalog entries matching the filter,
// case-insensitive, on either the display name or the type name.
func (p *NodePalette) filtered() []workflow.NodeTypeDefinition {
	if p.filterText == "" {
		return p.types
	}

	needle := strings.ToLower(p.filterText)
	filtered := []workflow.NodeTypeDefinition{}
	for _, def := range p.types {
		if strings.Contains(strings.ToLower(def.DisplayName), needle) ||
			strings.Contains(strings.ToLower(def.Type), needle) {
			filtered = append(filtered, def)
		}
	}

	if p.selectedIndex >= len(filtered) {
		p.selectedIndex = 0
	}
	return filtered
}

// Selected returns the highlighted node type, if any survives the
// filter.
func (p *NodePalette) Selected() (workflow.NodeTypeDefinition, bool) {
	filtered := p.filtered()
	if len(filtered) == 0 {
		return workflow.NodeTypeDefinition{}, false
	}
	if p.selectedIndex >= len(filtered) {
		p.selectedIndex = 0
	}
	return filtered[p.selectedIndex], true
}

// Render draws the palette into its region.
func (p *NodePalette) Render(screen *goterm.Screen) {
	if !p.visible || p.width < 10 || p.height < 4 {
		return
	}

	t := p.theme
	right := p.x + p.width - 1
	bottom := p.y + p.height - 1

	blank := goterm.NewCell(' ', t.Fg, t.Bg, goterm.StyleNone)
	for row := p.y; row <= bottom; row++ {
		for col := p.x; col <= right; col++ {
			screen.SetCell(col, row, blank)
		}
	}

	screen.SetCell(p.x, p.y, goterm.NewCell('┌', t.BorderFg, t.Bg, goterm.StyleNone))
	screen.SetCell(right, p.y, goterm.NewCell('┐', t.BorderFg, t.Bg, goterm.StyleNone))
	screen.SetCell(p.x, bottom, goterm.NewCell('└', t.BorderFg, t.Bg, goterm.StyleNone))
	screen.SetCell(right, bottom, goterm.NewCell('┘', t.BorderFg, t.Bg, goterm.StyleNone))
	for col := p.x + 1; col < right; col++ {
		screen.SetCell(col, p.y, goterm.NewCell('─', t.BorderFg, t.Bg, goterm.StyleNone))
		screen.SetCell(col, bottom, goterm.NewCell('─', t.BorderFg, t.Bg, goterm.StyleNone))
	}
	for row := p.y + 1; row < bottom; row++ {
		screen.SetCell(p.x, row, goterm.NewCell('│', t.BorderFg, t.Bg, goterm.StyleNone))
		screen.SetCell(right, row, goterm.NewCell('│', t.BorderFg, t.Bg, goterm.StyleNone))
	}

	screen.DrawText(p.x+2, p.y, " Add Node ", t.SelectFg, t.Bg, goterm.StyleBold)

	innerX := p.x + 2
	innerW := p.width - 4

	filterLine := "filter: " + p.filterText + "▏"
	screen.DrawText(innerX, p.y+1, truncateCell(filterLine, innerW), t.Fg, t.Bg, goterm.StyleNone)

	filtered := p.filtered()
	row := p.y + 3
	for i, def := range filtered {
		if row >= bottom {
			break
		}
		line := def.Icon + " " + def.DisplayName
		pad := innerW - len([]rune(line)) - len(def.Category)
		if pad > 0 {
			line += strings.Repeat(" ", pad) + string(def.Category)
		}

		style := goterm.StyleNone
		fg := t.Fg
		if i == p.selectedIndex {
			style = goterm.StyleReverse
			fg = t.SelectFg
		}
		screen.DrawText(innerX, row, truncateCell(line, innerW), fg, t.Bg, style)
		row++
	}

	if len(filtered) == 0 {
		screen.DrawText(innerX, row, "no matching node types", t.DimFg, t.Bg, goterm.StyleDim)
	}
}
