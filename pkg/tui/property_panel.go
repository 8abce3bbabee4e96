package tui

import (
	"errors"
	"fmt"

	"github.com/dshills/goterm"

	opserrors "github.com/carsch18/opsflow/pkg/errors"
	"github.com/carsch18/opsflow/pkg/execution"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// PropertyPanel edits one node's configuration. Fields come from the
// node type's schema, in schema order; saving hands back a complete
// data map built only from those fields, so keys outside the schema do
// not survive a save.
type PropertyPanel struct {
	nodeID  string
	title   string
	fields  []*formField
	focus   int
	editing bool // expanded edit for multi_select and array widgets
	scroll  int
	visible bool
	typeMsg string // shown instead of fields for unknown node types
	theme   *Theme

	x, y, width, height int
}

func NewPropertyPanel(theme *Theme) *PropertyPanel {
	return &PropertyPanel{theme: theme}
}

// SetRegion positions the panel within the screen.
func (p *PropertyPanel) SetRegion(x, y, width, height int) {
	p.x, p.y = x, y
	p.width, p.height = width, height
}

// Open binds the panel to a node. Unknown node types open an empty
// panel carrying an explanation; the editor stays usable.
func (p *PropertyPanel) Open(node *workflow.Node) {
	p.nodeID = node.ID
	p.fields = nil
	p.focus = 0
	p.scroll = 0
	p.editing = false
	p.typeMsg = ""
	p.visible = true

	def, err := workflow.TypeDef(node.Type)
	if err != nil {
		if errors.Is(err, opserrors.ErrUnknownNodeType) {
			p.title = node.Type
			p.typeMsg = fmt.Sprintf("unknown node type %q; no editable configuration", node.Type)
			return
		}
		p.title = node.Type
		p.typeMsg = err.Error()
		return
	}

	p.title = def.Icon + " " + def.DisplayName
	p.fields = make([]*formField, 0, len(def.Schema))
	for _, prop := range def.Schema {
		p.fields = append(p.fields, newFormField(prop, node.Data))
	}
}

func (p *PropertyPanel) Close() {
	p.visible = false
	p.nodeID = ""
	p.fields = nil
	p.typeMsg = ""
}

func (p *PropertyPanel) Visible() bool {
	return p.visible
}

// NodeID reports which node the panel is editing.
func (p *PropertyPanel) NodeID() string {
	return p.nodeID
}

// SaveData assembles the coerced data map for the bound node. The map
// holds exactly the schema's keys. Returns false when there is nothing
// to save, which includes unknown node types.
func (p *PropertyPanel) SaveData() (map[string]interface{}, bool) {
	if !p.visible || p.typeMsg != "" || len(p.fields) == 0 {
		return nil, false
	}
	data := make(map[string]interface{}, len(p.fields))
	for _, f := range p.fields {
		data[f.def.Key] = f.def.Coerce(f.rawValue())
	}
	return data, true
}

// NextField moves focus down one field, wrapping.
func (p *PropertyPanel) NextField() {
	if len(p.fields) == 0 {
		return
	}
	p.editing = false
	p.focus = (p.focus + 1) % len(p.fields)
}

// PrevField moves focus up one field, wrapping.
func (p *PropertyPanel) PrevField() {
	if len(p.fields) == 0 {
		return
	}
	p.editing = false
	p.focus = (p.focus - 1 + len(p.fields)) % len(p.fields)
}

func (p *PropertyPanel) focused() *formField {
	if p.focus < 0 || p.focus >= len(p.fields) {
		return nil
	}
	return p.fields[p.focus]
}

// HandleKey routes one key to the form. Returns false for keys the
// panel does not consume so the editor can act on them instead.
func (p *PropertyPanel) HandleKey(key string) bool {
	if !p.visible {
		return false
	}
	f := p.focused()
	if f == nil {
		return false
	}

	switch key {
	case "Escape":
		if p.editing {
			p.editing = false
			return true
		}
		return false

	case "Tab", "Down":
		if p.editing && key == "Down" {
			f.nextOption()
			return true
		}
		p.NextField()
		return true

	case "Shift-Tab", "Up":
		if p.editing && key == "Up" {
			f.prevOption()
			return true
		}
		p.PrevField()
		return true

	case "Enter":
		switch f.def.Kind {
		case workflow.KindBoolean:
			f.toggle()
		case workflow.KindMultiSelect, workflow.KindArray:
			p.editing = !p.editing
		default:
			p.NextField()
		}
		return true

	case " ":
		switch f.def.Kind {
		case workflow.KindBoolean:
			f.toggle()
			return true
		case workflow.KindMultiSelect:
			if p.editing {
				f.toggle()
				return true
			}
		}

	case "Left":
		switch f.def.Kind {
		case workflow.KindSelect:
			f.prevOption()
		case workflow.KindString, workflow.KindTextarea, workflow.KindNumber, workflow.KindArray:
			f.moveCursor(-1)
		}
		return true

	case "Right":
		switch f.def.Kind {
		case workflow.KindSelect:
			f.nextOption()
		case workflow.KindString, workflow.KindTextarea, workflow.KindNumber, workflow.KindArray:
			f.moveCursor(1)
		}
		return true

	case "Backspace":
		f.backspace()
		return true

	case "Ctrl-a":
		if f.def.Kind == workflow.KindArray {
			f.addRow()
			p.editing = true
			return true
		}

	case "Ctrl-x":
		if f.def.Kind == workflow.KindArray {
			f.removeRow()
			return true
		}
	}

	// Printable characters go into the text buffer.
	runes := []rune(key)
	if len(runes) == 1 && runes[0] >= ' ' {
		switch f.def.Kind {
		case workflow.KindString, workflow.KindTextarea, workflow.KindNumber:
			f.insertRune(runes[0])
			return true
		case workflow.KindArray:
			if p.editing {
				f.insertRune(runes[0])
				return true
			}
		}
	}

	return false
}

// Render draws the panel into its region.
func (p *PropertyPanel) Render(screen *goterm.Screen) {
	if !p.visible || p.width < 8 || p.height < 4 {
		return
	}

	t := p.theme
	p.clear(screen)
	p.border(screen)

	header := truncateCell(" "+p.title+" ", p.width-4)
	screen.DrawText(p.x+2, p.y, header, t.SelectFg, t.Bg, goterm.StyleBold)

	innerX := p.x + 2
	innerW := p.width - 4
	row := p.y + 2

	if p.typeMsg != "" {
		screen.DrawText(innerX, row, truncateCell(p.typeMsg, innerW), t.DimFg, t.Bg, goterm.StyleDim)
		return
	}

	lines := p.formLines(innerW)
	p.clampScroll(len(lines))

	maxRows := p.height - 4
	for i := p.scroll; i < len(lines) && row < p.y+2+maxRows; i++ {
		line := lines[i]
		screen.DrawText(innerX, row, truncateCell(line.text, innerW), line.fg(t), t.Bg, line.style)
		row++
	}

	hint := "^S save · ^D dup · ^Q del · esc close"
	screen.DrawText(innerX, p.y+p.height-2, truncateCell(hint, innerW), t.DimFg, t.Bg, goterm.StyleDim)
}

// formLine is one rendered row of the form body.
type formLine struct {
	text    string
	style   goterm.Style
	kind    lineKind
	focused bool
}

type lineKind int

const (
	lineLabel lineKind = iota
	lineValue
	lineHint
	lineOption
)

func (l formLine) fg(t *Theme) goterm.Color {
	switch {
	case l.kind == lineHint:
		return t.StatusColor(execution.StatusFailed)
	case l.kind == lineLabel && l.focused:
		return t.SelectFg
	case l.kind == lineLabel:
		return t.Fg
	case l.focused:
		return t.SelectFg
	default:
		return t.DimFg
	}
}

// formLines flattens the fields into display rows: label, value (or
// option/row list when expanded), then any validation hint.
func (p *PropertyPanel) formLines(width int) []formLine {
	lines := make([]formLine, 0, len(p.fields)*3)

	for i, f := range p.fields {
		focused := i == p.focus
		label := f.displayLabel()

		labelStyle := goterm.StyleNone
		if focused {
			labelStyle = goterm.StyleBold
		}
		lines = append(lines, formLine{text: label, style: labelStyle, kind: lineLabel, focused: focused})

		expanded := focused && p.editing
		switch {
		case expanded && f.def.Kind == workflow.KindMultiSelect:
			for j, opt := range f.def.Options {
				mark := "[ ] "
				if f.picked[j] {
					mark = "[x] "
				}
				style := goterm.StyleNone
				if j == f.optIdx {
					style = goterm.StyleReverse
				}
				lines = append(lines, formLine{text: "  " + mark + opt, style: style, kind: lineOption, focused: focused})
			}

		case expanded && f.def.Kind == workflow.KindArray:
			for j, rowText := range f.rows {
				style := goterm.StyleNone
				display := rowText
				if j == f.rowIdx {
					style = goterm.StyleReverse
					display = withCursor(rowText, f.cursor)
				}
				lines = append(lines, formLine{text: "  - " + display, style: style, kind: lineOption, focused: focused})
			}

		default:
			value := f.displayValue()
			style := goterm.StyleNone
			if focused {
				switch f.def.Kind {
				case workflow.KindString, workflow.KindTextarea, workflow.KindNumber:
					value = withCursor(f.text, f.cursor)
					style = goterm.StyleReverse
				default:
					style = goterm.StyleBold
				}
			}
			lines = append(lines, formLine{text: "  " + value, style: style, kind: lineValue, focused: focused})
		}

		if focused && f.errText != "" {
			lines = append(lines, formLine{text: "  ! " + f.errText, style: goterm.StyleNone, kind: lineHint, focused: focused})
		} else if focused && f.def.Description != "" {
			lines = append(lines, formLine{text: "  " + truncateCell(f.def.Description, width-2), style: goterm.StyleDim, kind: lineOption, focused: focused})
		}

		lines = append(lines, formLine{text: "", kind: lineOption})
	}

	return lines
}

func (p *PropertyPanel) clampScroll(total int) {
	maxRows := p.height - 4
	if maxRows < 1 {
		maxRows = 1
	}

	// Keep the focused field's label on screen.
	target := 0
	for i, f := range p.fields {
		if i == p.focus {
			break
		}
		target += 2 // label + value
		if f.errText != "" || f.def.Description != "" {
			target++
		}
		target++ // spacer
	}
	if target < p.scroll {
		p.scroll = target
	}
	if target >= p.scroll+maxRows {
		p.scroll = target - maxRows + 1
	}
	if p.scroll > total-1 {
		p.scroll = total - 1
	}
	if p.scroll < 0 {
		p.scroll = 0
	}
}

func (p *PropertyPanel) clear(screen *goterm.Screen) {
	blank := goterm.NewCell(' ', p.theme.Fg, p.theme.Bg, goterm.StyleNone)
	for row := p.y; row < p.y+p.height; row++ {
		for col := p.x; col < p.x+p.width; col++ {
			screen.SetCell(col, row, blank)
		}
	}
}

func (p *PropertyPanel) border(screen *goterm.Screen) {
	t := p.theme
	right := p.x + p.width - 1
	bottom := p.y + p.height - 1

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
}

// withCursor marks the insertion point with a block for display.
func withCursor(s string, cursor int) string {
	runes := []rune(s)
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(runes) {
		return s + "▏"
	}
	out := make([]rune, 0, len(runes)+1)
	out = append(out, runes[:cursor]...)
	out = append(out, '▏')
	out = append(out, runes[cursor:]...)
	return string(out)
}

func truncateCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
