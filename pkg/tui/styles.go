package tui

import (
	"github.com/dshills/goterm"

	"github.com/carsch18/opsflow/pkg/execution"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// Theme holds every color the editor draws with. One instance is built
// at startup and shared read-only by all components.
type Theme struct {
	Fg       goterm.Color
	Bg       goterm.Color
	GridFg   goterm.Color
	BorderFg goterm.Color
	SelectFg goterm.Color
	EdgeFg   goterm.Color
	LabelFg  goterm.Color
	DimFg    goterm.Color

	category map[workflow.Category]goterm.Color
	status   map[execution.Status]goterm.Color
}

// DefaultTheme is the dark palette the editor ships with.
func DefaultTheme() *Theme {
	return &Theme{
		Fg:       goterm.ColorRGB(220, 220, 220),
		Bg:       goterm.ColorDefault(),
		GridFg:   goterm.ColorRGB(60, 60, 60),
		BorderFg: goterm.ColorRGB(130, 130, 130),
		SelectFg: goterm.ColorRGB(255, 255, 255),
		EdgeFg:   goterm.ColorRGB(110, 160, 210),
		LabelFg:  goterm.ColorRGB(200, 200, 140),
		DimFg:    goterm.ColorRGB(140, 140, 140),
		category: map[workflow.Category]goterm.Color{
			workflow.CategoryTrigger:      goterm.ColorRGB(255, 191, 0),
			workflow.CategoryAction:       goterm.ColorRGB(100, 180, 255),
			workflow.CategoryLogic:        goterm.ColorRGB(190, 140, 255),
			workflow.CategoryNotification: goterm.ColorRGB(120, 220, 120),
			workflow.CategorySafety:       goterm.ColorRGB(255, 110, 110),
		},
		status: map[execution.Status]goterm.Color{
			execution.StatusPending: goterm.ColorRGB(130, 130, 130),
			execution.StatusRunning: goterm.ColorRGB(255, 200, 80),
			execution.StatusSuccess: goterm.ColorRGB(90, 200, 90),
			execution.StatusFailed:  goterm.ColorRGB(230, 80, 80),
			execution.StatusSkipped: goterm.ColorRGB(100, 100, 100),
		},
	}
}

// CategoryColor returns the header color for a node category. Unknown
// categories fall back to the plain foreground.
func (t *Theme) CategoryColor(cat workflow.Category) goterm.Color {
	if c, ok := t.category[cat]; ok {
		return c
	}
	return t.Fg
}

// StatusColor returns the border color for an execution status.
func (t *Theme) StatusColor(status execution.Status) goterm.Color {
	if c, ok := t.status[status]; ok {
		return c
	}
	return t.BorderFg
}

// StatusStyle returns the text style for an execution status. Running
// nodes pulse so an operator can spot live work at a glance.
func (t *Theme) StatusStyle(status execution.Status) goterm.Style {
	switch status {
	case execution.StatusRunning:
		return goterm.StyleSlowBlink
	case execution.StatusFailed:
		return goterm.StyleBold
	case execution.StatusSkipped, execution.StatusPending:
		return goterm.StyleDim
	default:
		return goterm.StyleNone
	}
}

// StatusGlyph returns the one-rune marker drawn in a node's border.
func StatusGlyph(status execution.Status) rune {
	switch status {
	case execution.StatusRunning:
		return '⟳'
	case execution.StatusSuccess:
		return '✓'
	case execution.StatusFailed:
		return '✗'
	case execution.StatusSkipped:
		return '⊘'
	default:
		return '○'
	}
}
