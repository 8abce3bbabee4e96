package tui

import (
	"testing"

	"github.com/carsch18/opsflow/pkg/workflow"
)

// TestNodePaletteListsCatalog verifies the palette opens over the full
// type catalog with the first entry selected.
func TestNodePaletteListsCatalog(t *testing.T) {
	palette := NewNodePalette(DefaultTheme())
	palette.Show()

	if !palette.IsVisible() {
		t.Fatal("palette should be visible after Show")
	}
	if got, want := len(palette.filtered()), len(workflow.TypeDefs()); got != want {
		t.Errorf("unfiltered palette lists %d types, want %d", got, want)
	}

	def, ok := palette.Selected()
	if !ok {
		t.Fatal("a type should be selected")
	}
	if def.Type != workflow.TypeDefs()[0].Type {
		t.Errorf("initial selection = %s, want first catalog entry", def.Type)
	}
}

// TestNodePaletteFilter verifies case-insensitive substring filtering
// over display name and type name.
func TestNodePaletteFilter(t *testing.T) {
	palette := NewNodePalette(DefaultTheme())
	palette.Show()

	for _, r := range "SLACK" {
		palette.AppendFilter(r)
	}
	matches := palette.filtered()
	if len(matches) != 1 || matches[0].Type != "notify_slack" {
		t.Fatalf("filter SLACK matched %v", typeNames(matches))
	}

	def, ok := palette.Selected()
	if !ok || def.Type != "notify_slack" {
		t.Errorf("Selected() = %v, %v", def.Type, ok)
	}

	// Type names match too, not just display names.
	palette.Show()
	for _, r := range "metric_" {
		palette.AppendFilter(r)
	}
	matches = palette.filtered()
	if len(matches) != 1 || matches[0].Type != "metric_check" {
		t.Errorf("filter metric_ matched %v", typeNames(matches))
	}
}

// TestNodePaletteFilterNoMatch verifies an impossible filter leaves
// nothing selected rather than a stale entry.
func TestNodePaletteFilterNoMatch(t *testing.T) {
	palette := NewNodePalette(DefaultTheme())
	palette.Show()

	for _, r := range "zzz" {
		palette.AppendFilter(r)
	}
	if _, ok := palette.Selected(); ok {
		t.Error("Selected() should report nothing for an empty match set")
	}

	// Erasing the filter restores the catalog.
	palette.BackspaceFilter()
	palette.BackspaceFilter()
	palette.BackspaceFilter()
	if _, ok := palette.Selected(); !ok {
		t.Error("selection should return once the filter is erased")
	}
}

// TestNodePaletteCycle verifies Next and Previous wrap around the
// filtered list.
func TestNodePaletteCycle(t *testing.T) {
	palette := NewNodePalette(DefaultTheme())
	palette.Show()

	n := len(palette.filtered())
	for i := 0; i < n; i++ {
		palette.Next()
	}
	def, _ := palette.Selected()
	if def.Type != workflow.TypeDefs()[0].Type {
		t.Errorf("full cycle should wrap to the first entry, got %s", def.Type)
	}

	palette.Previous()
	def, _ = palette.Selected()
	if def.Type != workflow.TypeDefs()[n-1].Type {
		t.Errorf("Previous from the top should wrap to the last entry, got %s", def.Type)
	}
}

// TestNodePaletteShowResets verifies reopening clears filter and
// selection state.
func TestNodePaletteShowResets(t *testing.T) {
	palette := NewNodePalette(DefaultTheme())
	palette.Show()
	for _, r := range "wait" {
		palette.AppendFilter(r)
	}
	palette.Next()
	palette.Hide()

	palette.Show()
	if got, want := len(palette.filtered()), len(workflow.TypeDefs()); got != want {
		t.Errorf("filter survived reopen: %d of %d types visible", got, want)
	}
	def, _ := palette.Selected()
	if def.Type != workflow.TypeDefs()[0].Type {
		t.Errorf("selection survived reopen: %s", def.Type)
	}
}

func typeNames(defs []workflow.NodeTypeDefinition) []string {
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Type)
	}
	return names
}
