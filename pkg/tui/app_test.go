package tui

import (
	"context"
	"testing"

	"github.com/carsch18/opsflow/pkg/tui/components"
)

// newTestApp builds the application without a terminal. Run is never
// called; tests push key events directly and settle the mode the way
// the frame loop does.
func newTestApp(t *testing.T) *App {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := &App{
		keyboard:  NewKeyboardHandler(),
		editor:    NewEditorSession(EditorConfig{}),
		ctx:       ctx,
		cancel:    cancel,
		inputChan: make(chan KeyEvent, 100),
		asyncChan: make(chan func(), 16),
		helpPanel: components.NewPanel("Keys", 0, 0, 46, 22),
	}
	if err := app.registerBindings(); err != nil {
		t.Fatalf("registerBindings: %v", err)
	}
	return app
}

func press(t *testing.T, app *App, event KeyEvent) {
	t.Helper()
	if err := app.keyboard.HandleKey(event); err != nil {
		t.Fatalf("HandleKey(%s): %v", FormatKeyEvent(event), err)
	}
	app.syncMode()
}

// TestAppBindingsRegisterCleanly catches conflicts in the binding
// table: a duplicate key in any mode fails registration.
func TestAppBindingsRegisterCleanly(t *testing.T) {
	app := newTestApp(t)

	keys := make(map[string]bool)
	for _, b := range app.keyboard.Bindings(ModeCanvas) {
		keys[FormatKeyEvent(b.Key)] = true
	}
	for _, want := range []string{"a", "d", "D", "c", "t", "f", "x", "z", "Z", "r", "s", "Enter", "Escape", "?", "q"} {
		if !keys[want] {
			t.Errorf("canvas mode is missing a binding for %q", want)
		}
	}

	globals := app.keyboard.GlobalBindings()
	if len(globals) != 1 || FormatKeyEvent(globals[0].Key) != "Ctrl-c" {
		t.Errorf("want Ctrl-c as the only global binding, got %d bindings", len(globals))
	}

	if app.helpPanel.Len() == 0 {
		t.Error("help overlay has no content")
	}
}

func TestAppModeFollowsOpenPanels(t *testing.T) {
	app := newTestApp(t)
	wf, _, _, _ := remediationFixture(t)
	app.editor.LoadWorkflow(wf)

	if got := app.keyboard.GetMode(); got != ModeCanvas {
		t.Fatalf("mode = %s, want %s", got, ModeCanvas)
	}

	press(t, app, KeyEvent{Key: 'a'})
	if got := app.keyboard.GetMode(); got != ModePalette {
		t.Fatalf("mode after 'a' = %s, want %s", got, ModePalette)
	}

	press(t, app, KeyEvent{IsSpecial: true, Special: "Escape"})
	if got := app.keyboard.GetMode(); got != ModeCanvas {
		t.Fatalf("mode after Escape = %s, want %s", got, ModeCanvas)
	}

	press(t, app, KeyEvent{IsSpecial: true, Special: "Enter"})
	if got := app.keyboard.GetMode(); got != ModeForm {
		t.Fatalf("mode after Enter = %s, want %s", got, ModeForm)
	}

	press(t, app, KeyEvent{IsSpecial: true, Special: "Escape"})
	if got := app.keyboard.GetMode(); got != ModeCanvas {
		t.Fatalf("mode after closing the form = %s, want %s", got, ModeCanvas)
	}
}

func TestAppKeysEditTheGraph(t *testing.T) {
	app := newTestApp(t)
	wf, _, _, _ := remediationFixture(t)
	app.editor.LoadWorkflow(wf)

	press(t, app, KeyEvent{Key: 'd'})
	if len(wf.Nodes) != 2 {
		t.Fatalf("nodes after 'd' = %d, want 2", len(wf.Nodes))
	}

	press(t, app, KeyEvent{Key: 'z'})
	if got := app.editor.Workflow(); len(got.Nodes) != 3 {
		t.Fatalf("nodes after 'z' = %d, want 3", len(got.Nodes))
	}

	press(t, app, KeyEvent{Key: 'Z', Shift: true})
	if got := app.editor.Workflow(); len(got.Nodes) != 2 {
		t.Fatalf("nodes after 'Z' = %d, want 2", len(got.Nodes))
	}
}

// TestAppTypedRunesFilterThePalette also proves canvas bindings do not
// leak into palette mode: the 'a' in "wait" must type, not re-open.
func TestAppTypedRunesFilterThePalette(t *testing.T) {
	app := newTestApp(t)
	wf, _, _, _ := remediationFixture(t)
	app.editor.LoadWorkflow(wf)

	press(t, app, KeyEvent{Key: 'a'})
	for _, r := range "wait" {
		press(t, app, KeyEvent{Key: r})
	}
	if got := app.editor.Palette().filterText; got != "wait" {
		t.Fatalf("palette filter = %q, want %q", got, "wait")
	}

	press(t, app, KeyEvent{IsSpecial: true, Special: "Enter"})
	if got := len(app.editor.Workflow().Nodes); got != 4 {
		t.Fatalf("nodes = %d, want 4 after adding from the palette", got)
	}
	if got := app.keyboard.GetMode(); got != ModeCanvas {
		t.Errorf("mode after adding = %s, want %s", got, ModeCanvas)
	}
}

func TestAppHelpToggle(t *testing.T) {
	app := newTestApp(t)
	wf, _, _, _ := remediationFixture(t)
	app.editor.LoadWorkflow(wf)

	press(t, app, KeyEvent{Key: '?'})
	if !app.helpOpen {
		t.Fatal("'?' should open help")
	}
	press(t, app, KeyEvent{IsSpecial: true, Special: "Escape"})
	if app.helpOpen {
		t.Fatal("Escape should close help")
	}
}
