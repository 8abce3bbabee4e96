package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dshills/goterm"

	"github.com/carsch18/opsflow/pkg/engine"
	"github.com/carsch18/opsflow/pkg/storage"
	"github.com/carsch18/opsflow/pkg/tui/components"
	"github.com/carsch18/opsflow/pkg/workflow"
)

// App is the terminal application root: it owns the screen, the input
// goroutine, and the frame loop. All editor state changes happen on
// the loop goroutine; network calls run in the background and deliver
// their results back through asyncChan.
type App struct {
	screen   *goterm.Screen
	editor   *EditorSession
	keyboard *KeyboardHandler
	client   *engine.Client

	workflowID string

	ctx    context.Context
	cancel context.CancelFunc

	inputChan chan KeyEvent
	asyncChan chan func()

	helpOpen  bool
	helpPanel *components.Panel

	width, height int
}

// AppConfig wires the application's collaborators.
type AppConfig struct {
	Client     *engine.Client
	History    *storage.History
	Exports    *storage.Exports
	WorkflowID string
	Theme      *Theme
	CanvasZoom float64
}

// NewApp initializes the terminal and builds the application. The
// caller runs it with Run, which restores the terminal on exit.
func NewApp(cfg AppConfig) (*App, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("engine client is required")
	}
	if cfg.WorkflowID == "" {
		return nil, fmt.Errorf("workflow id is required")
	}

	screen, err := goterm.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		screen:     screen,
		keyboard:   NewKeyboardHandler(),
		client:     cfg.Client,
		workflowID: cfg.WorkflowID,
		ctx:        ctx,
		cancel:     cancel,
		inputChan:  make(chan KeyEvent, 100),
		asyncChan:  make(chan func(), 16),
		helpPanel:  components.NewPanel("Keys", 0, 0, 0, 0),
	}
	app.editor = NewEditorSession(EditorConfig{
		Theme:      cfg.Theme,
		History:    cfg.History,
		Exports:    cfg.Exports,
		CanvasZoom: cfg.CanvasZoom,
	})

	if err := app.registerBindings(); err != nil {
		screen.Close()
		cancel()
		return nil, fmt.Errorf("failed to register keybindings: %w", err)
	}

	return app, nil
}

// Run starts the main loop and blocks until quit or signal.
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go a.readKeyboardInput()

	a.resizeIfNeeded()
	a.openWorkflow(a.workflowID)

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	defer func() {
		if err := a.screen.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to restore terminal: %v\n", err)
		}
	}()

	if err := a.render(); err != nil {
		return fmt.Errorf("initial render failed: %w", err)
	}

	for {
		select {
		case <-a.ctx.Done():
			return nil

		case <-sigChan:
			a.cancel()
			return nil

		case event := <-a.inputChan:
			if err := a.keyboard.HandleKey(event); err != nil {
				a.editor.Toast(components.MessageError, err.Error())
			}
			a.syncMode()
			if err := a.render(); err != nil {
				return err
			}

		case fn := <-a.asyncChan:
			fn()
			a.syncMode()
			if err := a.render(); err != nil {
				return err
			}

		case <-ticker.C:
			a.editor.StatusBar().Update()
			a.resizeIfNeeded()
			if err := a.render(); err != nil {
				return err
			}
		}
	}
}

// Quit stops the application.
func (a *App) Quit() {
	a.cancel()
}

func (a *App) render() error {
	a.screen.Clear()
	a.editor.Render(a.screen)
	if a.helpOpen {
		a.helpPanel.Render(a.screen)
	}
	if err := a.screen.Show(); err != nil {
		return fmt.Errorf("screen show failed: %w", err)
	}
	return nil
}

func (a *App) resizeIfNeeded() {
	width, height := a.screen.Size()
	if width == a.width && height == a.height {
		return
	}
	a.width, a.height = width, height
	a.editor.Layout(width, height)

	helpW, helpH := 46, 22
	if helpW > width-2 {
		helpW = width - 2
	}
	if helpH > height-2 {
		helpH = height - 2
	}
	a.helpPanel.SetRegion((width-helpW)/2, (height-helpH)/2, helpW, helpH)
}

// syncMode keeps the input mode in step with what is on screen, no
// matter which code path opened or closed a panel.
func (a *App) syncMode() {
	mode := ModeCanvas
	switch {
	case a.editor.PaletteVisible():
		mode = ModePalette
	case a.editor.FormVisible():
		mode = ModeForm
	}
	if a.keyboard.GetMode() != mode {
		a.keyboard.SetMode(mode)
	}
	a.editor.StatusBar().SetMode(string(mode))
}

func (a *App) readKeyboardInput() {
	buf := make([]byte, 32)
	for {
		select {
		case <-a.ctx.Done():
			return
		default:
		}

		n, err := os.Stdin.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}
		if n == 0 {
			continue
		}

		event := ParseKeyBytes(buf[:n])
		select {
		case a.inputChan <- event:
		case <-a.ctx.Done():
			return
		}
	}
}

// Network operations. Each runs in its own goroutine and posts a
// closure back to the loop; the editor is never touched off-loop.

func (a *App) post(fn func()) {
	select {
	case a.asyncChan <- fn:
	case <-a.ctx.Done():
	}
}

func (a *App) openWorkflow(id string) {
	a.editor.Toast(components.MessageInfo, "loading "+id+"…")
	go func() {
		wf, err := a.client.FetchWorkflow(a.ctx, id)
		a.post(func() {
			if err != nil {
				a.editor.LoadError(id, err)
				return
			}
			a.editor.LoadWorkflow(wf)
		})
	}()
}

func (a *App) runWorkflow() {
	wf := a.editor.Workflow()
	req, err := a.editor.BeginExecute()
	if err != nil {
		return
	}
	id := wf.ID
	go func() {
		resp, err := a.client.Execute(a.ctx, id, *req)
		a.post(func() {
			if err != nil {
				a.editor.FailExecute(err.Error())
				return
			}
			a.editor.FinishExecute(resp)
		})
	}()
}

func (a *App) cloneWorkflow() {
	wf := a.editor.Workflow()
	if wf == nil {
		a.editor.Toast(components.MessageError, "no workflow loaded")
		return
	}
	id := wf.ID
	go func() {
		cloned, err := a.client.Clone(a.ctx, id)
		a.post(func() {
			if err != nil {
				a.editor.Toast(components.MessageError, "clone failed: "+err.Error())
				return
			}
			a.editor.Toast(components.MessageSuccess, "cloned to "+cloned.Name)
			a.openWorkflow(cloned.ID)
		})
	}()
}

// Key bindings.

func (a *App) registerBindings() error {
	type spec struct {
		mode    Mode
		key     KeyEvent
		handler KeyHandler
		label   string
	}

	bind := func(key rune) KeyEvent { return KeyEvent{Key: key} }
	shift := func(key rune) KeyEvent { return KeyEvent{Key: key, Shift: true} }
	ctrl := func(key rune) KeyEvent { return KeyEvent{Key: key, Ctrl: true} }
	special := func(name string) KeyEvent { return KeyEvent{IsSpecial: true, Special: name} }
	shiftSpecial := func(name string) KeyEvent { return KeyEvent{IsSpecial: true, Special: name, Shift: true} }

	if err := a.keyboard.RegisterGlobalBinding(ctrl('c'), func(KeyEvent) error {
		a.cancel()
		return nil
	}, "quit"); err != nil {
		return err
	}

	specs := []spec{
		// Canvas: selection and navigation.
		{ModeCanvas, special("Tab"), a.onNext, "next node / next target"},
		{ModeCanvas, shiftSpecial("Tab"), a.onPrev, "previous node / previous target"},
		{ModeCanvas, bind('n'), a.onNext, "next node"},
		{ModeCanvas, bind('p'), a.onPrev, "previous node"},
		{ModeCanvas, special("Up"), func(KeyEvent) error { a.editor.MoveSelected(0, -1); return nil }, "move node up"},
		{ModeCanvas, special("Down"), func(KeyEvent) error { a.editor.MoveSelected(0, 1); return nil }, "move node down"},
		{ModeCanvas, special("Left"), func(KeyEvent) error { a.editor.MoveSelected(-1, 0); return nil }, "move node left"},
		{ModeCanvas, special("Right"), func(KeyEvent) error { a.editor.MoveSelected(1, 0); return nil }, "move node right"},
		{ModeCanvas, bind('h'), func(KeyEvent) error { a.editor.PanView(-2, 0); return nil }, "pan left"},
		{ModeCanvas, bind('j'), func(KeyEvent) error { a.editor.PanView(0, 1); return nil }, "pan down"},
		{ModeCanvas, bind('k'), func(KeyEvent) error { a.editor.PanView(0, -1); return nil }, "pan up"},
		{ModeCanvas, bind('l'), func(KeyEvent) error { a.editor.PanView(2, 0); return nil }, "pan right"},
		{ModeCanvas, bind('+'), func(KeyEvent) error { a.editor.ZoomIn(); return nil }, "zoom in"},
		{ModeCanvas, bind('='), func(KeyEvent) error { a.editor.ZoomIn(); return nil }, "zoom in"},
		{ModeCanvas, bind('-'), func(KeyEvent) error { a.editor.ZoomOut(); return nil }, "zoom out"},
		{ModeCanvas, bind('0'), func(KeyEvent) error { a.editor.ResetView(); return nil }, "reset view"},
		{ModeCanvas, bind('v'), func(KeyEvent) error { a.editor.FitView(); return nil }, "fit all"},
		{ModeCanvas, bind('g'), func(KeyEvent) error { a.editor.AutoLayout(); return nil }, "auto layout"},

		// Canvas: graph editing.
		{ModeCanvas, bind('a'), func(KeyEvent) error { a.editor.OpenPalette(); return nil }, "add node"},
		{ModeCanvas, bind('d'), func(KeyEvent) error { a.editor.DeleteSelected(); return nil }, "delete node"},
		{ModeCanvas, shift('D'), func(KeyEvent) error { a.editor.DuplicateSelected(); return nil }, "duplicate node"},
		{ModeCanvas, bind('c'), a.onConnect(workflow.HandleDefault), "connect from node"},
		{ModeCanvas, bind('t'), a.onConnect(workflow.HandleTrue), "connect true branch"},
		{ModeCanvas, bind('f'), a.onConnect(workflow.HandleFalse), "connect false branch"},
		{ModeCanvas, bind('e'), func(KeyEvent) error { a.editor.SelectNextEdge(); return nil }, "cycle outgoing edges"},
		{ModeCanvas, bind('x'), func(KeyEvent) error { a.editor.RemoveSelectedEdge(); return nil }, "remove selected edge"},
		{ModeCanvas, bind('z'), func(KeyEvent) error { a.editor.Undo(); return nil }, "undo"},
		{ModeCanvas, shift('Z'), func(KeyEvent) error { a.editor.Redo(); return nil }, "redo"},
		{ModeCanvas, special("Enter"), a.onConfirm, "open properties / confirm"},
		{ModeCanvas, special("Escape"), a.onCancel, "cancel"},

		// Canvas: execution and persistence.
		{ModeCanvas, bind('r'), func(KeyEvent) error { a.runWorkflow(); return nil }, "run workflow"},
		{ModeCanvas, shift('R'), func(KeyEvent) error { a.editor.ClearRun(); return nil }, "clear run state"},
		{ModeCanvas, bind('u'), func(KeyEvent) error { a.editor.ToggleDryRun(); return nil }, "toggle dry run"},
		{ModeCanvas, bind('s'), func(KeyEvent) error { a.editor.ExportWorkflow(); return nil }, "export YAML"},
		{ModeCanvas, shift('C'), func(KeyEvent) error { a.cloneWorkflow(); return nil }, "clone workflow"},
		{ModeCanvas, shift('L'), func(KeyEvent) error { a.editor.ToggleLog(); return nil }, "toggle run log"},
		{ModeCanvas, bind('['), func(KeyEvent) error { a.editor.Log().ScrollUp(3); return nil }, "log scroll up"},
		{ModeCanvas, bind(']'), func(KeyEvent) error { a.editor.Log().ScrollDown(3); return nil }, "log scroll down"},
		{ModeCanvas, bind('?'), func(KeyEvent) error { a.toggleHelp(); return nil }, "help"},
		{ModeCanvas, bind('q'), func(KeyEvent) error { a.cancel(); return nil }, "quit"},

		// Palette.
		{ModePalette, special("Up"), func(KeyEvent) error { a.editor.Palette().Previous(); return nil }, "previous type"},
		{ModePalette, special("Down"), func(KeyEvent) error { a.editor.Palette().Next(); return nil }, "next type"},
		{ModePalette, special("Tab"), func(KeyEvent) error { a.editor.Palette().Next(); return nil }, "next type"},
		{ModePalette, special("Enter"), func(KeyEvent) error { a.editor.ConfirmPalette(); return nil }, "add selected type"},
		{ModePalette, special("Escape"), func(KeyEvent) error { a.editor.ClosePalette(); return nil }, "close palette"},
		{ModePalette, special("Backspace"), func(KeyEvent) error { a.editor.Palette().BackspaceFilter(); return nil }, "erase filter"},

		// Form.
		{ModeForm, ctrl('s'), func(KeyEvent) error { a.editor.SaveForm(); return nil }, "save properties"},
		{ModeForm, ctrl('d'), func(KeyEvent) error { a.editor.DuplicateSelected(); return nil }, "duplicate node"},
		{ModeForm, ctrl('q'), func(KeyEvent) error { a.editor.DeleteSelected(); return nil }, "delete node"},
		{ModeForm, special("Escape"), a.onFormEscape, "close form"},
	}

	for _, s := range specs {
		if err := a.keyboard.RegisterBinding(s.mode, s.key, s.handler, s.label); err != nil {
			return err
		}
	}

	a.keyboard.SetFallback(ModeForm, func(event KeyEvent) error {
		a.editor.Form().HandleKey(keyEventToString(event))
		return nil
	})
	a.keyboard.SetFallback(ModePalette, func(event KeyEvent) error {
		if !event.IsSpecial && !event.Ctrl && !event.Alt && event.Key >= ' ' {
			a.editor.Palette().AppendFilter(event.Key)
		}
		return nil
	})

	a.buildHelp()
	return nil
}

func (a *App) onNext(KeyEvent) error {
	if a.editor.Connecting() {
		a.editor.CycleConnectTarget(1)
		return nil
	}
	a.editor.SelectNext()
	return nil
}

func (a *App) onPrev(KeyEvent) error {
	if a.editor.Connecting() {
		a.editor.CycleConnectTarget(-1)
		return nil
	}
	a.editor.SelectPrev()
	return nil
}

func (a *App) onConnect(handle string) KeyHandler {
	return func(KeyEvent) error {
		a.editor.StartConnect(handle)
		return nil
	}
}

func (a *App) onConfirm(KeyEvent) error {
	if a.editor.Connecting() {
		a.editor.ConfirmConnect()
		return nil
	}
	a.editor.OpenForm()
	return nil
}

func (a *App) onCancel(KeyEvent) error {
	switch {
	case a.helpOpen:
		a.helpOpen = false
	case a.editor.Connecting():
		a.editor.CancelConnect()
	case a.editor.SelectedEdgeID() != "":
		a.editor.ClearEdgeSelection()
	default:
		a.editor.StatusBar().ClearMessage()
	}
	return nil
}

func (a *App) onFormEscape(KeyEvent) error {
	if !a.editor.Form().HandleKey("Escape") {
		a.editor.CloseForm()
	}
	return nil
}

func (a *App) toggleHelp() {
	a.helpOpen = !a.helpOpen
}

func (a *App) buildHelp() {
	bindings := a.keyboard.Bindings(ModeCanvas)
	sort.Slice(bindings, func(i, j int) bool {
		return FormatKeyEvent(bindings[i].Key) < FormatKeyEvent(bindings[j].Key)
	})

	lines := make([]string, 0, len(bindings)+2)
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf(" %-10s %s", FormatKeyEvent(b.Key), b.Label))
	}
	lines = append(lines, "", " Ctrl-c     quit")
	a.helpPanel.SetContent(lines)
}
