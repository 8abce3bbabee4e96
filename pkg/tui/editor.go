package tui

import (
	"fmt"
	"log"
	"time"

	"github.com/dshills/goterm"

	"github.com/carsch18/opsflow/pkg/engine"
	"github.com/carsch18/opsflow/pkg/execution"
	"github.com/carsch18/opsflow/pkg/storage"
	"github.com/carsch18/opsflow/pkg/tui/components"
	"github.com/carsch18/opsflow/pkg/workflow"
)

const toastFrames = 120

// EditorSession is the editing state for one open workflow: the graph,
// the current selection, the side panels, and the execution overlay.
// Every method runs on the UI goroutine; network work happens outside
// and feeds back in through FinishExecute and friends.
type EditorSession struct {
	wf         *workflow.Workflow
	workflowID string
	loadErr    string
	dirty      bool

	selectedNodeID string
	selectedEdgeID string
	pending        *pendingEdge

	overlay *execution.Overlay
	dryRun  bool
	undo    *UndoStack

	canvas   *Canvas
	panel    *PropertyPanel
	palette  *NodePalette
	status   *components.StatusBar
	logPanel *components.Panel
	logOpen  bool

	history *storage.History
	exports *storage.Exports
}

// pendingEdge tracks an in-progress connection: source and handle are
// fixed, the target cycles until confirmed.
type pendingEdge struct {
	sourceID string
	handle   string
	targetID string
}

// EditorConfig carries the editor's collaborators. History and Exports
// may be nil; the matching features quietly disable.
type EditorConfig struct {
	Theme      *Theme
	History    *storage.History
	Exports    *storage.Exports
	CanvasZoom float64
}

func NewEditorSession(cfg EditorConfig) *EditorSession {
	theme := cfg.Theme
	if theme == nil {
		theme = DefaultTheme()
	}
	canvas := NewCanvas(theme)
	if cfg.CanvasZoom != 0 {
		// Out-of-range values keep the 1.0 default.
		_ = canvas.Zoom(cfg.CanvasZoom)
	}
	return &EditorSession{
		overlay:  execution.NewOverlay(),
		undo:     NewUndoStack(0),
		canvas:   canvas,
		panel:    NewPropertyPanel(theme),
		palette:  NewNodePalette(theme),
		status:   components.NewStatusBar(0, 0),
		logPanel: components.NewPanel("Run Log", 0, 0, 0, 0),
		history:  cfg.History,
		exports:  cfg.Exports,
	}
}

// Layout carves the screen into regions. The canvas takes everything
// the side panels and the status bar do not.
func (e *EditorSession) Layout(width, height int) {
	statusRow := height - 1
	e.status.SetPosition(statusRow, width)

	canvasW := width
	if e.panel.Visible() {
		panelW := width * 2 / 5
		if panelW < 30 {
			panelW = 30
		}
		if panelW > width-20 {
			panelW = width - 20
		}
		e.panel.SetRegion(width-panelW, 0, panelW, statusRow)
		canvasW = width - panelW
	}

	canvasH := statusRow
	if e.logOpen {
		logH := 12
		if logH > statusRow/2 {
			logH = statusRow / 2
		}
		e.logPanel.SetRegion(0, statusRow-logH, canvasW, logH)
		canvasH = statusRow - logH
	}

	e.canvas.SetRegion(0, 0, canvasW, canvasH)

	palW, palH := 44, 15
	if palW > width-2 {
		palW = width - 2
	}
	if palH > height-2 {
		palH = height - 2
	}
	e.palette.SetRegion((width-palW)/2, (height-palH)/2, palW, palH)
}

// LoadWorkflow installs a fetched workflow and frames it.
func (e *EditorSession) LoadWorkflow(wf *workflow.Workflow) {
	e.wf = wf
	e.workflowID = wf.ID
	e.loadErr = ""
	e.dirty = false
	e.undo.Clear()
	e.overlay.Clear()
	e.logPanel.Clear()
	e.panel.Close()
	e.pending = nil
	e.selectedEdgeID = ""
	e.selectedNodeID = ""
	if len(wf.Nodes) > 0 {
		e.selectedNodeID = wf.Nodes[0].ID
	}
	e.canvas.FitAll(e.Scene())
	e.toastInfo(fmt.Sprintf("loaded %s (%d nodes)", wf.Name, len(wf.Nodes)))
}

// LoadError switches to the not-found placeholder. The id stays on
// screen; there is no graph to edit or run.
func (e *EditorSession) LoadError(workflowID string, err error) {
	e.wf = nil
	e.workflowID = workflowID
	e.loadErr = err.Error()
	e.undo.Clear()
	e.overlay.Clear()
	e.panel.Close()
	e.pending = nil
	e.selectedNodeID = ""
	e.selectedEdgeID = ""
	e.toastError("could not load workflow " + workflowID)
}

// Workflow returns the open workflow, nil when showing a placeholder.
func (e *EditorSession) Workflow() *workflow.Workflow {
	return e.wf
}

// WorkflowID returns the id the editor was asked to open.
func (e *EditorSession) WorkflowID() string {
	return e.workflowID
}

// Dirty reports whether local edits have not been exported.
func (e *EditorSession) Dirty() bool {
	return e.dirty
}

// Overlay exposes run state to the app loop for serialization checks.
func (e *EditorSession) Overlay() *execution.Overlay {
	return e.overlay
}

// StatusBar exposes the status bar for the frame update tick.
func (e *EditorSession) StatusBar() *components.StatusBar {
	return e.status
}

// Scene composes the current frame's visual tree.
func (e *EditorSession) Scene() Scene {
	if e.wf == nil {
		return PlaceholderScene(e.workflowID, e.loadErr)
	}

	selected := e.selectedNodeID
	if e.pending != nil && e.pending.targetID != "" {
		selected = e.pending.targetID
	}
	return ComposeScene(e.wf, SceneOptions{
		SelectedID:     selected,
		SelectedEdgeID: e.selectedEdgeID,
		Overlay:        e.overlay,
	})
}

// Render draws one frame: canvas, then overlays, then the status bar.
func (e *EditorSession) Render(screen *goterm.Screen) {
	e.refreshStatusLine()
	e.canvas.Draw(screen, e.Scene())
	if e.logOpen {
		e.logPanel.Render(screen)
	}
	e.panel.Render(screen)
	e.palette.Render(screen)
	e.status.Render(screen)
}

func (e *EditorSession) refreshStatusLine() {
	switch {
	case e.wf == nil:
		e.status.SetLeft(e.workflowID)
		e.status.SetRight("")
	default:
		left := fmt.Sprintf("%s [%s]", e.wf.Name, e.wf.ID)
		if e.dirty {
			left += " *"
		}
		e.status.SetLeft(left)

		right := fmt.Sprintf("nodes %d · edges %d · zoom %.0f%%", len(e.wf.Nodes), len(e.wf.Edges), e.canvas.ZoomLevel*100)
		if e.dryRun {
			right = "DRY RUN · " + right
		}
		if e.overlay.Active() {
			right = "RUNNING · " + right
		}
		e.status.SetRight(right)
	}
}

// Selection.

// SelectedNode returns the selected node, if one exists.
func (e *EditorSession) SelectedNode() (*workflow.Node, bool) {
	if e.wf == nil || e.selectedNodeID == "" {
		return nil, false
	}
	node, err := e.wf.Node(e.selectedNodeID)
	if err != nil {
		return nil, false
	}
	return node, true
}

// SelectNext cycles selection forward through the node list.
func (e *EditorSession) SelectNext() {
	e.cycleSelection(1)
}

// SelectPrev cycles selection backward.
func (e *EditorSession) SelectPrev() {
	e.cycleSelection(-1)
}

func (e *EditorSession) cycleSelection(delta int) {
	if e.wf == nil || len(e.wf.Nodes) == 0 {
		e.selectedNodeID = ""
		return
	}
	e.selectedEdgeID = ""

	idx := 0
	for i, node := range e.wf.Nodes {
		if node.ID == e.selectedNodeID {
			idx = (i + delta + len(e.wf.Nodes)) % len(e.wf.Nodes)
			e.selectedNodeID = e.wf.Nodes[idx].ID
			e.ensureVisible()
			return
		}
	}
	e.selectedNodeID = e.wf.Nodes[0].ID
	e.ensureVisible()
}

func (e *EditorSession) ensureVisible() {
	node, ok := e.SelectedNode()
	if !ok {
		return
	}
	box := nodeBoxFor(node.Position, "", "")
	e.canvas.CenterOn(box.Center())
}

// MoveSelected nudges the selected node one cell per unit of delta.
// Repeated nudges of the same node undo as a single move.
func (e *EditorSession) MoveSelected(deltaCols, deltaRows int) {
	node, ok := e.SelectedNode()
	if !ok {
		return
	}
	e.undo.Push(e.wf, "move:"+node.ID)
	node.Position.X += float64(deltaCols) * unitsPerCol
	node.Position.Y += float64(deltaRows) * unitsPerRow
	e.dirty = true
}

// Graph editing.

// OpenPalette shows the add-node picker.
func (e *EditorSession) OpenPalette() {
	if e.wf == nil {
		e.toastError("no workflow loaded")
		return
	}
	e.palette.Show()
}

// ClosePalette hides the picker without adding anything.
func (e *EditorSession) ClosePalette() {
	e.palette.Hide()
}

// PaletteVisible reports whether the picker is open.
func (e *EditorSession) PaletteVisible() bool {
	return e.palette.IsVisible()
}

// Palette exposes the picker for key routing.
func (e *EditorSession) Palette() *NodePalette {
	return e.palette
}

// ConfirmPalette adds a node of the picked type at the view center and
// selects it.
func (e *EditorSession) ConfirmPalette() {
	def, ok := e.palette.Selected()
	if !ok {
		return
	}
	e.palette.Hide()
	if e.wf == nil {
		return
	}

	pos := e.viewCenterPosition()
	e.undo.Push(e.wf, "")
	node, err := e.wf.AddNode(def.Type, pos)
	if err != nil {
		e.toastError(err.Error())
		return
	}
	e.selectedNodeID = node.ID
	e.dirty = true
	e.toastSuccess("added " + def.DisplayName)
}

func (e *EditorSession) viewCenterPosition() workflow.Position {
	x := e.canvas.ViewportX + float64(e.canvas.Width)*unitsPerCol/(2.0*e.canvas.ZoomLevel)
	y := e.canvas.ViewportY + float64(e.canvas.Height)*unitsPerRow/(2.0*e.canvas.ZoomLevel)
	boxW := float64(minNodeCols) * unitsPerCol
	boxH := float64(nodeRows) * unitsPerRow
	return workflow.Position{X: x - boxW/2, Y: y - boxH/2}
}

// DeleteSelected removes the selected node and its edges. A form open
// on that node closes with it.
func (e *EditorSession) DeleteSelected() {
	node, ok := e.SelectedNode()
	if !ok {
		return
	}
	if e.panel.Visible() && e.panel.NodeID() == node.ID {
		e.panel.Close()
	}
	e.undo.Push(e.wf, "")
	if err := e.wf.RemoveNode(node.ID); err != nil {
		e.toastError(err.Error())
		return
	}
	// The cascade may have taken the highlighted edge with it.
	e.selectedEdgeID = ""
	e.selectedNodeID = ""
	if len(e.wf.Nodes) > 0 {
		e.selectedNodeID = e.wf.Nodes[0].ID
	}
	e.dirty = true
	e.toastInfo("deleted node " + node.ID)
}

// DuplicateSelected copies the selected node and its configuration,
// selects the copy, and re-targets an open form at it.
func (e *EditorSession) DuplicateSelected() {
	node, ok := e.SelectedNode()
	if !ok {
		return
	}
	e.undo.Push(e.wf, "")
	dup, err := e.wf.DuplicateNode(node.ID)
	if err != nil {
		e.toastError(err.Error())
		return
	}
	e.selectedNodeID = dup.ID
	e.dirty = true
	if e.panel.Visible() {
		e.panel.Open(dup)
	}
	e.toastSuccess("duplicated to " + dup.ID)
}

// Edge editing.

// StartConnect begins a connection from the selected node over the
// given handle. Branch handles only exist on branching types; the add
// is validated on confirm, so a bad start fails then, loudly, and
// changes nothing.
func (e *EditorSession) StartConnect(handle string) {
	node, ok := e.SelectedNode()
	if !ok {
		e.toastError("select a source node first")
		return
	}
	e.pending = &pendingEdge{sourceID: node.ID, handle: handle}
	e.cycleConnectTarget(1)
	if e.pending.targetID == "" {
		e.pending = nil
		e.toastError("no other node to connect to")
		return
	}
	e.toastInfo("connect: pick a target, enter to confirm")
}

// Connecting reports whether a connection is being built.
func (e *EditorSession) Connecting() bool {
	return e.pending != nil
}

// CycleConnectTarget moves the candidate target forward or backward.
func (e *EditorSession) CycleConnectTarget(delta int) {
	if e.pending == nil {
		return
	}
	e.cycleConnectTarget(delta)
}

func (e *EditorSession) cycleConnectTarget(delta int) {
	if e.wf == nil || len(e.wf.Nodes) < 2 {
		return
	}

	ids := make([]string, 0, len(e.wf.Nodes))
	for _, node := range e.wf.Nodes {
		if node.ID != e.pending.sourceID {
			ids = append(ids, node.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	current := -1
	for i, id := range ids {
		if id == e.pending.targetID {
			current = i
			break
		}
	}
	next := (current + delta + len(ids)) % len(ids)
	if current == -1 && delta < 0 {
		next = len(ids) - 1
	}
	e.pending.targetID = ids[next]
}

// ConfirmConnect validates and adds the pending edge.
func (e *EditorSession) ConfirmConnect() {
	if e.pending == nil || e.pending.targetID == "" {
		return
	}
	edge := &workflow.Edge{
		Source:       e.pending.sourceID,
		Target:       e.pending.targetID,
		SourceHandle: e.pending.handle,
	}
	if e.pending.handle == workflow.HandleTrue || e.pending.handle == workflow.HandleFalse {
		edge.Label = e.pending.handle
	}
	// AddEdge can refuse, so snapshot first and record only a real edit.
	before := snapshotWorkflow(e.wf)
	err := e.wf.AddEdge(edge)
	e.pending = nil
	if err != nil {
		e.toastError(err.Error())
		return
	}
	e.undo.Push(before, "")
	e.dirty = true
	e.toastSuccess("connected")
}

// CancelConnect abandons the pending edge.
func (e *EditorSession) CancelConnect() {
	e.pending = nil
}

// SelectNextEdge cycles through the selected node's outgoing edges so
// one can be removed.
func (e *EditorSession) SelectNextEdge() {
	node, ok := e.SelectedNode()
	if !ok {
		return
	}
	edges := e.wf.OutgoingEdges(node.ID)
	if len(edges) == 0 {
		e.toastInfo("no outgoing edges")
		return
	}

	current := -1
	for i, edge := range edges {
		if edge.ID == e.selectedEdgeID {
			current = i
			break
		}
	}
	e.selectedEdgeID = edges[(current+1)%len(edges)].ID
}

// RemoveSelectedEdge deletes the highlighted edge.
func (e *EditorSession) RemoveSelectedEdge() {
	if e.selectedEdgeID == "" {
		return
	}
	e.undo.Push(e.wf, "")
	if err := e.wf.RemoveEdge(e.selectedEdgeID); err != nil {
		e.toastError(err.Error())
		return
	}
	e.selectedEdgeID = ""
	e.dirty = true
	e.toastInfo("edge removed")
}

// ClearEdgeSelection drops the edge highlight.
func (e *EditorSession) ClearEdgeSelection() {
	e.selectedEdgeID = ""
}

// SelectedEdgeID reports the highlighted edge.
func (e *EditorSession) SelectedEdgeID() string {
	return e.selectedEdgeID
}

// Property form.

// OpenForm opens the property form for the selected node.
func (e *EditorSession) OpenForm() {
	node, ok := e.SelectedNode()
	if !ok {
		return
	}
	e.panel.Open(node)
}

// CloseForm closes the form without saving.
func (e *EditorSession) CloseForm() {
	e.panel.Close()
}

// FormVisible reports whether the form is open.
func (e *EditorSession) FormVisible() bool {
	return e.panel.Visible()
}

// Form exposes the property panel for key routing.
func (e *EditorSession) Form() *PropertyPanel {
	return e.panel
}

// SaveForm coerces the form and replaces the node's configuration.
func (e *EditorSession) SaveForm() {
	data, ok := e.panel.SaveData()
	if !ok {
		e.toastError("nothing to save")
		return
	}
	e.undo.Push(e.wf, "")
	if err := e.wf.UpdateNodeData(e.panel.NodeID(), data); err != nil {
		e.toastError(err.Error())
		return
	}
	e.dirty = true
	e.toastSuccess("saved")
}

// History.

// Undo restores the graph as it was before the last edit.
func (e *EditorSession) Undo() {
	if e.wf == nil {
		return
	}
	state, ok := e.undo.Undo(e.wf)
	if !ok {
		e.toastInfo("nothing to undo")
		return
	}
	e.installState(state)
	e.toastInfo("undo")
}

// Redo reverses the most recent undo.
func (e *EditorSession) Redo() {
	if e.wf == nil {
		return
	}
	state, ok := e.undo.Redo(e.wf)
	if !ok {
		e.toastInfo("nothing to redo")
		return
	}
	e.installState(state)
	e.toastInfo("redo")
}

// installState swaps in a restored graph. The selection, the form, and
// any half-built edge may reference nodes the restored state does not
// have, so they reset.
func (e *EditorSession) installState(wf *workflow.Workflow) {
	e.wf = wf
	e.dirty = true
	e.pending = nil
	e.panel.Close()
	e.selectedEdgeID = ""
	if !e.wf.HasNode(e.selectedNodeID) {
		e.selectedNodeID = ""
		if len(e.wf.Nodes) > 0 {
			e.selectedNodeID = e.wf.Nodes[0].ID
		}
	}
}

// Execution.

// ToggleDryRun flips whether the next run asks the engine to simulate.
func (e *EditorSession) ToggleDryRun() {
	e.dryRun = !e.dryRun
	if e.dryRun {
		e.toastInfo("dry run on")
	} else {
		e.toastInfo("dry run off")
	}
}

// BeginExecute marks every node pending and returns the request to
// send. It refuses while a run is in flight; that is what keeps runs
// serialized.
func (e *EditorSession) BeginExecute() (*engine.ExecuteRequest, error) {
	if e.wf == nil {
		err := fmt.Errorf("no workflow loaded")
		e.toastError(err.Error())
		return nil, err
	}
	if _, err := e.overlay.BeginRun(e.wf, e.dryRun); err != nil {
		e.toastError(err.Error())
		return nil, err
	}

	e.logPanel.Clear()
	e.logOpen = true
	e.toastInfo("executing " + e.wf.Name + "…")
	return &engine.ExecuteRequest{
		TriggerData: map[string]interface{}{},
		DryRun:      e.dryRun,
	}, nil
}

// FinishExecute applies the engine's response: node statuses, the run
// log, the outcome toast, and the history record.
func (e *EditorSession) FinishExecute(resp *engine.ExecuteResponse) {
	e.overlay.ApplyResponse(resp)
	e.refreshLogPanel()

	switch e.overlay.Outcome() {
	case execution.OutcomeSucceeded:
		e.toastSuccess(fmt.Sprintf("run succeeded in %s", e.overlay.RunDuration()))
	default:
		if n := e.overlay.FailedCount(); n > 0 {
			e.toastError(fmt.Sprintf("run failed: %d node(s) failed", n))
		} else {
			e.toastError("run failed: " + e.overlay.RunError())
		}
	}

	e.saveRunRecord()
}

// FailExecute handles a run that never reached the engine: statuses
// revert, a single log entry explains, and a toast flags it.
func (e *EditorSession) FailExecute(errText string) {
	e.overlay.AbortRun(errText)
	e.refreshLogPanel()
	e.toastError("execution failed: " + errText)
	e.saveRunRecord()
}

func (e *EditorSession) saveRunRecord() {
	if e.history == nil {
		return
	}
	record, ok := e.overlay.Record()
	if !ok {
		return
	}
	// Archival is best effort. The run already finished and its toast is
	// on screen; a failed insert goes to the debug log, not over it.
	if err := e.history.SaveRun(record); err != nil {
		log.Printf("run history: %v", err)
	}
}

// ClearRun drops all run state from the canvas.
func (e *EditorSession) ClearRun() {
	if e.overlay.Active() {
		e.toastError("run still in progress")
		return
	}
	e.overlay.Clear()
	e.logPanel.Clear()
	e.logOpen = false
}

func (e *EditorSession) refreshLogPanel() {
	e.logPanel.Clear()
	for _, entry := range e.overlay.Entries() {
		style := goterm.StyleNone
		if entry.Status == execution.StatusFailed {
			style = goterm.StyleBold
		}
		if entry.Status == execution.StatusSkipped {
			style = goterm.StyleDim
		}

		line := fmt.Sprintf("%s %c %-18s %8s",
			entry.Timestamp.Format("15:04:05"),
			StatusGlyph(entry.Status),
			entry.Name,
			formatDuration(entry.Duration))
		if entry.Detail != "" {
			line += "  " + entry.Detail
		}
		e.logPanel.AppendLine(line, style)
	}
}

// ToggleLog shows or hides the run log panel.
func (e *EditorSession) ToggleLog() {
	e.logOpen = !e.logOpen
}

// LogVisible reports whether the run log shows.
func (e *EditorSession) LogVisible() bool {
	return e.logOpen
}

// Log exposes the log panel for scroll key routing.
func (e *EditorSession) Log() *components.Panel {
	return e.logPanel
}

// View control.

// PanView pans the canvas.
func (e *EditorSession) PanView(deltaCols, deltaRows int) {
	e.canvas.Pan(deltaCols, deltaRows)
}

// ZoomIn zooms the canvas in one step.
func (e *EditorSession) ZoomIn() {
	e.canvas.ZoomIn()
}

// ZoomOut zooms the canvas out one step.
func (e *EditorSession) ZoomOut() {
	e.canvas.ZoomOut()
}

// ResetView restores the default pan and zoom.
func (e *EditorSession) ResetView() {
	e.canvas.ResetView()
}

// FitView frames the whole graph.
func (e *EditorSession) FitView() {
	e.canvas.FitAll(e.Scene())
}

// AutoLayout recomputes node positions from the graph topology.
func (e *EditorSession) AutoLayout() {
	if e.wf == nil {
		return
	}
	e.undo.Push(e.wf, "")
	for id, pos := range AutoLayoutPositions(e.wf) {
		if node, err := e.wf.Node(id); err == nil {
			node.Position = pos
		}
	}
	e.dirty = true
	e.canvas.FitAll(e.Scene())
	e.toastInfo("layout applied")
}

// Export.

// ExportWorkflow writes the workflow to the exports directory as YAML.
func (e *EditorSession) ExportWorkflow() {
	if e.exports == nil {
		e.toastError("exports disabled")
		return
	}
	if e.wf == nil {
		e.toastError("no workflow loaded")
		return
	}
	path, err := e.exports.WriteWorkflow(e.wf)
	if err != nil {
		e.toastError("export: " + err.Error())
		return
	}
	e.dirty = false
	e.toastSuccess("exported to " + path)
}

// Toasts.

// Toast shows a transient status-bar message.
func (e *EditorSession) Toast(level components.MessageLevel, msg string) {
	e.status.SetMessage(msg, level, toastFrames)
}

func (e *EditorSession) toastInfo(msg string) {
	e.status.SetMessage(msg, components.MessageInfo, toastFrames)
}

func (e *EditorSession) toastSuccess(msg string) {
	e.status.SetMessage(msg, components.MessageSuccess, toastFrames)
}

func (e *EditorSession) toastError(msg string) {
	e.status.SetMessage(msg, components.MessageError, toastFrames)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
