package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/quantrig/quantrig/pkg/canvas"
	"github.com/quantrig/quantrig/pkg/engine"
	"github.com/quantrig/quantrig/pkg/session"
	"github.com/quantrig/quantrig/pkg/store"
	"github.com/quantrig/quantrig/pkg/strategy"
)

// Zoom clamp range applied before any coordinate math. The canvas package
// does not defend against non-positive zoom, so the clamp lives here at
// the binding boundary.
const (
	minZoom = 0.1
	maxZoom = 3.0
)

// App is the Wails backend. It owns one editor instance: a graph, its
// interaction session, the DSL engine and the strategy store, all
// constructed at app creation and torn down with it. Nothing here is a
// package-level singleton.
type App struct {
	ctx    context.Context
	log    *zap.Logger
	store  *store.Store
	engine *engine.Engine

	// Bindings can be invoked from the webview's IPC goroutines; the graph
	// and session assume sequential mutation, so every binding takes mu.
	mu      sync.Mutex
	graph   *strategy.Graph
	session *session.Session
}

// NewApp creates an App with a fresh editor bound to the given store.
func NewApp(st *store.Store, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		log:    log,
		store:  st,
		engine: engine.New(),
	}
	a.resetEditor(strategy.New())
	return a
}

// resetEditor swaps in a graph (new or loaded) and rebuilds the session
// and change subscription around it. Callers hold mu or are single-threaded.
func (a *App) resetEditor(g *strategy.Graph) {
	a.graph = g
	a.session = session.New(g)
	g.Subscribe(func(c strategy.Change) {
		if a.ctx != nil {
			runtime.EventsEmit(a.ctx, "graph:changed")
		}
	})
}

// startup is called by Wails; the context is saved for runtime event
// emission.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.log.Info("editor started")
}

func clampZoom(z float64) float64 {
	if z < minZoom {
		return minZoom
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}

// ---------------------------------------------------------------------------
// View DTOs sent to the frontend
// ---------------------------------------------------------------------------

// NodeView is the JSON-serializable projection of one block.
type NodeView struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	Label  string         `json:"label"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Config map[string]any `json:"config"`
}

// ConnectionView carries a wire plus its screen-space curve under the
// current transform, ready for the frontend to stroke.
type ConnectionView struct {
	ID     string       `json:"id"`
	Source string       `json:"source"`
	Target string       `json:"target"`
	Curve  canvas.Curve `json:"curve"`
	Path   string       `json:"path"`
}

// TentativeView is the in-progress wire, when one is being drawn.
type TentativeView struct {
	Curve canvas.Curve `json:"curve"`
	Path  string       `json:"path"`
}

// EditorView is the full render state for one frame: every block, every
// wire with its geometry, the tentative wire if any, and the viewport
// transform after the event that produced this view.
type EditorView struct {
	Nodes       []NodeView       `json:"nodes"`
	Connections []ConnectionView `json:"connections"`
	Tentative   *TentativeView   `json:"tentative"`
	State       string           `json:"state"`
	Zoom        float64          `json:"zoom"`
	OffsetX     float64          `json:"offsetX"`
	OffsetY     float64          `json:"offsetY"`
}

// PointerEvent is a pointer-down/move/up forwarded by the host view, with
// its hit-test result and the current viewport transform.
type PointerEvent struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Hit     string  `json:"hit"`    // "node" | "handle" | "canvas"
	NodeID  string  `json:"nodeId"` // for node/handle hits
	Side    string  `json:"side"`   // "input" | "output" for handle hits
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

func (ev PointerEvent) transform() canvas.Transform {
	return canvas.Transform{
		Zoom:   clampZoom(ev.Zoom),
		Offset: canvas.Point{X: ev.OffsetX, Y: ev.OffsetY},
	}
}

func (ev PointerEvent) point() canvas.Point {
	return canvas.Point{X: ev.X, Y: ev.Y}
}

func (ev PointerEvent) hit() (session.Hit, error) {
	switch ev.Hit {
	case "canvas":
		return session.Hit{Kind: session.HitCanvas}, nil
	case "node":
		return session.Hit{Kind: session.HitNode, NodeID: ev.NodeID}, nil
	case "handle":
		side, err := canvas.ParseSide(ev.Side)
		if err != nil {
			return session.Hit{}, err
		}
		return session.Hit{Kind: session.HitHandle, NodeID: ev.NodeID, Side: side}, nil
	}
	return session.Hit{}, fmt.Errorf("unknown hit tag %q", ev.Hit)
}

// view renders the current editor state under tf. Caller holds mu.
func (a *App) view(tf canvas.Transform) EditorView {
	v := EditorView{
		Nodes:       []NodeView{},
		Connections: []ConnectionView{},
		State:       a.session.State().String(),
		Zoom:        tf.Zoom,
		OffsetX:     tf.Offset.X,
		OffsetY:     tf.Offset.Y,
	}
	for _, n := range a.graph.Nodes() {
		v.Nodes = append(v.Nodes, NodeView{
			ID:     n.ID,
			Kind:   n.Kind.String(),
			Label:  n.Label,
			X:      n.Position.X,
			Y:      n.Position.Y,
			Width:  n.Dims.Width,
			Height: n.Dims.Height,
			Config: n.Config,
		})
	}
	for _, c := range a.graph.Connections() {
		src := a.graph.Node(c.Source)
		dst := a.graph.Node(c.Target)
		if src == nil || dst == nil {
			continue
		}
		curve := canvas.CubicPath(
			canvas.HandlePosition(src.Position, canvas.SideOutput, tf, src.Dims),
			canvas.HandlePosition(dst.Position, canvas.SideInput, tf, dst.Dims),
		)
		v.Connections = append(v.Connections, ConnectionView{
			ID:     c.ID,
			Source: c.Source,
			Target: c.Target,
			Curve:  curve,
			Path:   curve.SVGPath(),
		})
	}
	if tent, ok := a.session.Tentative(); ok {
		curve := canvas.CubicPath(tent.Start, tent.End)
		v.Tentative = &TentativeView{Curve: curve, Path: curve.SVGPath()}
	}
	return v
}

// ---------------------------------------------------------------------------
// Pointer bindings
// ---------------------------------------------------------------------------

// PointerDown opens a gesture and returns the resulting view.
func (a *App) PointerDown(ev PointerEvent) EditorView {
	a.mu.Lock()
	defer a.mu.Unlock()
	tf := ev.transform()
	hit, err := ev.hit()
	if err != nil {
		a.log.Warn("pointer down dropped", zap.Error(err))
		return a.view(tf)
	}
	a.session.PointerDown(hit, ev.point(), tf)
	return a.view(tf)
}

// PointerMove advances the active gesture. The returned view carries the
// pan-updated transform; the frontend adopts it as its new viewport.
func (a *App) PointerMove(ev PointerEvent) EditorView {
	a.mu.Lock()
	defer a.mu.Unlock()
	tf := a.session.PointerMove(ev.point(), ev.transform())
	return a.view(tf)
}

// PointerResult is the outcome of a pointer-up: the new view, the created
// connection if the gesture committed one, and the rejection reason if
// the attempt was refused ("ok" otherwise).
type PointerResult struct {
	View    EditorView      `json:"view"`
	Created *ConnectionView `json:"created"`
	Reject  string          `json:"reject"`
}

// PointerUp closes the active gesture.
func (a *App) PointerUp(ev PointerEvent) PointerResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	tf := ev.transform()
	hit, err := ev.hit()
	if err != nil {
		a.log.Warn("pointer up dropped", zap.Error(err))
		a.session.Cancel()
		return PointerResult{View: a.view(tf), Reject: strategy.RejectNone.String()}
	}
	conn, reject := a.session.PointerUp(hit, ev.point(), tf)
	res := PointerResult{View: a.view(tf), Reject: reject.String()}
	if conn != nil {
		for _, cv := range res.View.Connections {
			if cv.ID == conn.ID {
				c := cv
				res.Created = &c
				break
			}
		}
	}
	if reject != strategy.RejectNone {
		a.log.Debug("connection rejected", zap.String("reason", reject.String()))
	}
	return res
}

// CancelGesture aborts any active gesture (Escape in the frontend).
func (a *App) CancelGesture(zoom, offsetX, offsetY float64) EditorView {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.Cancel()
	return a.view(canvas.Transform{Zoom: clampZoom(zoom), Offset: canvas.Point{X: offsetX, Y: offsetY}})
}

// ---------------------------------------------------------------------------
// Graph bindings
// ---------------------------------------------------------------------------

// Palette lists the block kinds the sidebar offers, with their default
// labels.
func (a *App) Palette() []map[string]string {
	kinds := strategy.Kinds()
	out := make([]map[string]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, map[string]string{
			"kind":  k.String(),
			"label": strategy.SpecFor(k).Label,
		})
	}
	return out
}

// AddBlock creates a block of the given kind at a canvas position and
// returns its view. Unknown kinds are an error.
func (a *App) AddBlock(kind, label string, x, y float64) (NodeView, error) {
	k, err := strategy.ParseKind(kind)
	if err != nil {
		return NodeView{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.graph.AddNode(k, label, canvas.Point{X: x, Y: y})
	a.log.Info("block added", zap.String("kind", kind), zap.String("id", n.ID))
	return NodeView{
		ID: n.ID, Kind: n.Kind.String(), Label: n.Label,
		X: n.Position.X, Y: n.Position.Y,
		Width: n.Dims.Width, Height: n.Dims.Height,
		Config: n.Config,
	}, nil
}

// ConfigureBlock replaces a block's configuration payload.
func (a *App) ConfigureBlock(id string, cfg map[string]any) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.graph.ConfigureNode(id, cfg)
}

// RemoveBlock deletes a block, cascading its wires. Unknown ids are a
// no-op.
func (a *App) RemoveBlock(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph.DeleteNode(id)
}

// RemoveConnection deletes a wire by id. Unknown ids are a no-op.
func (a *App) RemoveConnection(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph.DeleteConnection(id)
}

// View renders the editor under the frontend's current transform.
func (a *App) View(zoom, offsetX, offsetY float64) EditorView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view(canvas.Transform{Zoom: clampZoom(zoom), Offset: canvas.Point{X: offsetX, Y: offsetY}})
}

// ---------------------------------------------------------------------------
// Export and persistence bindings
// ---------------------------------------------------------------------------

// IssueView is a JSON-serializable validation finding.
type IssueView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"nodeId"`
}

// ExportResult bundles generated DSL source with any validation issues
// and generation errors. Source is present even when issues exist; the
// frontend decides what to show.
type ExportResult struct {
	Source string      `json:"source"`
	Issues []IssueView `json:"issues"`
	Errors []string    `json:"errors"`
}

// Export validates the current graph, generates DSL source and verifies
// the source re-evaluates cleanly.
func (a *App) Export() ExportResult {
	a.mu.Lock()
	snap := a.graph.Snapshot()
	issues := strategy.Validate(a.graph)
	a.mu.Unlock()

	result := ExportResult{Issues: []IssueView{}, Errors: []string{}}
	for _, iss := range issues {
		result.Issues = append(result.Issues, IssueView{Code: iss.Code, Message: iss.Message, NodeID: iss.NodeID})
	}

	result.Source = engine.Generate(snap)

	// Round-trip check: generated source must parse back.
	_, evalErrs, err := a.engine.Evaluate(result.Source)
	if err != nil {
		a.log.Error("export self-check failed", zap.Error(err))
		result.Errors = append(result.Errors, err.Error())
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, e.Error())
	}
	return result
}

// ImportSource evaluates DSL source and replaces the editor's graph with
// the result. On eval errors the current graph is left untouched and the
// error messages are returned.
func (a *App) ImportSource(source string) ([]string, error) {
	snap, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, 0, len(evalErrs))
		for _, e := range evalErrs {
			msgs = append(msgs, e.Error())
		}
		return msgs, nil
	}
	a.mu.Lock()
	a.resetEditor(strategy.FromSnapshot(snap))
	a.mu.Unlock()
	a.log.Info("strategy imported", zap.Int("blocks", len(snap.Nodes)))
	return []string{}, nil
}

// SaveStrategy stores the current graph under a name.
func (a *App) SaveStrategy(name string) error {
	a.mu.Lock()
	snap := a.graph.Snapshot()
	a.mu.Unlock()
	return a.store.Save(name, snap)
}

// LoadStrategy replaces the editor's graph with a saved one.
func (a *App) LoadStrategy(name string) (EditorView, error) {
	snap, err := a.store.Load(name)
	if err != nil {
		return EditorView{}, err
	}
	a.mu.Lock()
	a.resetEditor(strategy.FromSnapshot(snap))
	view := a.view(canvas.Identity)
	a.mu.Unlock()
	a.log.Info("strategy loaded", zap.String("name", name))
	return view, nil
}

// NewStrategy discards the current graph and starts empty.
func (a *App) NewStrategy() EditorView {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetEditor(strategy.New())
	return a.view(canvas.Identity)
}

// ListStrategies returns the saved library.
func (a *App) ListStrategies() ([]store.Entry, error) {
	return a.store.List()
}

// DeleteStrategy removes a saved strategy from the library.
func (a *App) DeleteStrategy(name string) error {
	return a.store.Delete(name)
}
