// Package session implements the pointer-interaction state machine for the
// strategy canvas. One machine arbitrates the whole pointer stream: a
// pointer-down is classified (using the hit tag supplied by the host view,
// which owns DOM layout) into dragging a block, drawing a wire, or panning
// the canvas; moves are translated into canvas-space positions or pan
// deltas; pointer-up commits, attempts a connection, or ends the pan. The
// machine always returns to idle after a gesture, and at most one gesture
// is ever active.
package session

import (
	"github.com/quantrig/quantrig/pkg/canvas"
	"github.com/quantrig/quantrig/pkg/strategy"
)

// State is the machine's current mode.
type State int

const (
	StateIdle State = iota
	StateDraggingNode
	StateCreatingConnection
	StatePanning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraggingNode:
		return "dragging-node"
	case StateCreatingConnection:
		return "creating-connection"
	case StatePanning:
		return "panning-canvas"
	default:
		return "unknown"
	}
}

// HitKind tags what the host view's hit-test found under a pointer event.
type HitKind int

const (
	HitCanvas HitKind = iota // empty canvas
	HitNode                  // a block body
	HitHandle                // a connection handle
)

// Hit is the host view's classification of a pointer event's target.
// NodeID and Side are meaningful for HitNode and HitHandle.
type Hit struct {
	Kind   HitKind
	NodeID string
	Side   canvas.HandleSide
}

// Tentative is the in-progress wire shown while the user drags from a
// handle, as two screen-space anchors. It exists only in this machine;
// the graph is untouched until the gesture commits.
type Tentative struct {
	Start canvas.Point `json:"start"`
	End   canvas.Point `json:"end"`
}

// Session is the interaction state machine for one editor. It holds a
// reference to the editor's graph so drags can stream position updates
// and wire commits can be attempted; everything else it needs (the
// viewport transform) is passed in on every event, since the host may
// change zoom or pan between events.
type Session struct {
	graph *strategy.Graph
	state State

	// dragging-node
	dragID     string
	grabOffset canvas.Point // canvas-space offset from block origin to grab point

	// creating-connection
	fromID   string
	fromSide canvas.HandleSide
	tent     Tentative

	// panning-canvas
	lastScreen canvas.Point
}

// New creates an idle session bound to a graph. Like the graph, a session
// is owned by its editor instance; there is no shared machine.
func New(g *strategy.Graph) *Session {
	return &Session{graph: g}
}

// State reports the current mode.
func (s *Session) State() State { return s.state }

// DraggedNode returns the id of the block being dragged, or "".
func (s *Session) DraggedNode() string {
	if s.state != StateDraggingNode {
		return ""
	}
	return s.dragID
}

// Tentative returns the live wire's screen anchors while one is being
// drawn.
func (s *Session) Tentative() (Tentative, bool) {
	if s.state != StateCreatingConnection {
		return Tentative{}, false
	}
	return s.tent, true
}

// PointerDown classifies a press and opens the matching gesture. A press
// while a gesture is already active first cancels it, so no two modes are
// ever simultaneously active; committed block positions from an aborted
// drag stay as they are.
func (s *Session) PointerDown(hit Hit, screen canvas.Point, tf canvas.Transform) {
	if s.state != StateIdle {
		s.Cancel()
	}

	switch hit.Kind {
	case HitNode:
		n := s.graph.Node(hit.NodeID)
		if n == nil {
			return
		}
		s.dragID = n.ID
		s.grabOffset = tf.ScreenToCanvas(screen).Sub(n.Position)
		s.state = StateDraggingNode

	case HitHandle:
		n := s.graph.Node(hit.NodeID)
		if n == nil {
			return
		}
		s.fromID = n.ID
		s.fromSide = hit.Side
		start := canvas.HandlePosition(n.Position, hit.Side, tf, n.Dims)
		s.tent = Tentative{Start: start, End: screen}
		s.state = StateCreatingConnection

	case HitCanvas:
		s.lastScreen = screen
		s.state = StatePanning
	}
}

// PointerMove advances the active gesture and returns the (possibly
// updated) viewport transform. Only panning changes the transform; it is
// advanced by the delta from the last captured pointer position, which is
// then re-captured so repeated moves accumulate without drift.
func (s *Session) PointerMove(screen canvas.Point, tf canvas.Transform) canvas.Transform {
	switch s.state {
	case StateDraggingNode:
		// Keep the grab point fixed under the cursor: the block origin is
		// the pointer in canvas space minus the captured grab offset.
		pos := tf.ScreenToCanvas(screen).Sub(s.grabOffset)
		s.graph.MoveNode(s.dragID, pos)

	case StateCreatingConnection:
		s.tent.End = screen

	case StatePanning:
		delta := screen.Sub(s.lastScreen)
		tf.Offset = tf.Offset.Add(delta)
		s.lastScreen = screen
	}
	return tf
}

// PointerUp closes the active gesture and returns to idle. For a wire
// gesture released over a handle it attempts the commit and reports the
// created connection or the typed rejection; a release anywhere else
// cancels the wire without touching the graph. A release with no gesture
// active is a no-op. Node drags need no commit: positions were streamed
// during the move.
func (s *Session) PointerUp(hit Hit, screen canvas.Point, tf canvas.Transform) (*strategy.Connection, strategy.Reject) {
	defer s.reset()

	if s.state != StateCreatingConnection {
		return nil, strategy.RejectNone
	}
	if hit.Kind != HitHandle || hit.NodeID == "" {
		return nil, strategy.RejectNone
	}
	return s.graph.TryCreateConnection(s.fromID, s.fromSide, hit.NodeID, hit.Side)
}

// Cancel forces an immediate return to idle, discarding any tentative
// wire. It is total and synchronous: all session-local state is cleared
// in one step. Block positions already committed by a drag are left
// as-is; drags are not undoable at this layer.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.state = StateIdle
	s.dragID = ""
	s.grabOffset = canvas.Point{}
	s.fromID = ""
	s.fromSide = 0
	s.tent = Tentative{}
	s.lastScreen = canvas.Point{}
}
