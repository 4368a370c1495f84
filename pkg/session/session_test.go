package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrig/quantrig/pkg/canvas"
	"github.com/quantrig/quantrig/pkg/strategy"
)

func newEditor(t *testing.T) (*strategy.Graph, *Session) {
	t.Helper()
	g := strategy.New()
	return g, New(g)
}

func TestNewSessionIsIdle(t *testing.T) {
	_, s := newEditor(t)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.DraggedNode())
	_, active := s.Tentative()
	assert.False(t, active)
}

func TestDragNode(t *testing.T) {
	g, s := newEditor(t)
	n := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 100, Y: 100})

	// Grab 20px right and 10px down of the block origin.
	s.PointerDown(Hit{Kind: HitNode, NodeID: n.ID}, canvas.Point{X: 120, Y: 110}, canvas.Identity)
	require.Equal(t, StateDraggingNode, s.State())
	assert.Equal(t, n.ID, s.DraggedNode())

	s.PointerMove(canvas.Point{X: 220, Y: 150}, canvas.Identity)
	assert.Equal(t, canvas.Point{X: 200, Y: 140}, g.Node(n.ID).Position,
		"the grab point must stay fixed under the cursor")

	s.PointerUp(Hit{Kind: HitCanvas}, canvas.Point{X: 220, Y: 150}, canvas.Identity)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, canvas.Point{X: 200, Y: 140}, g.Node(n.ID).Position,
		"the drop position is already committed")
}

func TestDragNodeUnderZoom(t *testing.T) {
	g, s := newEditor(t)
	n := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 100, Y: 100})
	tf := canvas.Transform{Zoom: 2, Offset: canvas.Point{X: 50, Y: 50}}

	// Screen (250, 250) is canvas (100, 100): grab the block's origin.
	s.PointerDown(Hit{Kind: HitNode, NodeID: n.ID}, canvas.Point{X: 250, Y: 250}, tf)
	// A 100px screen move is a 50-unit canvas move at zoom 2.
	s.PointerMove(canvas.Point{X: 350, Y: 250}, tf)
	assert.Equal(t, canvas.Point{X: 150, Y: 100}, g.Node(n.ID).Position)
}

func TestDragUnknownNodeStaysIdle(t *testing.T) {
	_, s := newEditor(t)
	s.PointerDown(Hit{Kind: HitNode, NodeID: "ghost"}, canvas.Point{}, canvas.Identity)
	assert.Equal(t, StateIdle, s.State())
}

func TestCreateConnection(t *testing.T) {
	g, s := newEditor(t)
	a := g.AddNode(strategy.KindDataSource, "", canvas.Point{X: 100, Y: 100})
	b := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 500, Y: 300})

	s.PointerDown(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideOutput},
		canvas.Point{X: 340, Y: 130}, canvas.Identity)
	require.Equal(t, StateCreatingConnection, s.State())

	tent, active := s.Tentative()
	require.True(t, active)
	assert.Equal(t, canvas.Point{X: 340, Y: 130}, tent.Start,
		"the tentative wire starts at the grabbed handle's anchor")

	s.PointerMove(canvas.Point{X: 420, Y: 200}, canvas.Identity)
	tent, _ = s.Tentative()
	assert.Equal(t, canvas.Point{X: 420, Y: 200}, tent.End)

	conn, rej := s.PointerUp(Hit{Kind: HitHandle, NodeID: b.ID, Side: canvas.SideInput},
		canvas.Point{X: 500, Y: 330}, canvas.Identity)
	require.Equal(t, strategy.RejectNone, rej)
	require.NotNil(t, conn)
	assert.Equal(t, a.ID, conn.Source)
	assert.Equal(t, b.ID, conn.Target)
	assert.Equal(t, StateIdle, s.State())
}

func TestConnectionReleaseOnCanvasCancels(t *testing.T) {
	g, s := newEditor(t)
	a := g.AddNode(strategy.KindDataSource, "", canvas.Point{})

	s.PointerDown(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideOutput},
		canvas.Point{X: 240, Y: 30}, canvas.Identity)
	conn, rej := s.PointerUp(Hit{Kind: HitCanvas}, canvas.Point{X: 400, Y: 400}, canvas.Identity)

	assert.Nil(t, conn)
	assert.Equal(t, strategy.RejectNone, rej)
	assert.Equal(t, 0, g.ConnectionCount(), "an aborted wire must not touch the graph")
	assert.Equal(t, StateIdle, s.State())
}

func TestConnectionRejectionSurfaces(t *testing.T) {
	g, s := newEditor(t)
	a := g.AddNode(strategy.KindDataSource, "", canvas.Point{})

	s.PointerDown(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideOutput},
		canvas.Point{X: 240, Y: 30}, canvas.Identity)
	conn, rej := s.PointerUp(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideInput},
		canvas.Point{X: 0, Y: 30}, canvas.Identity)

	assert.Nil(t, conn)
	assert.Equal(t, strategy.RejectSelfLoop, rej)
	assert.Equal(t, StateIdle, s.State(), "a rejected commit still ends the gesture")
}

func TestPanAccumulatesWithoutDrift(t *testing.T) {
	_, s := newEditor(t)
	tf := canvas.Transform{Zoom: 1.5, Offset: canvas.Point{X: 10, Y: 10}}

	s.PointerDown(Hit{Kind: HitCanvas}, canvas.Point{X: 100, Y: 100}, tf)
	require.Equal(t, StatePanning, s.State())

	// Three small moves must sum exactly like one big one.
	tf = s.PointerMove(canvas.Point{X: 110, Y: 100}, tf)
	tf = s.PointerMove(canvas.Point{X: 110, Y: 130}, tf)
	tf = s.PointerMove(canvas.Point{X: 160, Y: 130}, tf)
	assert.Equal(t, canvas.Point{X: 70, Y: 40}, tf.Offset)
	assert.Equal(t, 1.5, tf.Zoom, "panning never changes zoom")

	s.PointerUp(Hit{Kind: HitCanvas}, canvas.Point{X: 160, Y: 130}, tf)
	assert.Equal(t, StateIdle, s.State())
}

func TestMoveWhileIdleIsNoOp(t *testing.T) {
	g, s := newEditor(t)
	n := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 100, Y: 100})

	tf := s.PointerMove(canvas.Point{X: 999, Y: 999}, canvas.Identity)
	assert.Equal(t, canvas.Identity, tf)
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, g.Node(n.ID).Position)
}

func TestPointerUpWhileIdleIsNoOp(t *testing.T) {
	g, s := newEditor(t)
	a := g.AddNode(strategy.KindDataSource, "", canvas.Point{})

	conn, rej := s.PointerUp(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideInput},
		canvas.Point{}, canvas.Identity)
	assert.Nil(t, conn)
	assert.Equal(t, strategy.RejectNone, rej)
	assert.Equal(t, 0, g.ConnectionCount())
}

func TestNewPressCancelsActiveGesture(t *testing.T) {
	g, s := newEditor(t)
	a := g.AddNode(strategy.KindDataSource, "", canvas.Point{X: 100, Y: 100})
	b := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 500, Y: 300})

	// Start drawing a wire, then press on another block without releasing
	// (e.g. a second touch). The wire is discarded and the drag begins.
	s.PointerDown(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideOutput},
		canvas.Point{X: 340, Y: 130}, canvas.Identity)
	s.PointerDown(Hit{Kind: HitNode, NodeID: b.ID}, canvas.Point{X: 510, Y: 310}, canvas.Identity)

	assert.Equal(t, StateDraggingNode, s.State())
	assert.Equal(t, b.ID, s.DraggedNode())
	_, active := s.Tentative()
	assert.False(t, active, "the tentative wire is discarded")
	assert.Equal(t, 0, g.ConnectionCount())
}

func TestCancelMidDragKeepsCommittedPositions(t *testing.T) {
	g, s := newEditor(t)
	n := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 100, Y: 100})

	s.PointerDown(Hit{Kind: HitNode, NodeID: n.ID}, canvas.Point{X: 100, Y: 100}, canvas.Identity)
	s.PointerMove(canvas.Point{X: 300, Y: 300}, canvas.Identity)
	s.Cancel()

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, canvas.Point{X: 300, Y: 300}, g.Node(n.ID).Position,
		"positions already streamed to the graph stay put")

	// The machine is immediately reusable.
	s.PointerDown(Hit{Kind: HitCanvas}, canvas.Point{}, canvas.Identity)
	assert.Equal(t, StatePanning, s.State())
}

// TestEditFlowEndToEnd walks a full editing round: drag a block, then wire
// it to another, checking the handle anchors recompute from the new
// position.
func TestEditFlowEndToEnd(t *testing.T) {
	g, s := newEditor(t)
	a := g.AddNode(strategy.KindDataSource, "", canvas.Point{X: 100, Y: 100})
	b := g.AddNode(strategy.KindIndicator, "", canvas.Point{X: 500, Y: 300})

	// Drag A 50px right.
	s.PointerDown(Hit{Kind: HitNode, NodeID: a.ID}, canvas.Point{X: 150, Y: 120}, canvas.Identity)
	s.PointerMove(canvas.Point{X: 200, Y: 120}, canvas.Identity)
	s.PointerUp(Hit{Kind: HitCanvas}, canvas.Point{X: 200, Y: 120}, canvas.Identity)
	require.Equal(t, canvas.Point{X: 150, Y: 100}, g.Node(a.ID).Position)

	// A's output handle follows: (150+240, 100+30).
	anchor := canvas.HandlePosition(g.Node(a.ID).Position, canvas.SideOutput, canvas.Identity, g.Node(a.ID).Dims)
	assert.Equal(t, canvas.Point{X: 390, Y: 130}, anchor)

	// Draw the wire from the moved handle to B's input.
	s.PointerDown(Hit{Kind: HitHandle, NodeID: a.ID, Side: canvas.SideOutput}, anchor, canvas.Identity)
	tent, _ := s.Tentative()
	assert.Equal(t, anchor, tent.Start)

	conn, rej := s.PointerUp(Hit{Kind: HitHandle, NodeID: b.ID, Side: canvas.SideInput},
		canvas.Point{X: 500, Y: 330}, canvas.Identity)
	require.Equal(t, strategy.RejectNone, rej)
	assert.Equal(t, a.ID, conn.Source)
	assert.Equal(t, b.ID, conn.Target)

	// The drawn curve between those anchors bows horizontally.
	curve := canvas.CubicPath(anchor, canvas.Point{X: 500, Y: 330})
	assert.Equal(t, canvas.Point{X: 390 + 100, Y: 130}, curve.C1)
	assert.Equal(t, canvas.Point{X: 500 - 100, Y: 330}, curve.C2)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dragging-node", StateDraggingNode.String())
	assert.Equal(t, "creating-connection", StateCreatingConnection.String())
	assert.Equal(t, "panning-canvas", StatePanning.String())
}
