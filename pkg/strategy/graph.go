// Package strategy owns the authoritative node and connection sets of a
// strategy graph and enforces its structural invariants: no self-loops, no
// duplicate edges between the same pair of blocks, normalized direction,
// and cascading deletes. Every successful mutation is announced to
// subscribers synchronously, in mutation order.
package strategy

import (
	"time"

	"github.com/google/uuid"

	"github.com/quantrig/quantrig/pkg/canvas"
)

// Reject classifies why a connection attempt was refused. RejectNone means
// the attempt succeeded. The reasons are exposed so the host can explain a
// refused gesture instead of dropping it silently.
type Reject int

const (
	RejectNone        Reject = iota
	RejectSelfLoop           // both handles belong to the same block
	RejectSameSide           // output-to-output or input-to-input
	RejectDuplicate          // the pair is already wired, in either direction
	RejectUnknownNode        // an endpoint id is not in the graph
)

func (r Reject) String() string {
	switch r {
	case RejectNone:
		return "ok"
	case RejectSelfLoop:
		return "self-loop"
	case RejectSameSide:
		return "same-side"
	case RejectDuplicate:
		return "duplicate"
	case RejectUnknownNode:
		return "unknown-node"
	default:
		return "unknown"
	}
}

// ChangeOp enumerates graph mutations as seen by subscribers.
type ChangeOp int

const (
	NodeAdded ChangeOp = iota
	NodeMoved
	NodeConfigured
	NodeRemoved
	ConnectionAdded
	ConnectionRemoved
)

// Change describes one committed mutation. A NodeRemoved change carries the
// ids of every connection that was cascaded away with the node, so the
// whole removal is observable as a single atomic update.
type Change struct {
	Op           ChangeOp
	NodeID       string
	ConnectionID string
	Cascaded     []string
}

// Graph is the single source of truth for one editor's blocks and wires.
// It is not safe for concurrent use; per the editor's event model every
// mutation happens synchronously inside one input-event handler, and any
// host that introduces other goroutines must serialize access itself.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	conns     map[string]*Connection
	connOrder []string

	subs    map[int]func(Change)
	subSeq  int
	nowFunc func() time.Time
}

// New creates an empty graph. Each editor instance owns exactly one; there
// is deliberately no package-level shared graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		conns:   make(map[string]*Connection),
		subs:    make(map[int]func(Change)),
		nowFunc: time.Now,
	}
}

// Subscribe registers a listener invoked synchronously after every
// successful mutation. The returned function unsubscribes it.
func (g *Graph) Subscribe(fn func(Change)) func() {
	g.subSeq++
	id := g.subSeq
	g.subs[id] = fn
	return func() { delete(g.subs, id) }
}

func (g *Graph) notify(c Change) {
	// Notify in registration order so UI consumers see a stable sequence.
	for id := 1; id <= g.subSeq; id++ {
		if fn, ok := g.subs[id]; ok {
			fn(c)
		}
	}
}

// AddNode creates a block of the given kind at a canvas position, applying
// the kind's template for label, dimensions and starting config. An empty
// label keeps the template's default.
func (g *Graph) AddNode(kind Kind, label string, pos canvas.Point) *Node {
	spec := SpecFor(kind)
	if label == "" {
		label = spec.Label
	}
	n := &Node{
		ID:        uuid.NewString(),
		Kind:      kind,
		Label:     label,
		Position:  pos,
		Dims:      spec.Dims,
		Config:    spec.Config,
		CreatedAt: g.nowFunc(),
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.notify(Change{Op: NodeAdded, NodeID: n.ID})
	return n
}

// MoveNode updates a block's canvas-space position. Positions are not
// clamped; blocks may live anywhere, including off-screen. Unknown ids are
// a no-op.
func (g *Graph) MoveNode(id string, pos canvas.Point) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	n.Position = pos
	g.notify(Change{Op: NodeMoved, NodeID: id})
}

// ConfigureNode replaces a block's configuration payload. The core does
// not interpret the map. Unknown ids are a no-op; the return reports
// whether anything changed.
func (g *Graph) ConfigureNode(id string, cfg map[string]any) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	next := make(map[string]any, len(cfg))
	for k, v := range cfg {
		next[k] = v
	}
	n.Config = next
	g.notify(Change{Op: NodeConfigured, NodeID: id})
	return true
}

// DeleteNode removes a block and every connection touching it. The cascade
// is atomic: subscribers see one NodeRemoved change listing the cascaded
// connection ids. Unknown ids are a no-op, not an error.
func (g *Graph) DeleteNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	var cascaded []string
	kept := g.connOrder[:0]
	for _, cid := range g.connOrder {
		c := g.conns[cid]
		if c.Source == id || c.Target == id {
			delete(g.conns, cid)
			cascaded = append(cascaded, cid)
			continue
		}
		kept = append(kept, cid)
	}
	g.connOrder = kept

	delete(g.nodes, id)
	for i, nid := range g.nodeOrder {
		if nid == id {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			break
		}
	}
	g.notify(Change{Op: NodeRemoved, NodeID: id, Cascaded: cascaded})
}

// TryCreateConnection attempts to wire two handles together. The endpoints
// may arrive in either grab order; whichever side is the output becomes the
// source. Attempts that would violate an invariant return a nil connection
// and the reason:
//
//  1. both handles on one block        -> RejectSelfLoop
//  2. two outputs or two inputs       -> RejectSameSide
//  3. the pair already wired (either  -> RejectDuplicate
//     direction)
//
// On success the connection gets a fresh id and timestamp, is stored, and
// subscribers are notified.
func (g *Graph) TryCreateConnection(aID string, sideA canvas.HandleSide, bID string, sideB canvas.HandleSide) (*Connection, Reject) {
	if _, ok := g.nodes[aID]; !ok {
		return nil, RejectUnknownNode
	}
	if _, ok := g.nodes[bID]; !ok {
		return nil, RejectUnknownNode
	}
	if aID == bID {
		return nil, RejectSelfLoop
	}
	if sideA == sideB {
		return nil, RejectSameSide
	}

	source, target := aID, bID
	if sideB == canvas.SideOutput {
		source, target = bID, aID
	}

	for _, cid := range g.connOrder {
		c := g.conns[cid]
		if (c.Source == aID && c.Target == bID) || (c.Source == bID && c.Target == aID) {
			return nil, RejectDuplicate
		}
	}

	conn := &Connection{
		ID:        uuid.NewString(),
		Source:    source,
		Target:    target,
		CreatedAt: g.nowFunc(),
	}
	g.conns[conn.ID] = conn
	g.connOrder = append(g.connOrder, conn.ID)
	g.notify(Change{Op: ConnectionAdded, ConnectionID: conn.ID})
	return conn, RejectNone
}

// DeleteConnection removes a wire by id. Unknown ids are a no-op.
func (g *Graph) DeleteConnection(id string) {
	if _, ok := g.conns[id]; !ok {
		return
	}
	delete(g.conns, id)
	for i, cid := range g.connOrder {
		if cid == id {
			g.connOrder = append(g.connOrder[:i], g.connOrder[i+1:]...)
			break
		}
	}
	g.notify(Change{Op: ConnectionRemoved, ConnectionID: id})
}

// Node returns the block with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Connection returns the wire with the given id, or nil.
func (g *Graph) Connection(id string) *Connection {
	return g.conns[id]
}

// Nodes returns all blocks in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Connections returns all wires in creation order.
func (g *Graph) Connections() []*Connection {
	out := make([]*Connection, 0, len(g.connOrder))
	for _, id := range g.connOrder {
		out = append(out, g.conns[id])
	}
	return out
}

// NodeCount returns the number of blocks.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// ConnectionCount returns the number of wires.
func (g *Graph) ConnectionCount() int { return len(g.conns) }

// incoming returns the ids of blocks wired into the given block.
func (g *Graph) incoming(id string) []string {
	var in []string
	for _, cid := range g.connOrder {
		if c := g.conns[cid]; c.Target == id {
			in = append(in, c.Source)
		}
	}
	return in
}

// outgoing returns the ids of blocks the given block is wired into.
func (g *Graph) outgoing(id string) []string {
	var out []string
	for _, cid := range g.connOrder {
		if c := g.conns[cid]; c.Source == id {
			out = append(out, c.Target)
		}
	}
	return out
}
