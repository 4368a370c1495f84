package strategy

import (
	"time"

	"github.com/quantrig/quantrig/pkg/canvas"
)

// Node is one block on the canvas: a typed strategy component with a
// canvas-space position (top-left anchor), fixed logical dimensions used
// for handle geometry, and an opaque configuration payload the core never
// interprets.
type Node struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Label     string         `json:"label"`
	Position  canvas.Point   `json:"position"`
	Dims      canvas.Dims    `json:"dims"`
	Config    map[string]any `json:"config"`
	CreatedAt time.Time      `json:"created_at"`
}

// Connection is a directed wire between two blocks. Source is always the
// node whose output handle feeds the edge and Target the node whose input
// handle receives it, regardless of which handle the user grabbed first.
type Connection struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// clone returns a deep copy of the node (the config map is copied).
func (n *Node) clone() Node {
	c := *n
	c.Config = make(map[string]any, len(n.Config))
	for k, v := range n.Config {
		c.Config[k] = v
	}
	return c
}
