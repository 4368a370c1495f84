package strategy

// Snapshot is the plain-data projection of a graph handed to the
// generation and persistence collaborators. It carries no behavior; the
// consumer is fully responsible for interpreting block kinds and configs.
type Snapshot struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Snapshot exports a deep copy of the graph in insertion order. Mutating
// the result never touches the live graph.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:       make([]Node, 0, len(g.nodeOrder)),
		Connections: make([]Connection, 0, len(g.connOrder)),
	}
	for _, id := range g.nodeOrder {
		s.Nodes = append(s.Nodes, g.nodes[id].clone())
	}
	for _, id := range g.connOrder {
		s.Connections = append(s.Connections, *g.conns[id])
	}
	return s
}

// FromSnapshot rebuilds a graph from exported data, preserving ids,
// timestamps and ordering. Connections whose endpoints are missing from
// the snapshot are dropped rather than imported dangling.
func FromSnapshot(s Snapshot) *Graph {
	g := New()
	for i := range s.Nodes {
		n := s.Nodes[i].clone()
		g.nodes[n.ID] = &n
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	for i := range s.Connections {
		c := s.Connections[i]
		if _, ok := g.nodes[c.Source]; !ok {
			continue
		}
		if _, ok := g.nodes[c.Target]; !ok {
			continue
		}
		cc := c
		g.conns[cc.ID] = &cc
		g.connOrder = append(g.connOrder, cc.ID)
	}
	return g
}
