package strategy

import "fmt"

// ValidationError represents one validation finding. Code is a stable
// machine-readable tag; Message is for people.
type ValidationError struct {
	Code    string
	Message string
	NodeID  string
}

func (e ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (block: %s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// requiredConfig lists the configuration keys each kind must carry before
// a strategy can be exported. Editing tolerates missing keys; export does
// not.
var requiredConfig = map[Kind][]string{
	KindDataSource: {"symbol", "field"},
	KindIndicator:  {"fn", "period"},
	KindCondition:  {"op"},
	KindAction:     {"order", "side"},
	KindRisk:       {"max-position-pct"},
	KindMath:       {"op"},
	KindTiming:     {"session"},
}

// Validate checks a graph's structural health for export: edge
// consistency, acyclicity, flow completeness and per-kind configuration.
// Editing never calls this; an in-progress graph may be arbitrarily
// incomplete.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateEdges(g)...)
	errs = append(errs, validateCycles(g)...)
	errs = append(errs, validateFlow(g)...)
	errs = append(errs, validateConfigs(g)...)
	return errs
}

// validateEdges reports wires whose endpoints are missing. The graph API
// cannot produce these; they can only arrive through a hand-edited
// snapshot import.
func validateEdges(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, c := range g.Connections() {
		if g.Node(c.Source) == nil {
			errs = append(errs, ValidationError{
				Code:    "DANGLING_SOURCE",
				Message: fmt.Sprintf("wire %s references missing source %s", c.ID, c.Source),
			})
		}
		if g.Node(c.Target) == nil {
			errs = append(errs, ValidationError{
				Code:    "DANGLING_TARGET",
				Message: fmt.Sprintf("wire %s references missing target %s", c.ID, c.Target),
			})
		}
	}
	return errs
}

// validateCycles detects cycles with a DFS over the directed wires.
func validateCycles(g *Graph) []ValidationError {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var cyclic []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range g.outgoing(id) {
			if !visited[next] {
				if dfs(next) {
					onStack[id] = false
					return true
				}
			} else if onStack[next] {
				cyclic = append(cyclic, next)
				onStack[id] = false
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, n := range g.Nodes() {
		if !visited[n.ID] && dfs(n.ID) {
			cyclic = append(cyclic, n.ID)
		}
	}

	if len(cyclic) > 0 {
		return []ValidationError{{
			Code:    "GRAPH_CYCLE",
			Message: fmt.Sprintf("strategy contains a signal cycle through %v", cyclic),
		}}
	}
	return nil
}

// validateFlow checks that signal flow is complete: data sources feed
// something, and everything downstream of them is actually fed.
func validateFlow(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.Nodes() {
		in := len(g.incoming(n.ID))
		out := len(g.outgoing(n.ID))
		switch n.Kind {
		case KindDataSource:
			if out == 0 {
				errs = append(errs, ValidationError{
					Code:    "UNUSED_SOURCE",
					Message: fmt.Sprintf("data source %q feeds nothing", n.Label),
					NodeID:  n.ID,
				})
			}
		case KindAction:
			if in == 0 {
				errs = append(errs, ValidationError{
					Code:    "UNFED_ACTION",
					Message: fmt.Sprintf("action %q has no trigger", n.Label),
					NodeID:  n.ID,
				})
			}
		case KindIndicator, KindCondition, KindMath:
			if in == 0 {
				errs = append(errs, ValidationError{
					Code:    "UNFED_BLOCK",
					Message: fmt.Sprintf("%s %q has no input", n.Kind, n.Label),
					NodeID:  n.ID,
				})
			}
		}
	}
	return errs
}

// validateConfigs checks per-kind required configuration keys and labels.
func validateConfigs(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.Nodes() {
		if n.Label == "" {
			errs = append(errs, ValidationError{
				Code:    "EMPTY_LABEL",
				Message: "block must have a label",
				NodeID:  n.ID,
			})
		}
		for _, key := range requiredConfig[n.Kind] {
			if _, ok := n.Config[key]; !ok {
				errs = append(errs, ValidationError{
					Code:    "MISSING_CONFIG",
					Message: fmt.Sprintf("%s %q is missing config key %q", n.Kind, n.Label, key),
					NodeID:  n.ID,
				})
			}
		}
	}
	return errs
}
