package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"

	"github.com/quantrig/quantrig/pkg/canvas"
	"github.com/quantrig/quantrig/pkg/strategy"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms strategy DSL source before handing it to
// zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal),
//     which avoids registering keyword symbols as globals.
//  2. Kebab-case to underscore outside strings and comments, because
//     zygomys reads a hyphen between identifiers as subtraction.
//  3. ; line comments become // comments, zygomys's comment syntax.
//
// String literal boundaries are respected throughout, so kind tags like
// "data-source" survive untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Double-quoted string literals pass through verbatim.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Backtick-quoted literals likewise.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// ; comments -> // comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// :keyword -> "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' { // preserve := assignment
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// alpha-alpha -> alpha_alpha (identifier hyphen, not minus).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether a Sexp is a preprocessed keyword string, returning
// the bare keyword name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs is a parsed mixed positional+keyword argument list. Keyword order
// is preserved for deterministic error messages.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	kwOrder    []string
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
			result.kwOrder = append(result.kwOrder, name)
			continue
		}
		result.positional = append(result.positional, args[i])
		i++
	}
	return result
}

// toFloat64 extracts a float64 from a SexpInt or SexpFloat.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a Go string from a SexpStr.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toConfigValue converts a Sexp into a config payload value. Only strings,
// numbers and booleans are representable in block configuration.
func toConfigValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	}
	return nil, fmt.Errorf("expected string, number or bool, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Snapshot builder
// ---------------------------------------------------------------------------

// sexpBlockRef wraps a block id so (block ...) results can be passed to
// (wire ...).
type sexpBlockRef struct {
	id    string
	label string
}

func (r *sexpBlockRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(blockref %q)", r.label)
}
func (r *sexpBlockRef) Type() *zygo.RegisteredType { return nil }

// builder accumulates the snapshot as builtins execute.
type builder struct {
	nodes map[string]strategy.Node
	order []string
	conns []strategy.Connection
}

func newBuilder() *builder {
	return &builder{nodes: make(map[string]strategy.Node)}
}

func (b *builder) snapshot() strategy.Snapshot {
	s := strategy.Snapshot{
		Nodes:       make([]strategy.Node, 0, len(b.order)),
		Connections: append([]strategy.Connection(nil), b.conns...),
	}
	for _, id := range b.order {
		s.Nodes = append(s.Nodes, b.nodes[id])
	}
	if s.Connections == nil {
		s.Connections = []strategy.Connection{}
	}
	return s
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

// blockReserved are keyword arguments consumed by the block builtin
// itself; everything else flows into the block's config payload.
var blockReserved = map[string]bool{"kind": true, "x": true, "y": true, "id": true}

// registerBuiltins installs the strategy DSL builtins into a zygomys
// environment. They populate the builder as the source executes.
//
// Source must be preprocessed with preprocessSource first so :keyword
// tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (block "label" :kind "indicator" :x 320 :y 120 :fn "sma" :period 20)
	//
	// Declares one block. :kind is required; :x/:y default to 0; :id is
	// accepted so exported strategies round-trip with stable identity.
	// Remaining keywords become the block's config, merged over the
	// kind's defaults.
	// -----------------------------------------------------------------------
	env.AddFunction("block", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("block requires a label")
		}
		label, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block: label: %w", err)
		}

		kindArg, ok := pa.kw["kind"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("block %q: missing :kind", label)
		}
		kindTag, err := toString(kindArg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block %q: kind: %w", label, err)
		}
		kind, err := strategy.ParseKind(kindTag)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block %q: %w", label, err)
		}

		var pos canvas.Point
		if v, ok := pa.kw["x"]; ok {
			if pos.X, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("block %q: x: %w", label, err)
			}
		}
		if v, ok := pa.kw["y"]; ok {
			if pos.Y, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("block %q: y: %w", label, err)
			}
		}

		id := uuid.NewString()
		if v, ok := pa.kw["id"]; ok {
			if id, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("block %q: id: %w", label, err)
			}
		}
		if _, exists := b.nodes[id]; exists {
			return zygo.SexpNull, fmt.Errorf("block %q: duplicate id %q", label, id)
		}

		spec := strategy.SpecFor(kind)
		cfg := spec.Config
		for _, key := range pa.kwOrder {
			if blockReserved[key] {
				continue
			}
			val, err := toConfigValue(pa.kw[key])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("block %q: %s: %w", label, key, err)
			}
			cfg[key] = val
		}

		b.nodes[id] = strategy.Node{
			ID:        id,
			Kind:      kind,
			Label:     label,
			Position:  pos,
			Dims:      spec.Dims,
			Config:    cfg,
			CreatedAt: time.Now(),
		}
		b.order = append(b.order, id)

		return &sexpBlockRef{id: id, label: label}, nil
	})

	// -----------------------------------------------------------------------
	// (wire from to)
	//
	// Wires one block's output into another's input. The same invariants
	// the editor enforces hold here: no self-loops, no duplicate wires
	// between a pair of blocks.
	// -----------------------------------------------------------------------
	env.AddFunction("wire", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("wire requires exactly 2 block references, got %d", len(args))
		}
		from, ok := args[0].(*sexpBlockRef)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("wire: expected block reference, got %T (%s)", args[0], args[0].SexpString(nil))
		}
		to, ok := args[1].(*sexpBlockRef)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("wire: expected block reference, got %T (%s)", args[1], args[1].SexpString(nil))
		}
		if from.id == to.id {
			return zygo.SexpNull, fmt.Errorf("wire: cannot wire %q to itself", from.label)
		}
		for _, c := range b.conns {
			if (c.Source == from.id && c.Target == to.id) || (c.Source == to.id && c.Target == from.id) {
				return zygo.SexpNull, fmt.Errorf("wire: %q and %q are already wired", from.label, to.label)
			}
		}
		b.conns = append(b.conns, strategy.Connection{
			ID:        uuid.NewString(),
			Source:    from.id,
			Target:    to.id,
			CreatedAt: time.Now(),
		})
		return zygo.SexpNull, nil
	})
}

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

// Generate renders a snapshot as strategy DSL source. Output is
// deterministic: blocks in snapshot order, config keys sorted, wires in
// creation order. The result re-evaluates to an equivalent snapshot.
func Generate(snap strategy.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("; quantrig strategy\n")

	refs := make(map[string]string, len(snap.Nodes))
	for i, n := range snap.Nodes {
		ref := fmt.Sprintf("b%d", i+1)
		refs[n.ID] = ref

		sb.WriteString(fmt.Sprintf("(def %s (block %q :kind %q :x %s :y %s :id %q",
			ref, n.Label, n.Kind.String(),
			formatNumber(n.Position.X), formatNumber(n.Position.Y), n.ID))

		keys := make([]string, 0, len(n.Config))
		for k := range n.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" :" + k + " " + formatValue(n.Config[k]))
		}
		sb.WriteString("))\n")
	}

	if len(snap.Connections) > 0 {
		sb.WriteString("\n")
	}
	for _, c := range snap.Connections {
		from, okF := refs[c.Source]
		to, okT := refs[c.Target]
		if !okF || !okT {
			continue
		}
		sb.WriteString(fmt.Sprintf("(wire %s %s)\n", from, to))
	}
	return sb.String()
}

func formatNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", f), "0"), ".")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(x)
	case int:
		return fmt.Sprintf("%d", x)
	default:
		return fmt.Sprintf("%q", fmt.Sprint(x))
	}
}
