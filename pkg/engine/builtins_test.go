package engine

import (
	"strings"
	"testing"

	"github.com/quantrig/quantrig/pkg/canvas"
	"github.com/quantrig/quantrig/pkg/strategy"
)

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keyword", `:kind`, `"__kw_kind"`},
		{"hyphenated keyword", `:max-position-pct`, `"__kw_max-position-pct"`},
		{"kebab identifier", `(crosses-above x)`, `(crosses_above x)`},
		{"minus untouched", `(- 5 3)`, `(- 5 3)`},
		{"negative literal", `:x -350`, `"__kw_x" -350`},
		{"string protected", `"data-source"`, `"data-source"`},
		{"backtick protected", "`raw-text`", "`raw-text`"},
		{"escape in string", `"a\"b-c"`, `"a\"b-c"`},
		{"comment", "; note\n(x)", "// note\n(x)"},
		{"double semicolon", ";; note", "// note"},
		{"assignment preserved", `x := 5`, `x := 5`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.in); got != tt.want {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateShape(t *testing.T) {
	g := strategy.New()
	src := g.AddNode(strategy.KindDataSource, "SPY Close", canvas.Point{X: 80, Y: 120})
	ind := g.AddNode(strategy.KindIndicator, "SMA 20", canvas.Point{X: 420, Y: 120})
	g.TryCreateConnection(src.ID, canvas.SideOutput, ind.ID, canvas.SideInput)

	out := Generate(g.Snapshot())

	if !strings.HasPrefix(out, "; quantrig strategy\n") {
		t.Errorf("missing header:\n%s", out)
	}
	for _, want := range []string{
		`(def b1 (block "SPY Close" :kind "data-source" :x 80 :y 120`,
		`(def b2 (block "SMA 20" :kind "indicator" :x 420 :y 120`,
		`:fn "sma"`,
		`:period 20`,
		"(wire b1 b2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Deterministic: two renders are byte-identical.
	if out != Generate(g.Snapshot()) {
		t.Error("generation is not deterministic")
	}
}

func TestGenerateSkipsDanglingWires(t *testing.T) {
	g := strategy.New()
	a := g.AddNode(strategy.KindMath, "", canvas.Point{})
	b := g.AddNode(strategy.KindMath, "", canvas.Point{})
	g.TryCreateConnection(a.ID, canvas.SideOutput, b.ID, canvas.SideInput)

	snap := g.Snapshot()
	snap.Connections[0].Source = "missing"
	if strings.Contains(Generate(snap), "(wire") {
		t.Error("wires with missing endpoints must not be emitted")
	}
}

// TestGenerateEvaluateRoundTrip is the export contract: generated source
// re-evaluates to an equivalent snapshot, with block identity preserved
// through the :id keyword.
func TestGenerateEvaluateRoundTrip(t *testing.T) {
	g := strategy.New()
	feed := g.AddNode(strategy.KindDataSource, "SPY", canvas.Point{X: 80, Y: 120})
	sma := g.AddNode(strategy.KindIndicator, "SMA 20", canvas.Point{X: 420, Y: 120})
	cross := g.AddNode(strategy.KindCondition, "Cross Above", canvas.Point{X: 760, Y: 120})
	buy := g.AddNode(strategy.KindAction, "Buy", canvas.Point{X: 1100, Y: 120})
	risk := g.AddNode(strategy.KindRisk, "Risk", canvas.Point{X: 1100, Y: 320})
	g.ConfigureNode(risk.ID, map[string]any{"max-position-pct": 5.0, "trailing": true})
	g.MoveNode(sma.ID, canvas.Point{X: 420.5, Y: -64.25})

	g.TryCreateConnection(feed.ID, canvas.SideOutput, sma.ID, canvas.SideInput)
	g.TryCreateConnection(sma.ID, canvas.SideOutput, cross.ID, canvas.SideInput)
	g.TryCreateConnection(cross.ID, canvas.SideOutput, buy.ID, canvas.SideInput)

	before := g.Snapshot()
	source := Generate(before)

	after, evalErrs, err := New().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error re-evaluating generated source: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("generated source produced eval errors: %v\n%s", evalErrs, source)
	}

	if len(after.Nodes) != len(before.Nodes) {
		t.Fatalf("block count = %d, want %d", len(after.Nodes), len(before.Nodes))
	}
	if len(after.Connections) != len(before.Connections) {
		t.Fatalf("wire count = %d, want %d", len(after.Connections), len(before.Connections))
	}

	for i, want := range before.Nodes {
		got := after.Nodes[i]
		if got.ID != want.ID {
			t.Errorf("block %d id = %q, want %q", i, got.ID, want.ID)
		}
		if got.Kind != want.Kind || got.Label != want.Label {
			t.Errorf("block %d identity changed: %+v", i, got)
		}
		if got.Position != want.Position {
			t.Errorf("block %d position = %v, want %v", i, got.Position, want.Position)
		}
		for k, v := range want.Config {
			if got.Config[k] != v {
				t.Errorf("block %d config[%q] = %v, want %v", i, k, got.Config[k], v)
			}
		}
	}
	for i, want := range before.Connections {
		got := after.Connections[i]
		if got.Source != want.Source || got.Target != want.Target {
			t.Errorf("wire %d = %s -> %s, want %s -> %s",
				i, got.Source, got.Target, want.Source, want.Target)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{80, "80"},
		{-64.25, "-64.25"},
		{420.5, "420.5"},
		{0.1, "0.1"},
		{1234.5678, "1234.5678"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
