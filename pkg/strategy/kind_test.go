package strategy

import (
	"encoding/json"
	"testing"
)

func TestKindSpecsExhaustive(t *testing.T) {
	for _, k := range Kinds() {
		spec, ok := kindSpecs[k]
		if !ok {
			t.Errorf("kind %s has no template", k)
			continue
		}
		if spec.Label == "" {
			t.Errorf("kind %s has no default label", k)
		}
		if spec.Dims.Width <= 0 || spec.Dims.Height <= 0 {
			t.Errorf("kind %s has degenerate dims %+v", k, spec.Dims)
		}
	}
	if len(kindSpecs) != len(Kinds()) {
		t.Errorf("kindSpecs has %d entries, Kinds() has %d", len(kindSpecs), len(Kinds()))
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Errorf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), parsed, k)
		}
	}
	if _, err := ParseKind("blockchain"); err == nil {
		t.Error("ParseKind should reject unknown tags")
	}
	if _, err := ParseKind(""); err == nil {
		t.Error("ParseKind should reject the empty tag")
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(KindDataSource)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"data-source"` {
		t.Errorf("marshal = %s", b)
	}

	var k Kind
	if err := json.Unmarshal([]byte(`"risk"`), &k); err != nil {
		t.Fatal(err)
	}
	if k != KindRisk {
		t.Errorf("unmarshal = %v, want KindRisk", k)
	}
	if err := json.Unmarshal([]byte(`"widget"`), &k); err == nil {
		t.Error("unmarshal should reject unknown tags")
	}
	if err := json.Unmarshal([]byte(`3`), &k); err == nil {
		t.Error("unmarshal should reject numeric kinds")
	}
}

func TestSpecForCopiesConfig(t *testing.T) {
	a := SpecFor(KindIndicator)
	a.Config["fn"] = "rsi"
	b := SpecFor(KindIndicator)
	if b.Config["fn"] != "sma" {
		t.Error("SpecFor must return an independent config map")
	}
}
