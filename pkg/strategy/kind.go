package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/quantrig/quantrig/pkg/canvas"
)

// Kind enumerates the block types a strategy graph can contain. The set is
// closed: every kind has an entry in kindSpecs, and ParseKind rejects
// anything else.
type Kind int

const (
	KindDataSource Kind = iota // market data feed (quotes, candles)
	KindIndicator              // derived series (SMA, RSI, ATR)
	KindCondition              // boolean predicate over inputs
	KindAction                 // order placement (buy, sell, close)
	KindRisk                   // position sizing / stop constraints
	KindMath                   // arithmetic combinator
	KindTiming                 // session / schedule gate
)

func (k Kind) String() string {
	switch k {
	case KindDataSource:
		return "data-source"
	case KindIndicator:
		return "indicator"
	case KindCondition:
		return "condition"
	case KindAction:
		return "action"
	case KindRisk:
		return "risk"
	case KindMath:
		return "math"
	case KindTiming:
		return "timing"
	default:
		return "unknown"
	}
}

// ParseKind converts the wire-format kind tag used by the host view and
// the DSL. Unknown tags are an error, keeping the set closed.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "data-source":
		return KindDataSource, nil
	case "indicator":
		return KindIndicator, nil
	case "condition":
		return KindCondition, nil
	case "action":
		return KindAction, nil
	case "risk":
		return KindRisk, nil
	case "math":
		return KindMath, nil
	case "timing":
		return KindTiming, nil
	}
	return 0, fmt.Errorf("strategy: unknown block kind %q", s)
}

// MarshalJSON encodes kinds as their string tags so snapshots stay readable
// and stable across reorderings of the enum.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindSpec is the template applied when a block of a given kind is added:
// default label, logical dimensions used for handle geometry, and the
// starting configuration payload.
type KindSpec struct {
	Label  string
	Dims   canvas.Dims
	Config map[string]any
}

// kindSpecs maps every kind to its template. The table is exhaustive over
// the Kind constants; TestKindSpecsExhaustive enforces that.
var kindSpecs = map[Kind]KindSpec{
	KindDataSource: {
		Label:  "Data Source",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"symbol": "SPY", "field": "close", "interval": "1d"},
	},
	KindIndicator: {
		Label:  "Indicator",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"fn": "sma", "period": 20.0},
	},
	KindCondition: {
		Label:  "Condition",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"op": "crosses-above"},
	},
	KindAction: {
		Label:  "Action",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"order": "market", "side": "buy"},
	},
	KindRisk: {
		Label:  "Risk",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"max-position-pct": 10.0, "stop-loss-pct": 2.0},
	},
	KindMath: {
		Label:  "Math",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"op": "subtract"},
	},
	KindTiming: {
		Label:  "Timing",
		Dims:   canvas.Dims{Width: 240, Height: 60},
		Config: map[string]any{"session": "regular"},
	},
}

// Kinds returns all block kinds in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindDataSource, KindIndicator, KindCondition,
		KindAction, KindRisk, KindMath, KindTiming,
	}
}

// SpecFor returns the template for a kind. The config map is copied so
// callers can mutate it freely.
func SpecFor(k Kind) KindSpec {
	spec := kindSpecs[k]
	cfg := make(map[string]any, len(spec.Config))
	for key, v := range spec.Config {
		cfg[key] = v
	}
	spec.Config = cfg
	return spec
}
