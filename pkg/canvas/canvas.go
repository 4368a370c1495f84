// Package canvas implements the coordinate algebra shared by the editor:
// conversions between screen space (pixels, as delivered by pointer events)
// and canvas space (logical block positions, independent of zoom and pan),
// plus the geometry of connection handles and wires.
package canvas

import "fmt"

// Point is a 2D point. Whether it is in screen or canvas space depends on
// context; functions in this package say which they expect.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Dims holds the fixed logical width and height of a block, in canvas units.
type Dims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform is the viewport state of the canvas: a zoom factor and a pan
// offset in screen pixels. It is owned by the host view, not by this
// package; callers pass it in on every conversion because it can change
// between any two pointer events.
//
// Zoom must be positive. Passing zoom <= 0 is a contract violation; the
// host clamps zoom before invoking anything here, and this package does
// not defend against it.
type Transform struct {
	Zoom   float64 `json:"zoom"`
	Offset Point   `json:"offset"`
}

// Identity is the neutral transform: zoom 1, no pan.
var Identity = Transform{Zoom: 1}

// ScreenToCanvas maps a screen-space point into canvas space.
func (t Transform) ScreenToCanvas(p Point) Point {
	return Point{
		X: (p.X - t.Offset.X) / t.Zoom,
		Y: (p.Y - t.Offset.Y) / t.Zoom,
	}
}

// CanvasToScreen maps a canvas-space point onto the screen. It is the
// inverse of ScreenToCanvas: the round trip reproduces the input up to
// floating-point tolerance for any finite zoom > 0.
func (t Transform) CanvasToScreen(p Point) Point {
	return Point{
		X: p.X*t.Zoom + t.Offset.X,
		Y: p.Y*t.Zoom + t.Offset.Y,
	}
}

// HandleSide distinguishes the two connection anchors on a block.
type HandleSide int

const (
	SideInput  HandleSide = iota // left edge, receives a wire
	SideOutput                   // right edge, feeds a wire
)

func (s HandleSide) String() string {
	switch s {
	case SideInput:
		return "input"
	case SideOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ParseSide converts the wire-format side tag used by the host view.
func ParseSide(s string) (HandleSide, error) {
	switch s {
	case "input":
		return SideInput, nil
	case "output":
		return SideOutput, nil
	}
	return 0, fmt.Errorf("canvas: unknown handle side %q", s)
}

// HandlePosition returns the screen-space anchor of a block's handle.
// The input handle sits at the vertical midpoint of the left edge, the
// output handle at the vertical midpoint of the right edge. The anchor is
// computed in canvas space first, then mapped through the transform.
func HandlePosition(pos Point, side HandleSide, t Transform, d Dims) Point {
	anchor := Point{X: pos.X, Y: pos.Y + d.Height/2}
	if side == SideOutput {
		anchor.X = pos.X + d.Width
	}
	return t.CanvasToScreen(anchor)
}
