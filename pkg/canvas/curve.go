package canvas

import (
	"fmt"
	"math"
)

// minControlOffset is the smallest horizontal control-point offset, in
// pixels. It keeps short wires from collapsing into straight lines.
const minControlOffset = 100

// Curve is a single cubic Bezier segment in screen space. It describes how
// a wire is drawn between two handle anchors; it carries no graph state.
type Curve struct {
	Start Point `json:"start"`
	C1    Point `json:"c1"`
	C2    Point `json:"c2"`
	End   Point `json:"end"`
}

// CubicPath builds the wire curve between two anchors. Both control points
// are offset horizontally from their anchor by max(|dx|*0.5, 100), with no
// vertical offset: outward from the start (an output handle) and inward
// toward the end (an input handle). The result is a smooth S-curve even
// when the end anchor is left of or above the start.
func CubicPath(start, end Point) Curve {
	off := math.Max(math.Abs(end.X-start.X)*0.5, minControlOffset)
	return Curve{
		Start: start,
		C1:    Point{X: start.X + off, Y: start.Y},
		C2:    Point{X: end.X - off, Y: end.Y},
		End:   end,
	}
}

// Evaluate returns the point on the curve at parameter t in [0,1].
func (c Curve) Evaluate(t float64) Point {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	mt := 1 - t
	mt2 := mt * mt
	mt3 := mt2 * mt
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: mt3*c.Start.X + 3*mt2*t*c.C1.X + 3*mt*t2*c.C2.X + t3*c.End.X,
		Y: mt3*c.Start.Y + 3*mt2*t*c.C1.Y + 3*mt*t2*c.C2.Y + t3*c.End.Y,
	}
}

// Length approximates the curve length by sampling.
func (c Curve) Length() float64 {
	const samples = 100
	length := 0.0
	prev := c.Evaluate(0)
	for i := 1; i <= samples; i++ {
		curr := c.Evaluate(float64(i) / samples)
		dx := curr.X - prev.X
		dy := curr.Y - prev.Y
		length += math.Sqrt(dx*dx + dy*dy)
		prev = curr
	}
	return length
}

// SVGPath renders the curve as an SVG/Canvas2D path string.
func (c Curve) SVGPath() string {
	return fmt.Sprintf("M %g %g C %g %g, %g %g, %g %g",
		c.Start.X, c.Start.Y, c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.End.X, c.End.Y)
}
