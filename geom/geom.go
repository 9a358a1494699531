// Package geom provides the float geometry shared by the selection widget and
// the certificate renderer: points, normalised rectangles and the centred,
// aspect-preserving transform between image space and view space.
package geom

import "math"

// Point is a location in either image or view space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle with Left <= Right and Top <= Bottom.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// NewRect returns the bounding box of two arbitrary corner points.
func NewRect(a, b Point) Rect {
	return Rect{
		Left:   math.Min(a.X, b.X),
		Top:    math.Min(a.Y, b.Y),
		Right:  math.Max(a.X, b.X),
		Bottom: math.Max(a.Y, b.Y),
	}
}

// RectWH returns a rectangle from an origin and a size.
func RectWH(x, y, w, h float64) Rect {
	return NewRect(Point{x, y}, Point{x + w, y + h})
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// CenterX returns the horizontal centre of the rectangle.
func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }

// CenterY returns the vertical centre of the rectangle.
func (r Rect) CenterY() float64 { return (r.Top + r.Bottom) / 2 }

// Empty reports whether the rectangle has zero area.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Clamp limits every edge of r to bounds. A rectangle that lies outside
// bounds collapses onto the nearest edge and ends up with zero area.
func (r Rect) Clamp(bounds Rect) Rect {
	return Rect{
		Left:   clamp(r.Left, bounds.Left, bounds.Right),
		Top:    clamp(r.Top, bounds.Top, bounds.Bottom),
		Right:  clamp(r.Right, bounds.Left, bounds.Right),
		Bottom: clamp(r.Bottom, bounds.Top, bounds.Bottom),
	}
}

// Scale multiplies horizontal coordinates by sx and vertical ones by sy.
func (r Rect) Scale(sx, sy float64) Rect {
	return NewRect(Point{r.Left * sx, r.Top * sy}, Point{r.Right * sx, r.Bottom * sy})
}

// Approx reports whether every edge of r is within eps of the matching edge of o.
func (r Rect) Approx(o Rect, eps float64) bool {
	return math.Abs(r.Left-o.Left) <= eps &&
		math.Abs(r.Top-o.Top) <= eps &&
		math.Abs(r.Right-o.Right) <= eps &&
		math.Abs(r.Bottom-o.Bottom) <= eps
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
