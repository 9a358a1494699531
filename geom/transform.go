package geom

// Transform maps image space to view space with a uniform scale followed by
// a translation: view = image*Scale + Offset.
type Transform struct {
	Scale            float64
	OffsetX, OffsetY float64
}

// Identity is the transform that leaves points unchanged.
var Identity = Transform{Scale: 1}

// Fit returns the transform that shows an imgW x imgH image as large as
// possible inside a viewW x viewH viewport, centred on both axes.
// Non-positive dimensions yield the zero (invalid) transform.
func Fit(imgW, imgH, viewW, viewH float64) Transform {
	if imgW <= 0 || imgH <= 0 || viewW <= 0 || viewH <= 0 {
		return Transform{}
	}
	scale := viewW / imgW
	if s := viewH / imgH; s < scale {
		scale = s
	}
	return Transform{
		Scale:   scale,
		OffsetX: (viewW - imgW*scale) / 2,
		OffsetY: (viewH - imgH*scale) / 2,
	}
}

// Valid reports whether the transform can be inverted.
func (t Transform) Valid() bool {
	return t.Scale > 0
}

// ToView maps an image-space point into view space.
func (t Transform) ToView(p Point) Point {
	return Point{X: p.X*t.Scale + t.OffsetX, Y: p.Y*t.Scale + t.OffsetY}
}

// ToImage maps a view-space point back into image space.
func (t Transform) ToImage(p Point) Point {
	return Point{X: (p.X - t.OffsetX) / t.Scale, Y: (p.Y - t.OffsetY) / t.Scale}
}

// RectToView maps an image-space rectangle into view space.
func (t Transform) RectToView(r Rect) Rect {
	return NewRect(t.ToView(Point{r.Left, r.Top}), t.ToView(Point{r.Right, r.Bottom}))
}

// RectToImage maps a view-space rectangle into image space.
func (t Transform) RectToImage(r Rect) Rect {
	return NewRect(t.ToImage(Point{r.Left, r.Top}), t.ToImage(Point{r.Right, r.Bottom}))
}

// ImageBounds returns the view-space rectangle covered by an imgW x imgH image.
func (t Transform) ImageBounds(imgW, imgH float64) Rect {
	return RectWH(t.OffsetX, t.OffsetY, imgW*t.Scale, imgH*t.Scale)
}
