// Package render draws certificate text onto rasterised template pages.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/digitorus/pdfcert/fonts"
	"github.com/digitorus/pdfcert/geom"
)

// DefaultHeightRatio is the ratio between the selection height and the font size.
const DefaultHeightRatio = 1.5

// TextElement describes one line of text centred inside a rectangle.
type TextElement struct {
	Content string
	Font    *fonts.Font
	Color   color.Color
	Rect    geom.Rect // in pixels of the destination image

	// HeightRatio divides Rect's height to get the font size.
	// Zero means DefaultHeightRatio.
	HeightRatio float64
}

// Layout is where and how large a TextElement is drawn.
type Layout struct {
	Size    float64
	Origin  geom.Point // left end of the baseline
	Width   float64
	Ascent  float64
	Descent float64
}

// Measure computes the layout of e without drawing it.
//
// The font size is the rectangle height divided by the height ratio. The text
// is centred on the rectangle's horizontal centre and its baseline is placed
// so that the middle of the ascent..descent band sits on the vertical centre.
func Measure(e TextElement) (Layout, error) {
	if e.Font == nil {
		return Layout{}, fmt.Errorf("no font")
	}
	ratio := e.HeightRatio
	if ratio <= 0 {
		ratio = DefaultHeightRatio
	}
	size := e.Rect.Height() / ratio
	if size <= 0 {
		return Layout{}, fmt.Errorf("selection height %.2f gives no usable font size", e.Rect.Height())
	}

	m, err := e.Font.Metrics(size)
	if err != nil {
		return Layout{}, err
	}
	width := m.StringWidth(e.Content)
	origin := geom.Point{
		X: e.Rect.CenterX() - width/2,
		Y: e.Rect.CenterY() + (m.Ascent-m.Descent)/2,
	}
	return Layout{
		Size:    size,
		Origin:  origin,
		Width:   width,
		Ascent:  m.Ascent,
		Descent: m.Descent,
	}, nil
}

// DrawText draws e onto dst and returns the layout used.
func DrawText(dst draw.Image, e TextElement) (Layout, error) {
	l, err := Measure(e)
	if err != nil {
		return Layout{}, err
	}

	face, err := e.Font.Face(l.Size)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to create face: %w", err)
	}
	defer face.Close()

	c := e.Color
	if c == nil {
		c = color.Black
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(l.Origin.X), Y: toFixed(l.Origin.Y)},
	}
	d.DrawString(e.Content)
	return l, nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v*64 + 0.5)
}
