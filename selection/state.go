// Package selection tracks a rectangle dragged over a scaled preview of a
// template page.
//
// The preview is drawn centred inside a viewport with a uniform scale. Drags
// arrive in view coordinates, are clamped to the displayed image and are
// exported in image pixel coordinates.
//
// The core is a set of pure transition functions over State. Hosts that prefer
// a mutable object can use Region, which wraps a State and reports changes.
package selection

import (
	"image"

	"github.com/digitorus/pdfcert/geom"
)

// State is the complete selection state. The zero value has no viewport, no
// image and no selection.
type State struct {
	ViewWidth, ViewHeight   float64
	ImageWidth, ImageHeight float64
	Transform               geom.Transform

	Dragging    bool
	DragStart   geom.Point
	DragCurrent geom.Point

	// Committed is the last finished drag in view space.
	Committed *geom.Rect
	// CommitTransform is the transform that was in effect when Committed was set.
	CommitTransform geom.Transform

	source image.Image
}

// SetViewportSize records the viewport size and recomputes the transform.
// A committed selection is kept in view space.
func SetViewportSize(s State, width, height float64) State {
	s.ViewWidth, s.ViewHeight = width, height
	return refit(s)
}

// SetSourceImage records the preview image and recomputes the transform.
// Switching to a different image discards any drag and committed selection;
// setting the same image again only refreshes the transform.
func SetSourceImage(s State, img image.Image) State {
	if img == nil {
		return SetImageSize(s, nil, 0, 0)
	}
	b := img.Bounds()
	return SetImageSize(s, img, float64(b.Dx()), float64(b.Dy()))
}

// SetImageSize is SetSourceImage for hosts that only know the preview size.
// The key identifies the image; nil never matches a previous image.
func SetImageSize(s State, key image.Image, width, height float64) State {
	if key == nil || key != s.source {
		s.Dragging = false
		s.Committed = nil
		s.CommitTransform = geom.Transform{}
	}
	s.source = key
	s.ImageWidth, s.ImageHeight = width, height
	return refit(s)
}

func refit(s State) State {
	s.Transform = geom.Fit(s.ImageWidth, s.ImageHeight, s.ViewWidth, s.ViewHeight)
	return s
}

// ImageBounds returns the view-space rectangle the image is displayed in.
// ok is false while either the viewport or the image is unknown.
func ImageBounds(s State) (r geom.Rect, ok bool) {
	if !s.Transform.Valid() {
		return geom.Rect{}, false
	}
	return s.Transform.ImageBounds(s.ImageWidth, s.ImageHeight), true
}

// DragStart begins a new drag at p. It returns false and leaves the state
// untouched when p is outside the displayed image.
func DragStart(s State, p geom.Point) (State, bool) {
	bounds, ok := ImageBounds(s)
	if !ok || !bounds.Contains(p) {
		return s, false
	}
	s.Dragging = true
	s.DragStart = p
	s.DragCurrent = p
	s.Committed = nil
	s.CommitTransform = geom.Transform{}
	return s, true
}

// DragUpdate moves the free corner of the live rectangle to p.
func DragUpdate(s State, p geom.Point) State {
	if !s.Dragging {
		return s
	}
	s.DragCurrent = p
	return s
}

// DragEnd moves the free corner to p and commits the clamped rectangle.
// Zero-area rectangles are committed as well; callers decide whether they
// are usable.
func DragEnd(s State, p geom.Point) State {
	if !s.Dragging {
		return s
	}
	s = DragUpdate(s, p)
	r, _ := liveRect(s)
	s.Dragging = false
	s.Committed = &r
	s.CommitTransform = s.Transform
	return s
}

// Live returns the rectangle to draw in view space: the clamped drag while
// one is in progress, otherwise the committed selection.
func Live(s State) *geom.Rect {
	if s.Dragging {
		if r, ok := liveRect(s); ok {
			return &r
		}
		return nil
	}
	if s.Committed == nil {
		return nil
	}
	r := *s.Committed
	return &r
}

func liveRect(s State) (geom.Rect, bool) {
	bounds, ok := ImageBounds(s)
	if !ok {
		return geom.Rect{}, false
	}
	return geom.NewRect(s.DragStart, s.DragCurrent).Clamp(bounds), true
}

// ImageSelection returns the committed selection in image pixel space, or
// nil when nothing has been committed.
func ImageSelection(s State) *geom.Rect {
	if s.Committed == nil || !s.CommitTransform.Valid() {
		return nil
	}
	r := s.CommitTransform.RectToImage(*s.Committed)
	return &r
}
