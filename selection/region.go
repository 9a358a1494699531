package selection

import (
	"image"

	"github.com/digitorus/pdfcert/geom"
)

// Region is a mutable wrapper around State for event-driven hosts.
// It is not safe for concurrent use; drive it from a single event loop.
type Region struct {
	state State

	// OnChange, when set, is called after every change that affects what
	// should be drawn.
	OnChange func(State)
}

// State returns a copy of the current state.
func (r *Region) State() State {
	return r.state
}

func (r *Region) SetViewportSize(width, height float64) {
	r.apply(SetViewportSize(r.state, width, height))
}

func (r *Region) SetSourceImage(img image.Image) {
	r.apply(SetSourceImage(r.state, img))
}

// OnDragStart reports whether the event was handled.
func (r *Region) OnDragStart(p geom.Point) bool {
	s, ok := DragStart(r.state, p)
	if ok {
		r.apply(s)
	}
	return ok
}

func (r *Region) OnDragUpdate(p geom.Point) {
	if !r.state.Dragging {
		return
	}
	r.apply(DragUpdate(r.state, p))
}

func (r *Region) OnDragEnd(p geom.Point) {
	if !r.state.Dragging {
		return
	}
	r.apply(DragEnd(r.state, p))
}

// Live returns the view-space rectangle to draw, if any.
func (r *Region) Live() *geom.Rect {
	return Live(r.state)
}

// SelectionInImageSpace returns the committed selection in image pixels.
func (r *Region) SelectionInImageSpace() *geom.Rect {
	return ImageSelection(r.state)
}

func (r *Region) apply(s State) {
	r.state = s
	if r.OnChange != nil {
		r.OnChange(s)
	}
}
