package history

import "math"

const (
	MinZoom      = 0.5
	MaxZoom      = 3.0
	ZoomStep     = 0.25
	WheelStep    = 0.1
	ExpandedZoom = 1.5
)

// Point is a pan offset or pointer position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewState is the expand/zoom/pan state of a displayed diagram. Transitions
// return a new value; the zero value is not valid, use DefaultView.
type ViewState struct {
	Expanded bool    `json:"expanded"`
	Zoom     float64 `json:"zoom"`
	Pan      Point   `json:"pan"`
	Dragging bool    `json:"dragging"`

	dragOrigin Point
}

// DefaultView is a collapsed diagram at 100% with no pan.
func DefaultView() ViewState {
	return ViewState{Zoom: 1}
}

func (v ViewState) ZoomIn() ViewState {
	v.Zoom = clampZoom(v.Zoom + ZoomStep)
	return v
}

func (v ViewState) ZoomOut() ViewState {
	v.Zoom = clampZoom(v.Zoom - ZoomStep)
	return v
}

// Wheel zooms in for a negative deltaY and out otherwise.
func (v ViewState) Wheel(deltaY float64) ViewState {
	step := -WheelStep
	if deltaY < 0 {
		step = WheelStep
	}
	v.Zoom = clampZoom(v.Zoom + step)
	return v
}

func (v ViewState) Expand() ViewState {
	v.Expanded = true
	v.Zoom = ExpandedZoom
	v.Pan = Point{}
	return v
}

func (v ViewState) Collapse() ViewState {
	v.Expanded = false
	v.Zoom = 1
	v.Pan = Point{}
	v.Dragging = false
	return v
}

// DragStart begins a pan at pointer position p.
func (v ViewState) DragStart(p Point) ViewState {
	v.Dragging = true
	v.dragOrigin = Point{X: p.X - v.Pan.X, Y: p.Y - v.Pan.Y}
	return v
}

// DragMove pans to follow the pointer. It is a no-op when no drag is active.
func (v ViewState) DragMove(p Point) ViewState {
	if !v.Dragging {
		return v
	}
	v.Pan = Point{X: p.X - v.dragOrigin.X, Y: p.Y - v.dragOrigin.Y}
	return v
}

func (v ViewState) DragEnd() ViewState {
	v.Dragging = false
	return v
}

// clampZoom bounds z to [MinZoom, MaxZoom], rounded to two decimals so
// repeated steps do not drift.
func clampZoom(z float64) float64 {
	z = math.Round(z*100) / 100
	return math.Min(math.Max(z, MinZoom), MaxZoom)
}
