package editor

import "github.com/menta2k/photobooth/pkg/types"

// PointerType is the phase of a pointer event
type PointerType int

const (
	PointerDown PointerType = iota
	PointerMove
	PointerUp
	PointerCancel
)

// Device identifies the input hardware. Gestures behave the same for all of
// them; it is kept for logging and front-end hints.
type Device string

const (
	DeviceMouse Device = "mouse"
	DeviceTouch Device = "touch"
	DevicePen   Device = "pen"
)

// PointerEvent is a single pointer sample in display coordinates
type PointerEvent struct {
	Type      PointerType
	X         float64
	Y         float64
	PointerID int
	Device    Device
}

// Corner names a slot resize handle
type Corner int

const (
	CornerNone Corner = iota
	CornerTopLeft
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

func (c Corner) String() string {
	switch c {
	case CornerTopLeft:
		return "top-left"
	case CornerTopRight:
		return "top-right"
	case CornerBottomLeft:
		return "bottom-left"
	case CornerBottomRight:
		return "bottom-right"
	default:
		return "none"
	}
}

// Hit is the result of a hit test: the slot under the pointer and, when
// over a resize handle, which corner
type Hit struct {
	Slot   int
	Corner Corner
}

// NoHit is returned when the pointer is over no slot
var NoHit = Hit{Slot: -1}

type cornerPoint struct {
	corner Corner
	point  types.Point
}

// corners returns the four corner points of r in a fixed order
func corners(r types.Rect) [4]cornerPoint {
	return [4]cornerPoint{
		{CornerTopLeft, types.Point{X: r.X, Y: r.Y}},
		{CornerTopRight, types.Point{X: r.Right(), Y: r.Y}},
		{CornerBottomLeft, types.Point{X: r.X, Y: r.Bottom()}},
		{CornerBottomRight, types.Point{X: r.Right(), Y: r.Bottom()}},
	}
}

// gesture tracks an in-progress drag or resize
type gesture struct {
	pointerID int
	slot      int
	corner    Corner
	start     types.Point
	startRect types.Rect
}
