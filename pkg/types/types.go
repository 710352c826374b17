package types

import "math"

// Rect is an axis-aligned rectangle in frame-pixel coordinates
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Point is a position in either display or frame-pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 {
	return r.X + r.Width
}

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// Aspect returns width/height
func (r Rect) Aspect() float64 {
	return r.Width / r.Height
}

// Contains reports whether p lies inside the rectangle (edges included)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Scale multiplies every coordinate by f
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Within reports whether r lies fully inside [0,w] x [0,h]
func (r Rect) Within(w, h float64) bool {
	const eps = 1e-9
	return r.X >= -eps && r.Y >= -eps && r.Right() <= w+eps && r.Bottom() <= h+eps
}

// Pixels rounds the rectangle to integer pixel edges
func (r Rect) Pixels() (x0, y0, x1, y1 int) {
	x0 = int(math.Round(r.X))
	y0 = int(math.Round(r.Y))
	x1 = int(math.Round(r.Right()))
	y1 = int(math.Round(r.Bottom()))
	return x0, y0, x1, y1
}

// ToPixels converts a normalized box into a frame-pixel rectangle
func (b Box) ToPixels(w, h float64) Rect {
	return Rect{X: b.X * w, Y: b.Y * h, Width: b.W * w, Height: b.H * h}
}

// WindowResult is a vision model's answer to a photo-window query
type WindowResult struct {
	Windows     []Box  `json:"windows"`
	Description string `json:"description"`
}
