package template

import (
	"strings"

	"github.com/menta2k/photobooth/pkg/errors"
)

// Anchor names a fixed placement for symbol decorations
type Anchor string

const (
	AnchorNone         Anchor = ""
	AnchorTopLeft      Anchor = "top-left"
	AnchorTopRight     Anchor = "top-right"
	AnchorTopCenter    Anchor = "top-center"
	AnchorBottomLeft   Anchor = "bottom-left"
	AnchorBottomRight  Anchor = "bottom-right"
	AnchorBottomCenter Anchor = "bottom-center"
)

// anchorCenters holds the fractional centre of each anchor
var anchorCenters = map[Anchor][2]float64{
	AnchorTopLeft:      {0.10, 0.07},
	AnchorTopRight:     {0.90, 0.07},
	AnchorTopCenter:    {0.50, 0.05},
	AnchorBottomLeft:   {0.10, 0.93},
	AnchorBottomRight:  {0.90, 0.93},
	AnchorBottomCenter: {0.50, 0.95},
}

// Position returns the fractional centre for the anchor
func (a Anchor) Position() (x, y float64, ok bool) {
	p, ok := anchorCenters[a]
	return p[0], p[1], ok
}

// Decoration is a sticker image or a text symbol drawn above the frame.
// X, Y and Size are fractions of the canvas: X and Y locate the centre
// (relative to width and height), Size is relative to the width.
// Symbols may use an Anchor instead of X/Y.
type Decoration struct {
	Sticker string  `json:"sticker,omitempty" yaml:"sticker,omitempty"`
	Glyph   string  `json:"glyph,omitempty" yaml:"glyph,omitempty"`
	Color   string  `json:"color,omitempty" yaml:"color,omitempty"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Size    float64 `json:"size" yaml:"size"`
	Anchor  Anchor  `json:"anchor,omitempty" yaml:"anchor,omitempty"`
}

// IsSticker reports whether the decoration draws an image asset
func (d Decoration) IsSticker() bool {
	return d.Sticker != ""
}

// Center resolves the fractional centre, preferring the anchor when set
func (d Decoration) Center() (x, y float64) {
	if ax, ay, ok := d.Anchor.Position(); ok {
		return ax, ay
	}
	return d.X, d.Y
}

// Validate checks that the decoration is drawable
func (d Decoration) Validate() error {
	if d.Sticker == "" && strings.TrimSpace(d.Glyph) == "" {
		return errors.Validation("decoration", "either sticker or glyph is required")
	}
	if d.Size <= 0 || d.Size > 1 {
		return errors.Validation("decoration.size", "must be in (0,1], got %f", d.Size)
	}
	if d.Anchor != AnchorNone {
		if _, _, ok := d.Anchor.Position(); !ok {
			return errors.Validation("decoration.anchor", "unknown anchor %q", d.Anchor)
		}
		return nil
	}
	if d.X < 0 || d.X > 1 || d.Y < 0 || d.Y > 1 {
		return errors.Validation("decoration.position", "x and y must be within [0,1], got %f,%f", d.X, d.Y)
	}
	return nil
}
