package template

import (
	"image/color"

	"github.com/menta2k/photobooth/pkg/types"
)

var (
	white    = color.NRGBA{255, 255, 255, 255}
	black    = color.NRGBA{20, 20, 20, 255}
	charcoal = color.NRGBA{34, 34, 40, 255}
	rose     = color.NRGBA{236, 72, 153, 255}
	amber    = color.NRGBA{245, 158, 11, 255}
	violet   = color.NRGBA{139, 92, 246, 255}
)

// stripSlots are the three slots shared by the 600x1800 strip templates
var stripSlots = []types.Rect{
	{X: 90, Y: 60, Width: 420, Height: 520},
	{X: 90, Y: 640, Width: 420, Height: 520},
	{X: 90, Y: 1220, Width: 420, Height: 520},
}

// Defaults returns the built-in templates. They are immutable: the returned
// values are fresh copies on every call.
func Defaults() []*Template {
	defaults := []*Template{
		{
			ID:          "classic",
			Name:        "Classic",
			Shots:       1,
			FrameWidth:  1200,
			FrameHeight: 1500,
			PhotoSlots:  []types.Rect{{X: 60, Y: 60, Width: 1080, Height: 1080}},
			Style:       Solid{Background: white},
		},
		{
			ID:          "polaroid",
			Name:        "Polaroid",
			Shots:       1,
			FrameWidth:  1080,
			FrameHeight: 1300,
			PhotoSlots:  []types.Rect{{X: 60, Y: 60, Width: 960, Height: 960}},
			Style:       Polaroid{Card: white, Caption: "photobooth", TextColor: charcoal},
		},
		{
			ID:          "neon",
			Name:        "Neon Glow",
			Shots:       1,
			FrameWidth:  1200,
			FrameHeight: 900,
			PhotoSlots:  []types.Rect{{X: 80, Y: 80, Width: 1040, Height: 740}},
			Style:       Glow{Background: charcoal, Color: rose, Radius: 36},
		},
		{
			ID:          "double-strip",
			Name:        "Double Strip",
			Shots:       2,
			FrameWidth:  600,
			FrameHeight: 1300,
			PhotoSlots: []types.Rect{
				{X: 60, Y: 60, Width: 480, Height: 540},
				{X: 60, Y: 640, Width: 480, Height: 540},
			},
			Style: Double{Outer: white, Inner: charcoal, LineWidth: 4, Gap: 12},
			Decorations: []Decoration{
				{Glyph: "*", Color: "#f59e0b", Anchor: AnchorBottomCenter, Size: 0.08},
			},
		},
		{
			ID:          "filmstrip",
			Name:        "Filmstrip",
			Shots:       3,
			FrameWidth:  600,
			FrameHeight: 1800,
			PhotoSlots:  append([]types.Rect(nil), stripSlots...),
			Style:       Filmstrip{Background: black, Sprocket: white, SprocketSize: 36},
		},
		{
			ID:          "sunset-strip",
			Name:        "Sunset Strip",
			Shots:       3,
			FrameWidth:  600,
			FrameHeight: 1800,
			PhotoSlots:  append([]types.Rect(nil), stripSlots...),
			Style:       Gradient{From: amber, To: violet},
			Decorations: []Decoration{
				{Glyph: "+", Color: "#38bdf8", Anchor: AnchorTopLeft, Size: 0.06},
				{Glyph: "+", Color: "#38bdf8", Anchor: AnchorTopRight, Size: 0.06},
			},
		},
	}

	for _, t := range defaults {
		t.IsDefault = true
	}
	return defaults
}

// DefaultIDs returns the ids of the built-in templates
func DefaultIDs() []string {
	defaults := Defaults()
	ids := make([]string, len(defaults))
	for i, t := range defaults {
		ids[i] = t.ID
	}
	return ids
}
