package compositor

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/types"
)

// drawUnder paints the parts of a style that sit beneath the photos
func drawUnder(dc *gg.Context, style template.RenderStyle, slots []types.Rect) {
	w, h := float64(dc.Width()), float64(dc.Height())

	switch s := style.(type) {
	case template.Solid:
		fillCanvas(dc, s.Background)
	case template.Double:
		fillCanvas(dc, s.Outer)
	case template.Glow:
		fillCanvas(dc, s.Background)
		for _, slot := range slots {
			drawHalo(dc, slot, s.Color, s.Radius)
		}
	case template.Filmstrip:
		fillCanvas(dc, s.Background)
		drawSprockets(dc, slots, s.Sprocket, s.SprocketSize)
	case template.Polaroid:
		fillCanvas(dc, s.Card)
	case template.Gradient:
		grad := gg.NewLinearGradient(0, 0, 0, h)
		grad.AddColorStop(0, s.From)
		grad.AddColorStop(1, s.To)
		dc.SetFillStyle(grad)
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	}
}

// drawOver paints the parts of a style that sit on top of the photos
func drawOver(dc *gg.Context, style template.RenderStyle, slots []types.Rect, f *truetype.Font) {
	switch s := style.(type) {
	case template.Double:
		drawDoubleBorder(dc, s, slots)
	case template.Glow:
		dc.SetColor(s.Color)
		dc.SetLineWidth(2)
		for _, slot := range slots {
			dc.DrawRectangle(slot.X, slot.Y, slot.Width, slot.Height)
			dc.Stroke()
		}
	case template.Polaroid:
		drawCaption(dc, s, slots, f)
	}
}

func fillCanvas(dc *gg.Context, c color.Color) {
	dc.SetColor(c)
	dc.Clear()
}

func drawDoubleBorder(dc *gg.Context, s template.Double, slots []types.Rect) {
	w, h := float64(dc.Width()), float64(dc.Height())
	lw := s.LineWidth
	if lw <= 0 {
		lw = 2
	}

	dc.SetColor(s.Inner)
	dc.SetLineWidth(lw)

	// outer frame line, inset by the gap
	dc.DrawRectangle(s.Gap, s.Gap, w-2*s.Gap, h-2*s.Gap)
	dc.Stroke()

	for _, slot := range slots {
		dc.DrawRectangle(slot.X-s.Gap/2, slot.Y-s.Gap/2, slot.Width+s.Gap, slot.Height+s.Gap)
		dc.Stroke()
	}
}

// drawHalo approximates a blurred glow with stacked translucent rectangles
func drawHalo(dc *gg.Context, slot types.Rect, c color.NRGBA, radius float64) {
	if radius <= 0 {
		return
	}
	const steps = 8
	for i := steps; i >= 1; i-- {
		pad := radius * float64(i) / steps
		halo := c
		halo.A = uint8(float64(c.A) * 0.12)
		dc.SetColor(halo)
		dc.DrawRoundedRectangle(slot.X-pad, slot.Y-pad, slot.Width+2*pad, slot.Height+2*pad, pad)
		dc.Fill()
	}
}

func drawSprockets(dc *gg.Context, slots []types.Rect, c color.NRGBA, size float64) {
	if size <= 0 || len(slots) == 0 {
		return
	}
	w, h := float64(dc.Width()), float64(dc.Height())

	left, right := w, 0.0
	for _, s := range slots {
		left = math.Min(left, s.X)
		right = math.Max(right, s.Right())
	}

	holeW := size * 0.7
	leftX := math.Max(0, (left-holeW)/2)
	rightX := math.Min(w-holeW, right+(w-right-holeW)/2)

	dc.SetColor(c)
	for y := size / 2; y+size <= h; y += size * 2 {
		dc.DrawRoundedRectangle(leftX, y, holeW, size, size*0.15)
		dc.DrawRoundedRectangle(rightX, y, holeW, size, size*0.15)
	}
	dc.Fill()
}

func drawCaption(dc *gg.Context, s template.Polaroid, slots []types.Rect, f *truetype.Font) {
	if s.Caption == "" || len(slots) == 0 || f == nil {
		return
	}
	w, h := float64(dc.Width()), float64(dc.Height())

	bottom := 0.0
	for _, slot := range slots {
		bottom = math.Max(bottom, slot.Bottom())
	}
	band := h - bottom
	if band <= 0 {
		return
	}

	size := math.Min(band*0.35, w*0.08)
	face := truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
	defer face.Close()

	dc.SetFontFace(face)
	dc.SetColor(s.TextColor)
	dc.DrawStringAnchored(s.Caption, w/2, bottom+band/2, 0.5, 0.5)
}
