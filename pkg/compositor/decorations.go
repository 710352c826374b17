package compositor

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/menta2k/photobooth/pkg/template"
)

var defaultGlyphColor = color.NRGBA{255, 255, 255, 255}

// drawDecorations draws stickers and glyphs above everything else. A
// sticker that fails to load is skipped.
func (c *Compositor) drawDecorations(ctx context.Context, dc *gg.Context, dst *image.RGBA, decorations []template.Decoration) {
	w, h := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())

	for i, d := range decorations {
		cx, cy := d.Center()
		cx *= w
		cy *= h
		size := d.Size * w

		if d.IsSticker() {
			img, err := c.loadAsset(ctx, d.Sticker)
			if err != nil {
				log.Printf("[Compositor] Warning: skipping sticker %d: %v", i, err)
				continue
			}
			drawSticker(dst, img, cx, cy, size)
			continue
		}

		c.drawGlyph(dc, d, cx, cy, size)
	}
}

// drawSticker scales img to the given width, keeping its aspect, centred on cx,cy
func drawSticker(dst *image.RGBA, img image.Image, cx, cy, width float64) {
	b := img.Bounds()
	height := width * float64(b.Dy()) / float64(b.Dx())
	x0 := int(math.Round(cx - width/2))
	y0 := int(math.Round(cy - height/2))
	target := image.Rect(x0, y0, x0+int(math.Round(width)), y0+int(math.Round(height)))
	if target.Empty() {
		return
	}
	xdraw.CatmullRom.Scale(dst, target, img, b, draw.Over, nil)
}

func (c *Compositor) drawGlyph(dc *gg.Context, d template.Decoration, cx, cy, size float64) {
	col := defaultGlyphColor
	if d.Color != "" {
		parsed, err := template.ParseHexColor(d.Color)
		if err != nil {
			log.Printf("[Compositor] Warning: glyph %q has invalid color: %v", d.Glyph, err)
		} else {
			col = parsed
		}
	}

	face := truetype.NewFace(c.font, &truetype.Options{Size: size, Hinting: font.HintingFull})
	defer face.Close()

	dc.SetFontFace(face)
	dc.SetColor(col)
	dc.DrawStringAnchored(d.Glyph, cx, cy, 0.5, 0.5)
}
