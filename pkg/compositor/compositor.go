// Package compositor renders captured frames and a template into the final
// photo: background or style, cropped photos in their slots, frame artwork
// over the top and decorations last.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/menta2k/photobooth/pkg/cropper"
	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/types"
)

// FrameSource yields the current live frame
type FrameSource interface {
	Frame() (image.Image, error)
}

// AssetLoader resolves frame art and sticker references
type AssetLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Config holds compositor settings
type Config struct {
	// MarginRatio and GapRatio lay out fallback slots when frame art fails
	MarginRatio float64
	GapRatio    float64
	// Background is the substrate behind photos and frame art
	Background color.NRGBA
}

// DefaultConfig returns the standard compositor configuration
func DefaultConfig() Config {
	return Config{
		MarginRatio: 0.12,
		GapRatio:    0.04,
		Background:  color.NRGBA{255, 255, 255, 255},
	}
}

// Result is a finished composite. Degraded is set when frame artwork could
// not be loaded and photos were laid out in evenly spaced fallback slots.
type Result struct {
	Image    *image.RGBA
	Degraded bool
}

// Compositor renders templates
type Compositor struct {
	loader AssetLoader
	config Config
	font   *truetype.Font
}

// New creates a compositor. loader may be nil when only programmatic
// styles and glyph decorations are used.
func New(loader AssetLoader, config Config) (*Compositor, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	defaults := DefaultConfig()
	if config.MarginRatio <= 0 {
		config.MarginRatio = defaults.MarginRatio
	}
	if config.GapRatio <= 0 {
		config.GapRatio = defaults.GapRatio
	}
	if config.Background.A == 0 {
		config.Background = defaults.Background
	}
	return &Compositor{loader: loader, config: config, font: f}, nil
}

// CompositeSingle reads one frame from src and composites it into slot 0
func (c *Compositor) CompositeSingle(ctx context.Context, src FrameSource, tpl *template.Template, mirrored bool) (*Result, error) {
	if tpl == nil {
		return nil, errors.Validation("template", "template is required")
	}
	if tpl.Shots != 1 {
		return nil, errors.Validation("shots", "single composite needs a one-shot template, got %d", tpl.Shots)
	}
	frame, err := src.Frame()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return c.CompositeStrip(ctx, []image.Image{frame}, tpl, mirrored)
}

// CompositeStrip composites len(frames) == tpl.Shots captures, frame i into
// slot i. The frame slice is copied on entry.
func (c *Compositor) CompositeStrip(ctx context.Context, frames []image.Image, tpl *template.Template, mirrored bool) (*Result, error) {
	if tpl == nil {
		return nil, errors.Validation("template", "template is required")
	}
	if len(frames) != tpl.Shots {
		return nil, errors.Validation("frames", "template %s needs %d frames, got %d", tpl.ID, tpl.Shots, len(frames))
	}
	if tpl.FrameWidth <= 0 || tpl.FrameHeight <= 0 {
		return nil, errors.Validation("frameWidth", "frame dimensions must be positive, got %dx%d", tpl.FrameWidth, tpl.FrameHeight)
	}
	frames = append([]image.Image(nil), frames...)
	for i, f := range frames {
		if f == nil || f.Bounds().Empty() {
			return nil, errors.Validation(fmt.Sprintf("frames[%d]", i), "frame is empty")
		}
	}

	w, h := tpl.FrameWidth, tpl.FrameHeight
	style := tpl.Style
	slots := tpl.PhotoSlots
	degraded := false

	var art image.Image
	if ref := tpl.FrameRef(); ref != "" {
		var err error
		art, err = c.loadAsset(ctx, ref)
		if err != nil {
			log.Printf("[Compositor] Warning: frame art for %s unavailable, using fallback layout: %v", tpl.ID, err)
			degraded = true
			style = nil
			slots = template.DefaultSlots(w, h, tpl.Shots, c.config.MarginRatio, c.config.GapRatio)
		}
	}
	if len(slots) != len(frames) {
		return nil, errors.Validation("photoSlots", "template %s has %d slots for %d frames", tpl.ID, len(slots), len(frames))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	dc := gg.NewContextForRGBA(dst)

	dc.SetColor(c.config.Background)
	dc.Clear()
	drawUnder(dc, style, slots)

	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		drawPhoto(dst, frame, slots[i], mirrored)
	}

	drawOver(dc, style, slots, c.font)

	if art != nil {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), art, art.Bounds(), draw.Over, nil)
	}

	c.drawDecorations(ctx, dc, dst, tpl.Decorations)

	return &Result{Image: dst, Degraded: degraded}, nil
}

// Preview renders tpl with flat placeholder photos
func (c *Compositor) Preview(ctx context.Context, tpl *template.Template) (image.Image, error) {
	if tpl == nil {
		return nil, errors.Validation("template", "template is required")
	}
	frames := make([]image.Image, tpl.Shots)
	for i := range frames {
		frames[i] = placeholderFrame()
	}
	res, err := c.CompositeStrip(ctx, frames, tpl, false)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

var placeholder = color.NRGBA{160, 168, 180, 255}

func placeholderFrame() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholder), image.Point{}, draw.Src)
	return img
}

// drawPhoto fills one slot with the cropped and scaled frame. Mirroring
// flips the photo inside its own slot and leaves the slot where it is, so
// asymmetric layouts still line up with the unflipped frame art.
func drawPhoto(dst *image.RGBA, frame image.Image, slot types.Rect, mirrored bool) {
	filled := cropper.Fill(frame, slot, mirrored)
	x0, y0, x1, y1 := slot.Pixels()
	draw.Draw(dst, image.Rect(x0, y0, x1, y1), filled, filled.Bounds().Min, draw.Src)
}

func (c *Compositor) loadAsset(ctx context.Context, ref string) (image.Image, error) {
	if c.loader == nil {
		return nil, errors.AssetLoad(ref, fmt.Errorf("no asset loader configured"))
	}
	img, err := c.loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.AssetLoad(ref, fmt.Errorf("empty image"))
	}
	return img, nil
}
