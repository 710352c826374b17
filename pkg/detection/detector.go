package detection

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"sort"

	"github.com/menta2k/photobooth/pkg/client"
	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/processing"
	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/types"
	"github.com/menta2k/photobooth/pkg/vision"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// WindowPrompt asks a vision model for the photo windows of a frame
const WindowPrompt = `You are looking at decorative photo-booth frame artwork.
It contains %d empty area(s) where photos will be placed.

Return JSON only:
{
  "windows": [{"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}],
  "description": "short neutral sentence"
}

HARD RULES
- Return exactly %d window(s), ordered top to bottom, then left to right.
- All coordinates are normalized to [0,1] (NOT pixels).
- Each box must tightly cover one empty photo area and must not cover decorations.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// modelMaxDim bounds the image sent to the model
const modelMaxDim = 768

// Detector suggests photo slots for frame artwork. It scans for transparent
// windows first and asks the vision model only when that scan does not find
// enough of them.
type Detector struct {
	windows   *vision.WindowDetector
	client    client.VisionClient
	model     string
	processor *processing.Processor
}

// NewDetector creates a detector. client may be nil to disable the model
// fallback.
func NewDetector(client client.VisionClient, model string) *Detector {
	return &Detector{
		windows:   vision.New(),
		client:    client,
		model:     model,
		processor: processing.NewProcessor(),
	}
}

// WithWindowDetector replaces the local window scanner
func (d *Detector) WithWindowDetector(w *vision.WindowDetector) *Detector {
	d.windows = w
	return d
}

// DetectSlots returns exactly shots slot rectangles in frame pixels
func (d *Detector) DetectSlots(ctx context.Context, frame image.Image, shots int) ([]types.Rect, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, errors.Validation("frame", "frame image is empty")
	}
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	regions, err := d.windows.DetectWindows(frame)
	if err != nil {
		return nil, fmt.Errorf("window scan failed: %w", err)
	}
	if len(regions) >= shots {
		if len(regions) > shots {
			log.Printf("[Detection] Found %d windows, keeping the %d largest", len(regions), shots)
		}
		return regionRects(vision.Largest(regions, shots)), nil
	}
	log.Printf("[Detection] Alpha scan found %d of %d windows", len(regions), shots)

	if d.client == nil {
		return nil, errors.Validation("photoSlots", "found %d transparent windows, need %d", len(regions), shots)
	}
	return d.askModel(ctx, frame, shots, w, h)
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, frame image.Image) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("no vision model configured")
	}
	imgB64, err := d.processor.PrepareImageForModel(frame, "png", modelMaxDim, 0)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image: %w", err)
	}
	return d.client.SimpleQuery(ctx, d.model, SimpleTestPrompt, imgB64)
}

func (d *Detector) askModel(ctx context.Context, frame image.Image, shots, w, h int) ([]types.Rect, error) {
	imgB64, err := d.processor.PrepareImageForModel(frame, "png", modelMaxDim, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	log.Printf("[Detection] Asking %s for %d windows", d.model, shots)
	result, err := d.client.LocateWindows(ctx, d.model, fmt.Sprintf(WindowPrompt, shots, shots), imgB64)
	if err != nil {
		return nil, fmt.Errorf("vision model query failed: %w", err)
	}

	rects := make([]types.Rect, 0, len(result.Windows))
	for _, box := range result.Windows {
		box = normalizeBox(box, w, h)
		r := snapRect(box.ToPixels(float64(w), float64(h)), w, h)
		if r.Width < template.MinSlotSize || r.Height < template.MinSlotSize {
			continue
		}
		rects = append(rects, r)
	}
	if len(rects) != shots {
		return nil, errors.Validation("photoSlots", "vision model found %d usable windows, need %d", len(rects), shots)
	}

	sort.SliceStable(rects, func(i, j int) bool {
		if rects[i].Y != rects[j].Y {
			return rects[i].Y < rects[j].Y
		}
		return rects[i].X < rects[j].X
	})
	return rects, nil
}

func regionRects(regions []vision.Region) []types.Rect {
	out := make([]types.Rect, len(regions))
	for i, r := range regions {
		out[i] = r.Rect()
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox ensures box coordinates are within [0,1] bounds, converting
// pixel answers when the model ignored the instructions
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}

	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// snapRect rounds to whole pixels inside the frame
func snapRect(r types.Rect, w, h int) types.Rect {
	x0 := math.Max(0, math.Round(r.X))
	y0 := math.Max(0, math.Round(r.Y))
	x1 := math.Min(float64(w), math.Round(r.Right()))
	y1 := math.Min(float64(h), math.Round(r.Bottom()))
	return types.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
