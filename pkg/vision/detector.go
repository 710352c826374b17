package vision

import (
	"image"
	"sort"

	"github.com/menta2k/photobooth/pkg/types"
)

// WindowDetector finds the transparent photo windows cut into frame artwork
type WindowDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for window detection
type DetectionConfig struct {
	AlphaThreshold uint8   // pixels with alpha at or below this count as transparent
	MinAreaRatio   float64 // smallest window as a fraction of the frame area
	MinFillRatio   float64 // transparent pixels / bounding box area
	Step           int     // sampling stride in pixels
	MaxRegions     int
}

// New creates a new WindowDetector with default configuration
func New() *WindowDetector {
	return &WindowDetector{
		config: DetectionConfig{
			AlphaThreshold: 16,
			MinAreaRatio:   0.01,
			MinFillRatio:   0.6,
			Step:           2,
			MaxRegions:     10,
		},
	}
}

// NewWithConfig creates a new WindowDetector with custom configuration
func NewWithConfig(config DetectionConfig) *WindowDetector {
	if config.Step < 1 {
		config.Step = 1
	}
	return &WindowDetector{config: config}
}

// Region represents a rectangular window found in the artwork
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Rect converts the region into frame-pixel coordinates
func (r Region) Rect() types.Rect {
	return types.Rect{X: float64(r.X), Y: float64(r.Y), Width: float64(r.Width), Height: float64(r.Height)}
}

// DetectWindows scans the alpha channel and returns transparent windows in
// reading order (top to bottom, then left to right)
func (d *WindowDetector) DetectWindows(img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	mask, gw, gh := d.transparencyMask(img)
	regions := d.findRegions(mask, gw, gh, width, height)
	filtered := d.filterAndScoreRegions(regions, width, height)

	if d.config.MaxRegions > 0 && len(filtered) > d.config.MaxRegions {
		filtered = filtered[:d.config.MaxRegions]
	}
	SortReadingOrder(filtered)
	return filtered, nil
}

// Largest returns the n largest regions in reading order
func Largest(regions []Region, n int) []Region {
	out := append([]Region(nil), regions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Area() > out[j].Area() })
	if len(out) > n {
		out = out[:n]
	}
	SortReadingOrder(out)
	return out
}

// SortReadingOrder orders regions top to bottom, breaking ties left to right
func SortReadingOrder(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Y != regions[j].Y {
			return regions[i].Y < regions[j].Y
		}
		return regions[i].X < regions[j].X
	})
}

// transparencyMask samples the image every Step pixels and marks
// transparent samples
func (d *WindowDetector) transparencyMask(img image.Image) ([]bool, int, int) {
	bounds := img.Bounds()
	step := d.config.Step
	gw := (bounds.Dx() + step - 1) / step
	gh := (bounds.Dy() + step - 1) / step
	threshold := uint32(d.config.AlphaThreshold) * 0x101

	mask := make([]bool, gw*gh)
	for gy := 0; gy < gh; gy++ {
		for gx := 0; gx < gw; gx++ {
			_, _, _, a := img.At(bounds.Min.X+gx*step, bounds.Min.Y+gy*step).RGBA()
			mask[gy*gw+gx] = a <= threshold
		}
	}
	return mask, gw, gh
}

// findRegions labels 4-connected transparent components and returns their
// bounding boxes in image pixels
func (d *WindowDetector) findRegions(mask []bool, gw, gh, width, height int) []Region {
	step := d.config.Step
	seen := make([]bool, len(mask))
	var regions []Region
	var queue []int

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		seen[start] = true
		queue = append(queue[:0], start)
		minX, minY, maxX, maxY := gw, gh, -1, -1
		count := 0

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%gw, idx/gw
			count++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= gw || ny >= gh {
					continue
				}
				ni := ny*gw + nx
				if mask[ni] && !seen[ni] {
					seen[ni] = true
					queue = append(queue, ni)
				}
			}
		}

		boxW := maxX - minX + 1
		boxH := maxY - minY + 1
		r := Region{
			X:      minX * step,
			Y:      minY * step,
			Width:  minInt(boxW*step, width-minX*step),
			Height: minInt(boxH*step, height-minY*step),
			Score:  float64(count) / float64(boxW*boxH),
		}
		regions = append(regions, r)
	}
	return regions
}

func (d *WindowDetector) filterAndScoreRegions(regions []Region, imageWidth, imageHeight int) []Region {
	var filtered []Region

	imageArea := imageWidth * imageHeight
	minArea := int(float64(imageArea) * d.config.MinAreaRatio)

	for _, region := range regions {
		if region.Area() < minArea || region.Score < d.config.MinFillRatio {
			continue
		}
		filtered = append(filtered, region)
	}

	// Largest windows first so MaxRegions keeps the meaningful ones
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Area() > filtered[j].Area()
	})
	return filtered
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
