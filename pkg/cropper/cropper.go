package cropper

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/photobooth/pkg/types"
)

// Region is the source-space rectangle selected to fill a slot
type Region struct {
	SX float64 `json:"sx"`
	SY float64 `json:"sy"`
	SW float64 `json:"sw"`
	SH float64 `json:"sh"`
}

// Aspect returns SW/SH
func (r Region) Aspect() float64 {
	return r.SW / r.SH
}

// Rect converts the region into integer pixel bounds offset by origin
func (r Region) Rect(origin image.Point) image.Rectangle {
	x0 := int(math.Round(r.SX))
	y0 := int(math.Round(r.SY))
	x1 := int(math.Round(r.SX + r.SW))
	y1 := int(math.Round(r.SY + r.SH))
	return image.Rect(x0, y0, x1, y1).Add(origin)
}

// CropRegion computes the centered crop of a srcW x srcH source that matches
// the slot's aspect ratio. The live preview overlay and the compositor both
// go through this math so the framed area and the output agree.
func CropRegion(slot types.Rect, srcW, srcH float64) Region {
	x, y, w, h := centeredFill(slot.Width, slot.Height, srcW, srcH)
	return Region{SX: x, SY: y, SW: w, SH: h}
}

// PreviewOverlay returns the rectangle of a containerW x containerH live view
// that will end up inside the slot.
func PreviewOverlay(slot types.Rect, containerW, containerH float64) types.Rect {
	x, y, w, h := centeredFill(slot.Width, slot.Height, containerW, containerH)
	return types.Rect{X: x, Y: y, Width: w, Height: h}
}

// centeredFill implements letterbox-crop-to-fill with centre alignment.
// Zero sizes are not supported; a zero rectangle is returned for them.
func centeredFill(slotW, slotH, srcW, srcH float64) (x, y, w, h float64) {
	if slotW <= 0 || slotH <= 0 || srcW <= 0 || srcH <= 0 {
		return 0, 0, 0, 0
	}

	slotAspect := slotW / slotH
	srcAspect := srcW / srcH

	if srcAspect > slotAspect {
		// Source is wider: keep full height, take a centred horizontal band
		h = srcH
		w = srcH * slotAspect
		x = (srcW - w) / 2
		return x, 0, w, h
	}

	// Source is taller (or equal): keep full width, take a centred vertical band
	w = srcW
	h = srcW / slotAspect
	y = (srcH - h) / 2
	return 0, y, w, h
}

// Fill crops img to the slot's aspect ratio and scales the crop to the slot's
// pixel size. When mirrored is set the result is flipped horizontally so it
// matches the mirrored live preview.
func Fill(img image.Image, slot types.Rect, mirrored bool) *image.NRGBA {
	x0, y0, x1, y1 := slot.Pixels()
	targetW, targetH := x1-x0, y1-y0
	if targetW <= 0 || targetH <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	bounds := img.Bounds()
	region := CropRegion(slot, float64(bounds.Dx()), float64(bounds.Dy()))

	rect := region.Rect(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, targetW, targetH))
	}

	cropped := imaging.Crop(img, rect)
	if cropped.Bounds().Dx() != targetW || cropped.Bounds().Dy() != targetH {
		cropped = imaging.Resize(cropped, targetW, targetH, imaging.Lanczos)
	}

	if mirrored {
		cropped = imaging.FlipH(cropped)
	}
	return cropped
}
