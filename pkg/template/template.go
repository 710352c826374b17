// Package template defines photo booth templates: frame size, photo slots,
// render style and decorations, together with the invariants every template
// must satisfy.
package template

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/types"
)

const (
	// MinSlotSize is the minimum width and height of a photo slot in frame pixels
	MinSlotSize = 50
	// MaxShots is the largest supported number of photo slots
	MaxShots = 4
	// MaxNameLength is the maximum template name length in runes
	MaxNameLength = 50
	// MinFrameDimension is the smallest frame edge that still fits MaxShots slots
	MinFrameDimension = 400
)

// AllowedShotCounts lists the supported slot counts in ascending order
var AllowedShotCounts = []int{1, 2, 3, 4}

// Template is a named recipe pairing a frame with one or more photo slots
type Template struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Shots       int          `json:"shots"`
	FrameWidth  int          `json:"frameWidth"`
	FrameHeight int          `json:"frameHeight"`
	PhotoSlots  []types.Rect `json:"photoSlots"`
	Style       RenderStyle  `json:"-"`
	Decorations []Decoration `json:"decorations,omitempty"`
	IsDefault   bool         `json:"isDefault"`
	IsCustom    bool         `json:"isCustom"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// IsStrip reports whether the template needs more than one capture
func (t *Template) IsStrip() bool {
	return t.Shots > 1
}

// FrameRef returns the frame artwork reference for CustomFrame templates
func (t *Template) FrameRef() string {
	if cf, ok := t.Style.(CustomFrame); ok {
		return cf.FrameRef
	}
	return ""
}

// Clone returns a deep copy safe to mutate
func (t *Template) Clone() *Template {
	c := *t
	c.PhotoSlots = append([]types.Rect(nil), t.PhotoSlots...)
	c.Decorations = append([]Decoration(nil), t.Decorations...)
	return &c
}

// IsAllowedShotCount reports whether n is a supported slot count
func IsAllowedShotCount(n int) bool {
	for _, allowed := range AllowedShotCounts {
		if n == allowed {
			return true
		}
	}
	return false
}

// ValidateName checks the 1–50 rune name constraint
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n == 0 {
		return errors.Validation("name", "must not be empty")
	}
	if n > MaxNameLength {
		return errors.Validation("name", "must be at most %d characters, got %d", MaxNameLength, n)
	}
	return nil
}

// sizeEpsilon absorbs float rounding from gesture arithmetic
const sizeEpsilon = 1e-6

// ValidateSlots checks slot count, bounds and minimum size against a frame
func ValidateSlots(slots []types.Rect, shots, frameW, frameH int) error {
	if len(slots) != shots {
		return errors.Validation("photoSlots", "expected %d slots for %d shots, got %d", shots, shots, len(slots))
	}
	for i, s := range slots {
		field := fmt.Sprintf("photoSlots[%d]", i)
		if s.Width < MinSlotSize-sizeEpsilon || s.Height < MinSlotSize-sizeEpsilon {
			return errors.Validation(field, "size %.0fx%.0f below minimum %dx%d", s.Width, s.Height, MinSlotSize, MinSlotSize)
		}
		if !s.Within(float64(frameW), float64(frameH)) {
			return errors.Validation(field, "rectangle %.0f,%.0f %.0fx%.0f exceeds frame %dx%d",
				s.X, s.Y, s.Width, s.Height, frameW, frameH)
		}
	}
	return nil
}

// Validate enforces every template invariant
func (t *Template) Validate() error {
	if err := ValidateName(t.Name); err != nil {
		return err
	}
	if !IsAllowedShotCount(t.Shots) {
		return errors.Validation("shots", "must be one of %v, got %d", AllowedShotCounts, t.Shots)
	}
	if t.FrameWidth <= 0 || t.FrameHeight <= 0 {
		return errors.Validation("frameWidth", "frame dimensions must be positive, got %dx%d", t.FrameWidth, t.FrameHeight)
	}
	if t.IsDefault && t.IsCustom {
		return errors.Validation("isDefault", "a template cannot be both default and custom")
	}
	if t.Style == nil {
		return errors.Validation("style", "render style is required")
	}
	if err := ValidateSlots(t.PhotoSlots, t.Shots, t.FrameWidth, t.FrameHeight); err != nil {
		return err
	}
	for i, d := range t.Decorations {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("decorations[%d]: %w", i, err)
		}
	}
	return nil
}

// DefaultSlots lays out shots rectangles stacked vertically inside a frame.
// marginRatio insets horizontally by a fraction of the width and vertically
// by the same fraction of the height; gapRatio separates slots by a fraction
// of the height. Slots never shrink below MinSlotSize while the frame allows.
func DefaultSlots(frameW, frameH, shots int, marginRatio, gapRatio float64) []types.Rect {
	if shots <= 0 || frameW <= 0 || frameH <= 0 {
		return nil
	}

	w, h := float64(frameW), float64(frameH)
	marginX := w * marginRatio
	marginY := h * marginRatio
	gap := h * gapRatio

	slotW := w - 2*marginX
	slotH := (h - 2*marginY - gap*float64(shots-1)) / float64(shots)

	if slotW < MinSlotSize {
		slotW = minFloat(MinSlotSize, w)
		marginX = (w - slotW) / 2
	}
	if slotH < MinSlotSize {
		// Drop margins and gaps before giving up on the minimum height
		marginY, gap = 0, 0
		slotH = h / float64(shots)
	}

	slots := make([]types.Rect, shots)
	for i := range slots {
		slots[i] = types.Rect{
			X:      marginX,
			Y:      marginY + float64(i)*(slotH+gap),
			Width:  slotW,
			Height: slotH,
		}
	}
	return slots
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// ParseHexColor parses #rgb, #rrggbb and #rrggbbaa strings
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: unexpected length", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
