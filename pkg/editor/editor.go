// Package editor implements the slot editor: load a frame image, lay out
// default photo slots, move and resize them with pointer gestures and save
// the result as a custom template.
//
// Slots are always kept in frame-pixel coordinates. The display scale only
// affects hit testing and rendering and is never persisted.
package editor

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/processing"
	"github.com/menta2k/photobooth/pkg/store"
	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/types"
)

var (
	// ErrGestureInProgress is returned when a change is requested mid-gesture
	ErrGestureInProgress = stderrors.New("a slot gesture is in progress")
	// ErrNotConfirmed is returned when the user declines a destructive change
	ErrNotConfirmed = stderrors.New("change not confirmed")
	// ErrNoFrame is returned by operations that need a loaded frame
	ErrNoFrame = stderrors.New("no frame image loaded")
)

// Mode distinguishes creating a new template from editing a stored one
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Config holds editor layout settings
type Config struct {
	MarginRatio  float64
	GapRatio     float64
	HandleSize   float64 // resize handle edge in display pixels
	MinSlotSize  float64
	DefaultShots int
}

// DefaultConfig returns the standard editor configuration
func DefaultConfig() Config {
	return Config{
		MarginRatio:  0.12,
		GapRatio:     0.04,
		HandleSize:   16,
		MinSlotSize:  template.MinSlotSize,
		DefaultShots: 2,
	}
}

// ConfirmFunc asks the user to approve a destructive change
type ConfirmFunc func(prompt string) bool

// SlotDetector suggests slot rectangles for a frame
type SlotDetector interface {
	DetectSlots(ctx context.Context, frame image.Image, shots int) ([]types.Rect, error)
}

// Saver persists templates
type Saver interface {
	Save(rec *store.Record) (*store.Record, error)
	Update(id string, rec *store.Record) (*store.Record, error)
}

// Editor holds the state of one editing session
type Editor struct {
	config  Config
	confirm ConfirmFunc

	frame    image.Image
	frameRef string
	frameW   float64
	frameH   float64

	slots    []types.Rect
	selected int
	shots    int
	name     string

	mode      Mode
	editingID string

	viewportW float64
	viewportH float64
	scale     float64
	offset    types.Point

	gesture *gesture
}

// New creates an editor. confirm may be nil, in which case destructive
// changes are approved without asking.
func New(config Config, confirm ConfirmFunc) *Editor {
	if config.MinSlotSize <= 0 {
		config.MinSlotSize = template.MinSlotSize
	}
	if !template.IsAllowedShotCount(config.DefaultShots) {
		config.DefaultShots = template.AllowedShotCounts[0]
	}
	return &Editor{
		config:   config,
		confirm:  confirm,
		selected: -1,
		shots:    config.DefaultShots,
		scale:    1,
	}
}

// LoadFrame stores the frame image and lays out default slots. ref is the
// frame's data: URI; when empty the image is encoded as PNG.
func (e *Editor) LoadFrame(img image.Image, ref string) error {
	if img == nil || img.Bounds().Empty() {
		return errors.Validation("frame", "frame image is empty")
	}
	if ref == "" {
		data, err := processing.EncodeBytes(img, "png", 0)
		if err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}
		ref = processing.EncodeDataURI(data, processing.MimeTypes["png"])
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	slots := template.DefaultSlots(w, h, e.shots, e.config.MarginRatio, e.config.GapRatio)
	if err := template.ValidateSlots(slots, e.shots, w, h); err != nil {
		return errors.ValidationCode(errors.ErrCodeDimensions, "frame",
			"frame %dx%d is too small for %d slots", w, h, e.shots)
	}

	e.frame = img
	e.frameRef = ref
	e.frameW, e.frameH = float64(w), float64(h)
	e.slots = slots
	e.selected = -1
	e.gesture = nil
	e.updateScale()
	log.Printf("[Editor] Loaded %dx%d frame with %d default slots", w, h, e.shots)
	return nil
}

// LoadTemplate opens a stored custom template for editing. Default
// templates are refused.
func (e *Editor) LoadTemplate(tpl *template.Template, frame image.Image) error {
	if tpl == nil {
		return errors.Validation("template", "template is required")
	}
	if tpl.IsDefault {
		return errors.Immutable(tpl.ID)
	}
	if frame == nil || frame.Bounds().Empty() {
		return errors.Validation("frame", "frame image is empty")
	}
	b := frame.Bounds()
	if b.Dx() != tpl.FrameWidth || b.Dy() != tpl.FrameHeight {
		return errors.ValidationCode(errors.ErrCodeDimensions, "frame",
			"frame is %dx%d but template expects %dx%d", b.Dx(), b.Dy(), tpl.FrameWidth, tpl.FrameHeight)
	}
	if err := template.ValidateSlots(tpl.PhotoSlots, tpl.Shots, tpl.FrameWidth, tpl.FrameHeight); err != nil {
		return err
	}

	e.frame = frame
	e.frameRef = tpl.FrameRef()
	e.frameW, e.frameH = float64(tpl.FrameWidth), float64(tpl.FrameHeight)
	e.slots = append([]types.Rect(nil), tpl.PhotoSlots...)
	e.shots = tpl.Shots
	e.name = tpl.Name
	e.mode = ModeEdit
	e.editingID = tpl.ID
	e.selected = -1
	e.gesture = nil
	e.updateScale()
	return nil
}

// Reset returns the editor to an empty create session
func (e *Editor) Reset() {
	vw, vh := e.viewportW, e.viewportH
	*e = *New(e.config, e.confirm)
	e.viewportW, e.viewportH = vw, vh
}

// SetName sets the template name; it is validated on Save
func (e *Editor) SetName(name string) {
	e.name = name
}

// Name returns the template name
func (e *Editor) Name() string { return e.name }

// Shots returns the current slot count
func (e *Editor) Shots() int { return e.shots }

// Selected returns the selected slot index, or -1
func (e *Editor) Selected() int { return e.selected }

// Mode reports whether the editor is creating or editing
func (e *Editor) Mode() Mode { return e.mode }

// HasFrame reports whether a frame image is loaded
func (e *Editor) HasFrame() bool { return e.frame != nil }

// Frame returns the loaded frame image
func (e *Editor) Frame() image.Image { return e.frame }

// FrameSize returns the frame's pixel dimensions
func (e *Editor) FrameSize() (int, int) {
	return int(e.frameW), int(e.frameH)
}

// Slots returns a copy of the slots in frame pixels
func (e *Editor) Slots() []types.Rect {
	return append([]types.Rect(nil), e.slots...)
}

// Scale returns the display-pixels-per-frame-pixel factor
func (e *Editor) Scale() float64 { return e.scale }

// SetViewport sets the display area and recomputes the fit-inside scale.
// The frame is centred in the viewport.
func (e *Editor) SetViewport(width, height float64) {
	e.viewportW, e.viewportH = width, height
	e.updateScale()
}

func (e *Editor) updateScale() {
	if e.frameW <= 0 || e.frameH <= 0 || e.viewportW <= 0 || e.viewportH <= 0 {
		e.scale = 1
		e.offset = types.Point{}
		return
	}
	e.scale = math.Min(e.viewportW/e.frameW, e.viewportH/e.frameH)
	e.offset = types.Point{
		X: (e.viewportW - e.frameW*e.scale) / 2,
		Y: (e.viewportH - e.frameH*e.scale) / 2,
	}
}

// DisplaySlots returns the slots in display coordinates for rendering
func (e *Editor) DisplaySlots() []types.Rect {
	out := make([]types.Rect, len(e.slots))
	for i, s := range e.slots {
		out[i] = e.toDisplayRect(s)
	}
	return out
}

func (e *Editor) toDisplayRect(r types.Rect) types.Rect {
	scaled := r.Scale(e.scale)
	scaled.X += e.offset.X
	scaled.Y += e.offset.Y
	return scaled
}

// ToFrame converts a display point into frame pixels
func (e *Editor) ToFrame(p types.Point) types.Point {
	return types.Point{
		X: (p.X - e.offset.X) / e.scale,
		Y: (p.Y - e.offset.Y) / e.scale,
	}
}

// SelectSlot hit-tests a display point. Slots are tested topmost (last)
// first; for each slot its corner handles take priority over its body.
func (e *Editor) SelectSlot(p types.Point) Hit {
	half := e.config.HandleSize / 2
	for i := len(e.slots) - 1; i >= 0; i-- {
		r := e.toDisplayRect(e.slots[i])
		for _, c := range corners(r) {
			if math.Abs(p.X-c.point.X) <= half && math.Abs(p.Y-c.point.Y) <= half {
				return Hit{Slot: i, Corner: c.corner}
			}
		}
		if r.Contains(p) {
			return Hit{Slot: i, Corner: CornerNone}
		}
	}
	return NoHit
}

// HandlePointer is the single entry point for mouse, touch and pen input.
// It reports whether slots or selection changed.
func (e *Editor) HandlePointer(ev PointerEvent) bool {
	if e.frame == nil {
		return false
	}

	switch ev.Type {
	case PointerDown:
		if e.gesture != nil {
			return false
		}
		hit := e.SelectSlot(types.Point{X: ev.X, Y: ev.Y})
		changed := e.selected != hit.Slot
		e.selected = hit.Slot
		if hit.Slot < 0 {
			return changed
		}
		e.gesture = &gesture{
			pointerID: ev.PointerID,
			slot:      hit.Slot,
			corner:    hit.Corner,
			start:     e.ToFrame(types.Point{X: ev.X, Y: ev.Y}),
			startRect: e.slots[hit.Slot],
		}
		return true

	case PointerMove:
		g := e.gesture
		if g == nil || g.pointerID != ev.PointerID {
			return false
		}
		p := e.ToFrame(types.Point{X: ev.X, Y: ev.Y})
		dx, dy := p.X-g.start.X, p.Y-g.start.Y
		if g.corner == CornerNone {
			e.slots[g.slot] = e.moved(g.startRect, dx, dy)
		} else {
			e.slots[g.slot] = e.resized(g.startRect, g.corner, dx, dy)
		}
		return true

	case PointerUp:
		if e.gesture == nil || e.gesture.pointerID != ev.PointerID {
			return false
		}
		e.gesture = nil
		return true

	case PointerCancel:
		g := e.gesture
		if g == nil || g.pointerID != ev.PointerID {
			return false
		}
		e.slots[g.slot] = g.startRect
		e.gesture = nil
		return true
	}
	return false
}

// InGesture reports whether a drag or resize is active
func (e *Editor) InGesture() bool {
	return e.gesture != nil
}

// moved translates r by dx,dy and clamps it inside the frame
func (e *Editor) moved(r types.Rect, dx, dy float64) types.Rect {
	r.X = clamp(r.X+dx, 0, e.frameW-r.Width)
	r.Y = clamp(r.Y+dy, 0, e.frameH-r.Height)
	return r
}

// resized drags one corner of r by dx,dy while the opposite corner stays
// fixed. Width and height never drop below the minimum slot size and the
// dragged corner never leaves the frame.
func (e *Editor) resized(r types.Rect, corner Corner, dx, dy float64) types.Rect {
	minSize := e.config.MinSlotSize
	left, top, right, bottom := r.X, r.Y, r.Right(), r.Bottom()

	switch corner {
	case CornerTopLeft, CornerBottomLeft:
		left = clamp(left+dx, 0, right-minSize)
	case CornerTopRight, CornerBottomRight:
		right = clamp(right+dx, left+minSize, e.frameW)
	}
	switch corner {
	case CornerTopLeft, CornerTopRight:
		top = clamp(top+dy, 0, bottom-minSize)
	case CornerBottomLeft, CornerBottomRight:
		bottom = clamp(bottom+dy, top+minSize, e.frameH)
	}

	return types.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ChangeShotCount switches to n slots and regenerates the default layout.
// Current slot positions are discarded, so the change must be confirmed.
func (e *Editor) ChangeShotCount(n int) error {
	if e.gesture != nil {
		return ErrGestureInProgress
	}
	if !template.IsAllowedShotCount(n) {
		return errors.Validation("shots", "must be one of %v, got %d", template.AllowedShotCounts, n)
	}
	if n == e.shots {
		return nil
	}
	if e.frame == nil {
		e.shots = n
		return nil
	}

	w, h := int(e.frameW), int(e.frameH)
	slots := template.DefaultSlots(w, h, n, e.config.MarginRatio, e.config.GapRatio)
	if err := template.ValidateSlots(slots, n, w, h); err != nil {
		return errors.ValidationCode(errors.ErrCodeDimensions, "shots",
			"frame %dx%d is too small for %d slots", w, h, n)
	}

	prompt := fmt.Sprintf("Change to %d photos? Current slot positions will be reset.", n)
	if e.confirm != nil && !e.confirm(prompt) {
		return ErrNotConfirmed
	}

	e.shots = n
	e.slots = slots
	e.selected = -1
	log.Printf("[Editor] Shot count changed to %d", n)
	return nil
}

// SuggestSlots replaces the layout with windows found by detector when it
// finds exactly one per shot
func (e *Editor) SuggestSlots(ctx context.Context, detector SlotDetector) error {
	if e.frame == nil {
		return ErrNoFrame
	}
	if e.gesture != nil {
		return ErrGestureInProgress
	}

	rects, err := detector.DetectSlots(ctx, e.frame, e.shots)
	if err != nil {
		return fmt.Errorf("slot detection failed: %w", err)
	}
	if len(rects) != e.shots {
		return errors.Validation("photoSlots", "detected %d windows for %d shots", len(rects), e.shots)
	}
	if err := template.ValidateSlots(rects, e.shots, int(e.frameW), int(e.frameH)); err != nil {
		return err
	}

	e.slots = append([]types.Rect(nil), rects...)
	e.selected = -1
	log.Printf("[Editor] Applied %d detected slots", len(rects))
	return nil
}

// Template builds the template currently described by the editor
func (e *Editor) Template() *template.Template {
	return &template.Template{
		ID:          e.editingID,
		Name:        strings.TrimSpace(e.name),
		Shots:       e.shots,
		FrameWidth:  int(e.frameW),
		FrameHeight: int(e.frameH),
		PhotoSlots:  e.Slots(),
		Style:       template.CustomFrame{FrameRef: e.frameRef},
		IsCustom:    true,
	}
}

// Save validates the session and stores it: a new template gets a fresh
// id, an edited one keeps its id. After a successful save the editor is in
// edit mode for the stored template.
func (e *Editor) Save(ctx context.Context, saver Saver) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := template.ValidateName(e.name); err != nil {
		return nil, err
	}
	if e.frame == nil {
		return nil, errors.Validation("frame", "a frame image must be loaded")
	}
	if e.gesture != nil {
		return nil, ErrGestureInProgress
	}

	tpl := e.Template()
	var (
		saved *store.Record
		err   error
	)
	if e.mode == ModeEdit {
		saved, err = saver.Update(e.editingID, store.FromTemplate(tpl))
	} else {
		tpl.ID = uuid.NewString()
		saved, err = saver.Save(store.FromTemplate(tpl))
	}
	if err != nil {
		return nil, err
	}

	e.mode = ModeEdit
	e.editingID = saved.ID
	log.Printf("[Editor] Saved template %s (%q)", saved.ID, saved.Name)
	return saved, nil
}
