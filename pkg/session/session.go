// Package session owns one booth session: the current screen, the chosen
// template, captured frames and the composited result. Device and capacity
// failures are shown to the user and move the session to a safe screen;
// validation and lookup failures go back to the caller.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/menta2k/photobooth/pkg/capture"
	"github.com/menta2k/photobooth/pkg/compositor"
	"github.com/menta2k/photobooth/pkg/editor"
	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/export"
	"github.com/menta2k/photobooth/pkg/store"
	"github.com/menta2k/photobooth/pkg/template"
)

// ErrWrongScreen is returned when an action is not available on the
// current screen
var ErrWrongScreen = stderrors.New("action not available on this screen")

// Screen is a top-level view of the booth
type Screen int

const (
	ScreenHome Screen = iota
	ScreenPicker
	ScreenEditor
	ScreenCapture
	ScreenReview
)

func (s Screen) String() string {
	switch s {
	case ScreenHome:
		return "home"
	case ScreenPicker:
		return "picker"
	case ScreenEditor:
		return "editor"
	case ScreenCapture:
		return "capture"
	case ScreenReview:
		return "review"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Templates looks templates up by id
type Templates interface {
	Get(id string) (*template.Template, error)
}

// Camera is the single active camera stream
type Camera interface {
	Switch(ctx context.Context, deviceID string) error
	Frame() (image.Image, error)
	Mirrored() bool
	Stop()
}

// Capturer runs countdown sequences
type Capturer interface {
	CaptureStrip(ctx context.Context, grabber capture.FrameGrabber, shots int, onShot func(shot int, frame image.Image)) ([]image.Image, error)
	Cancel()
}

// Compositor renders captured frames into a template
type Compositor interface {
	CompositeStrip(ctx context.Context, frames []image.Image, tpl *template.Template, mirrored bool) (*compositor.Result, error)
}

// Exporter downloads and shares results
type Exporter interface {
	Download(img image.Image, name string) (string, error)
	Share(ctx context.Context, img image.Image, name string) (export.Result, error)
}

// TemplateStore persists custom templates
type TemplateStore interface {
	editor.Saver
	Remove(id string) error
}

// AssetLoader loads frame art for editing
type AssetLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Deps are the collaborators a session drives
type Deps struct {
	Templates  Templates
	Camera     Camera
	Capturer   Capturer
	Compositor Compositor
	Exporter   Exporter
	Store      TemplateStore
	Editor     *editor.Editor
	Loader     AssetLoader
	DeviceID   string
}

// Controller routes user actions between screens
type Controller struct {
	deps Deps

	mu       sync.Mutex
	screen   Screen
	message  string
	tpl      *template.Template
	frames   []image.Image
	result   *compositor.Result
	mirrored bool
}

// New creates a controller on the home screen
func New(deps Deps) *Controller {
	if deps.Editor == nil {
		deps.Editor = editor.New(editor.DefaultConfig(), nil)
	}
	return &Controller{deps: deps}
}

// Screen returns the current screen
func (c *Controller) Screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// Message returns the message to show the user, if any
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// ClearMessage dismisses the current message
func (c *Controller) ClearMessage() {
	c.mu.Lock()
	c.message = ""
	c.mu.Unlock()
}

// Template returns the template chosen for this session
func (c *Controller) Template() *template.Template {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tpl
}

// Frames returns the captured frames in shot order
func (c *Controller) Frames() []image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]image.Image(nil), c.frames...)
}

// Result returns the composited image, or nil before capture
func (c *Controller) Result() *compositor.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Editor returns the slot editor used by the editor screen
func (c *Controller) Editor() *editor.Editor {
	return c.deps.Editor
}

// GoHome cancels any capture, releases the camera and clears the session
func (c *Controller) GoHome() {
	c.CancelCapture()
	if c.deps.Camera != nil {
		c.deps.Camera.Stop()
	}
	c.mu.Lock()
	c.tpl = nil
	c.frames = nil
	c.result = nil
	c.message = ""
	c.screen = ScreenHome
	c.mu.Unlock()
}

// OpenPicker shows the template picker
func (c *Controller) OpenPicker() {
	c.mu.Lock()
	c.message = ""
	c.screen = ScreenPicker
	c.mu.Unlock()
}

// SelectTemplate chooses a template and opens the camera
func (c *Controller) SelectTemplate(ctx context.Context, id string) error {
	tpl, err := c.deps.Templates.Get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tpl = tpl
	c.frames = nil
	c.result = nil
	c.message = ""
	c.mu.Unlock()

	if err := c.deps.Camera.Switch(ctx, c.deps.DeviceID); err != nil {
		return c.route(err, ScreenPicker)
	}

	c.mu.Lock()
	c.mirrored = c.deps.Camera.Mirrored()
	c.screen = ScreenCapture
	c.mu.Unlock()
	log.Printf("[Session] Template %s selected (%d shots)", tpl.ID, tpl.Shots)
	return nil
}

// Capture runs the countdown sequence for the chosen template and
// composites the result. onShot may be nil.
func (c *Controller) Capture(ctx context.Context, onShot func(shot int, frame image.Image)) error {
	c.mu.Lock()
	if c.screen != ScreenCapture || c.tpl == nil {
		c.mu.Unlock()
		return ErrWrongScreen
	}
	tpl, mirrored := c.tpl, c.mirrored
	c.mu.Unlock()

	frames, err := c.deps.Capturer.CaptureStrip(ctx, c.deps.Camera, tpl.Shots, onShot)
	if err != nil {
		if stderrors.Is(err, capture.ErrCanceled) || stderrors.Is(err, capture.ErrBusy) {
			return err
		}
		if errors.IsDevice(err) {
			c.deps.Camera.Stop()
		}
		return c.route(err, ScreenPicker)
	}

	result, err := c.deps.Compositor.CompositeStrip(ctx, frames, tpl, mirrored)
	if err != nil {
		return fmt.Errorf("failed to composite: %w", err)
	}

	c.mu.Lock()
	c.frames = frames
	c.result = result
	c.screen = ScreenReview
	if result.Degraded {
		c.message = "The frame artwork could not be loaded, so a plain layout was used."
	}
	c.mu.Unlock()
	log.Printf("[Session] Captured %d frames into %s", len(frames), tpl.ID)
	return nil
}

// CancelCapture stops a running countdown
func (c *Controller) CancelCapture() {
	if c.deps.Capturer != nil {
		c.deps.Capturer.Cancel()
	}
}

// Retake discards the frames and result and returns to the capture screen
func (c *Controller) Retake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenReview {
		return ErrWrongScreen
	}
	c.frames = nil
	c.result = nil
	c.message = ""
	c.screen = ScreenCapture
	return nil
}

// Download saves the result and returns its path
func (c *Controller) Download(name string) (string, error) {
	res := c.Result()
	if res == nil {
		return "", ErrWrongScreen
	}
	return c.deps.Exporter.Download(res.Image, name)
}

// Share offers the result to the share target, downloading on failure
func (c *Controller) Share(ctx context.Context, name string) (export.Result, error) {
	res := c.Result()
	if res == nil {
		return export.Result{}, ErrWrongScreen
	}
	return c.deps.Exporter.Share(ctx, res.Image, name)
}

// OpenEditor starts a new custom template
func (c *Controller) OpenEditor() {
	c.deps.Editor.Reset()
	c.mu.Lock()
	c.message = ""
	c.screen = ScreenEditor
	c.mu.Unlock()
}

// EditTemplate opens a stored custom template in the editor
func (c *Controller) EditTemplate(ctx context.Context, id string) error {
	tpl, err := c.deps.Templates.Get(id)
	if err != nil {
		return err
	}
	if tpl.IsDefault {
		return errors.Immutable(id)
	}
	if c.deps.Loader == nil {
		return fmt.Errorf("no asset loader configured")
	}
	frame, err := c.deps.Loader.Load(ctx, tpl.FrameRef())
	if err != nil {
		return err
	}

	c.deps.Editor.Reset()
	if err := c.deps.Editor.LoadTemplate(tpl, frame); err != nil {
		return err
	}
	c.mu.Lock()
	c.message = ""
	c.screen = ScreenEditor
	c.mu.Unlock()
	return nil
}

// ResumeEditor returns to the editor without resetting it, after a failed
// save sent the user to the picker
func (c *Controller) ResumeEditor() error {
	if !c.deps.Editor.HasFrame() {
		return ErrWrongScreen
	}
	c.mu.Lock()
	c.message = ""
	c.screen = ScreenEditor
	c.mu.Unlock()
	return nil
}

// SaveTemplate stores the editor session. Capacity errors move to the
// picker, where a template can be deleted; the editor keeps its state for
// ResumeEditor.
func (c *Controller) SaveTemplate(ctx context.Context) (*store.Record, error) {
	c.mu.Lock()
	screen := c.screen
	c.mu.Unlock()
	if screen != ScreenEditor {
		return nil, ErrWrongScreen
	}

	rec, err := c.deps.Editor.Save(ctx, c.deps.Store)
	if err != nil {
		return nil, c.route(err, ScreenPicker)
	}

	c.mu.Lock()
	c.message = fmt.Sprintf("Saved %q.", rec.Name)
	c.screen = ScreenPicker
	c.mu.Unlock()
	return rec, nil
}

// DeleteTemplate removes a custom template
func (c *Controller) DeleteTemplate(id string) error {
	return c.deps.Store.Remove(id)
}

// route shows device and capacity errors to the user and moves to safe.
// The error is always returned.
func (c *Controller) route(err error, safe Screen) error {
	if errors.IsDevice(err) || errors.IsCapacity(err) {
		appErr, _ := errors.GetAppError(err)
		c.mu.Lock()
		c.message = appErr.Message
		c.screen = safe
		c.mu.Unlock()
		log.Printf("[Session] %s error, returning to %s: %v", appErr.Category, safe, err)
	}
	return err
}
