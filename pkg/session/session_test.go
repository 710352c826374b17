package session

import (
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/menta2k/photobooth/pkg/camera"
	"github.com/menta2k/photobooth/pkg/capture"
	"github.com/menta2k/photobooth/pkg/compositor"
	"github.com/menta2k/photobooth/pkg/editor"
	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/export"
	"github.com/menta2k/photobooth/pkg/processing"
	"github.com/menta2k/photobooth/pkg/registry"
	"github.com/menta2k/photobooth/pkg/store"
	"github.com/menta2k/photobooth/pkg/template"
)

func createTestImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

type instantClock struct{}

func (instantClock) NewTimer(d time.Duration) capture.Timer {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return instantTimer(ch)
}

type instantTimer chan time.Time

func (t instantTimer) C() <-chan time.Time { return t }
func (t instantTimer) Stop() bool          { return true }

type harness struct {
	ctrl   *Controller
	store  *store.Store
	outDir string
}

func newHarness(t *testing.T, opener camera.Opener, maxTemplates int) *harness {
	t.Helper()
	st, err := store.New(store.NewMemoryKV(0), store.Options{MaxTemplates: maxTemplates, DefaultIDs: template.DefaultIDs()})
	if err != nil {
		t.Fatal(err)
	}
	comp, err := compositor.New(nil, compositor.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if opener == nil {
		src := camera.NewStaticSource(true,
			createTestImage(64, 48, color.NRGBA{255, 0, 0, 255}),
			createTestImage(64, 48, color.NRGBA{0, 0, 255, 255}))
		opener = camera.StaticOpener(src)
	}
	outDir := filepath.Join(t.TempDir(), "out")

	ctrl := New(Deps{
		Templates:  registry.New(st, nil, nil),
		Camera:     camera.NewManager(opener, camera.DefaultConstraints()),
		Capturer:   capture.New(capture.Config{CountdownSeconds: 1}, instantClock{}, nil, nil),
		Compositor: comp,
		Exporter:   export.New(export.Config{Dir: outDir, Format: "png"}, nil),
		Store:      st,
		Editor:     editor.New(editor.DefaultConfig(), nil),
		Loader:     processing.NewProcessor(),
		DeviceID:   "booth",
	})
	return &harness{ctrl: ctrl, store: st, outDir: outDir}
}

func TestCaptureFlow(t *testing.T) {
	h := newHarness(t, nil, 0)
	c := h.ctrl
	ctx := context.Background()

	if c.Screen() != ScreenHome {
		t.Fatalf("initial screen = %v", c.Screen())
	}
	c.OpenPicker()
	if err := c.SelectTemplate(ctx, "double-strip"); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}
	if c.Screen() != ScreenCapture {
		t.Fatalf("screen = %v, want capture", c.Screen())
	}

	var shots []int
	if err := c.Capture(ctx, func(i int, _ image.Image) { shots = append(shots, i) }); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if c.Screen() != ScreenReview {
		t.Errorf("screen = %v, want review", c.Screen())
	}
	if len(shots) != 2 || len(c.Frames()) != 2 {
		t.Errorf("shots = %v frames = %d", shots, len(c.Frames()))
	}
	res := c.Result()
	tpl := c.Template()
	if res == nil || res.Degraded {
		t.Fatalf("result = %+v", res)
	}
	if res.Image.Bounds().Dx() != tpl.FrameWidth || res.Image.Bounds().Dy() != tpl.FrameHeight {
		t.Errorf("result size = %v", res.Image.Bounds())
	}

	path, err := c.Download("strip")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
	shared, err := c.Share(ctx, "strip2")
	if err != nil || shared.Path == "" {
		t.Errorf("Share() = %+v, %v", shared, err)
	}

	if err := c.Retake(); err != nil {
		t.Fatal(err)
	}
	if c.Screen() != ScreenCapture || c.Result() != nil || len(c.Frames()) != 0 {
		t.Error("Retake() should discard frames and result")
	}
	if err := c.Retake(); !stderrors.Is(err, ErrWrongScreen) {
		t.Errorf("Retake() outside review error = %v", err)
	}

	c.GoHome()
	if c.Screen() != ScreenHome || c.Template() != nil {
		t.Error("GoHome() did not reset the session")
	}
	if _, err := c.Download("x"); !stderrors.Is(err, ErrWrongScreen) {
		t.Errorf("Download() without result error = %v", err)
	}
}

func TestSelectUnknownTemplate(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.ctrl.OpenPicker()
	err := h.ctrl.SelectTemplate(context.Background(), "nope")
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
	if h.ctrl.Screen() != ScreenPicker || h.ctrl.Message() != "" {
		t.Error("not-found errors are returned without changing screens")
	}
}

func TestCameraPermissionDenied(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, id string, c camera.Constraints) (camera.Source, error) {
		return nil, camera.ErrPermissionDenied
	}, 0)
	h.ctrl.OpenPicker()

	err := h.ctrl.SelectTemplate(context.Background(), "classic")
	if !errors.HasCode(err, errors.ErrCodePermissionDenied) {
		t.Errorf("error = %v, want permission denied", err)
	}
	if h.ctrl.Screen() != ScreenPicker {
		t.Errorf("screen = %v, want picker", h.ctrl.Screen())
	}
	if h.ctrl.Message() == "" {
		t.Error("device error should set a user message")
	}
	if err := h.ctrl.Capture(context.Background(), nil); !stderrors.Is(err, ErrWrongScreen) {
		t.Errorf("Capture() after failed open error = %v", err)
	}
}

func TestCaptureDeviceFailure(t *testing.T) {
	h := newHarness(t, camera.StaticOpener(camera.NewStaticSource(false)), 0)
	c := h.ctrl
	if err := c.SelectTemplate(context.Background(), "classic"); err != nil {
		t.Fatal(err)
	}

	err := c.Capture(context.Background(), nil)
	if !errors.IsDevice(err) {
		t.Fatalf("error = %v, want device error", err)
	}
	if c.Screen() != ScreenPicker || c.Message() == "" {
		t.Errorf("screen = %v message = %q", c.Screen(), c.Message())
	}
	if c.Result() != nil {
		t.Error("failed capture produced a result")
	}
	c.ClearMessage()
	if c.Message() != "" {
		t.Error("ClearMessage() did not clear")
	}
}

func TestCaptureCanceled(t *testing.T) {
	h := newHarness(t, nil, 0)
	c := h.ctrl
	if err := c.SelectTemplate(context.Background(), "classic"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Capture(ctx, nil); !stderrors.Is(err, capture.ErrCanceled) {
		t.Errorf("error = %v, want ErrCanceled", err)
	}
	if c.Screen() != ScreenCapture || c.Message() != "" {
		t.Error("cancel should leave the session on the capture screen")
	}
}

func loadEditorFrame(t *testing.T, c *Controller, name string) {
	t.Helper()
	c.OpenEditor()
	if err := c.Editor().LoadFrame(createTestImage(400, 600, color.NRGBA{0, 0, 0, 0}), ""); err != nil {
		t.Fatal(err)
	}
	c.Editor().SetName(name)
}

func TestSaveTemplateAndCapacity(t *testing.T) {
	h := newHarness(t, nil, 1)
	c := h.ctrl
	ctx := context.Background()

	loadEditorFrame(t, c, "First")
	rec, err := c.SaveTemplate(ctx)
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	if c.Screen() != ScreenPicker || c.Message() == "" {
		t.Errorf("after save screen = %v message = %q", c.Screen(), c.Message())
	}

	loadEditorFrame(t, c, "Second")
	_, err = c.SaveTemplate(ctx)
	if !errors.IsCapacity(err) {
		t.Fatalf("error = %v, want capacity", err)
	}
	if c.Screen() != ScreenPicker || c.Message() == "" {
		t.Errorf("capacity error should return to the picker with a message, screen = %v", c.Screen())
	}
	if c.Editor().Name() != "Second" || !c.Editor().HasFrame() {
		t.Error("capacity error discarded the editor state")
	}

	// free a slot, then finish the pending template
	if err := c.DeleteTemplate(rec.ID); err != nil {
		t.Fatal(err)
	}
	if err := c.ResumeEditor(); err != nil {
		t.Fatalf("ResumeEditor() error = %v", err)
	}
	if c.Screen() != ScreenEditor || c.Message() != "" {
		t.Errorf("screen = %v message = %q", c.Screen(), c.Message())
	}
	rec, err = c.SaveTemplate(ctx)
	if err != nil {
		t.Fatalf("SaveTemplate() after delete error = %v", err)
	}
	if rec.Name != "Second" {
		t.Errorf("saved %q", rec.Name)
	}

	loadEditorFrame(t, c, "Third")
	c.Editor().SetName("")
	c.ClearMessage()
	if _, err := c.SaveTemplate(ctx); !errors.IsValidation(err) {
		t.Errorf("empty name error = %v", err)
	}
	if c.Message() != "" {
		t.Error("validation errors are returned, not displayed")
	}

	if err := c.DeleteTemplate(rec.ID); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteTemplate("classic"); !errors.IsImmutable(err) {
		t.Errorf("delete default error = %v", err)
	}
}

func TestEditAndShootCustomTemplate(t *testing.T) {
	h := newHarness(t, nil, 0)
	c := h.ctrl
	ctx := context.Background()

	loadEditorFrame(t, c, "Party")
	rec, err := c.SaveTemplate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.EditTemplate(ctx, rec.ID); err != nil {
		t.Fatalf("EditTemplate() error = %v", err)
	}
	if c.Screen() != ScreenEditor || c.Editor().Mode() != editor.ModeEdit || c.Editor().Name() != "Party" {
		t.Error("custom template not opened for editing")
	}
	if err := c.EditTemplate(ctx, "classic"); !errors.IsImmutable(err) {
		t.Errorf("edit default error = %v", err)
	}

	// the compositor has no asset loader, so the frame art cannot load
	if err := c.SelectTemplate(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if err := c.Capture(ctx, nil); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if !c.Result().Degraded || c.Message() == "" {
		t.Error("degraded composite should be reported")
	}
}

func TestScreenString(t *testing.T) {
	if ScreenReview.String() != "review" || Screen(42).String() != "screen(42)" {
		t.Error("unexpected Screen strings")
	}
}
