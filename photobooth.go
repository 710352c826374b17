// Package photobooth wires the booth together: the template store and
// registry, camera, capture sequencer, compositor, slot editor, uploads,
// export and the session controller.
//
// Basic usage:
//
//	cfg := config.Default()
//	booth, err := photobooth.New(cfg, photobooth.Options{
//		Opener: camera.StaticOpener(camera.NewStaticSource(true, img)),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	path, err := booth.Shoot(ctx, "double-strip", "party")
//
// The packages can also be used on their own:
//
//  1. cropper: cover-fit crop math for slots and previews
//  2. compositor: renders captured frames into a template
//  3. capture: countdown, flash and shutter sequencing
//  4. editor: slot layout editing for custom frame templates
//  5. store and registry: persisted custom templates and the catalog
package photobooth

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/menta2k/photobooth/internal/config"
	"github.com/menta2k/photobooth/pkg/camera"
	"github.com/menta2k/photobooth/pkg/capture"
	"github.com/menta2k/photobooth/pkg/client"
	"github.com/menta2k/photobooth/pkg/compositor"
	"github.com/menta2k/photobooth/pkg/detection"
	"github.com/menta2k/photobooth/pkg/editor"
	"github.com/menta2k/photobooth/pkg/export"
	"github.com/menta2k/photobooth/pkg/llamacpp"
	"github.com/menta2k/photobooth/pkg/ollama"
	"github.com/menta2k/photobooth/pkg/processing"
	"github.com/menta2k/photobooth/pkg/registry"
	"github.com/menta2k/photobooth/pkg/session"
	"github.com/menta2k/photobooth/pkg/store"
	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/upload"
)

// Version of the photobooth library
const Version = "1.0.0"

// Options supplies the parts of the booth that depend on the host. Every
// field is optional.
type Options struct {
	// Opener opens camera devices; nil means no camera is available
	Opener camera.Opener
	// KV backs the template store; nil uses a FileKV in the store dir
	KV      store.KV
	Display capture.Display
	Shutter capture.Shutter
	// Sharer receives shared results; nil downloads instead
	Sharer  export.Sharer
	Confirm editor.ConfirmFunc
}

// Booth holds every booth component built from one configuration
type Booth struct {
	Config     *config.Config
	Processor  *processing.Processor
	Store      *store.Store
	Registry   *registry.Registry
	Compositor *compositor.Compositor
	Camera     *camera.Manager
	Sequencer  *capture.Sequencer
	Editor     *editor.Editor
	Detector   *detection.Detector
	Uploads    *upload.Validator
	Exporter   *export.Exporter
	Session    *session.Controller
}

// customs defers to the store once it exists. The registry must load the
// catalog first because catalog frame ids are immutable in the store.
type customs struct {
	store *store.Store
}

func (c *customs) GetAll() []*store.Record {
	if c.store == nil {
		return nil
	}
	return c.store.GetAll()
}

// New builds a booth from cfg
func New(cfg *config.Config, opts Options) (*Booth, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	proc := processing.NewProcessor()

	bg, err := template.ParseHexColor(cfg.Layout.Background)
	if err != nil {
		return nil, fmt.Errorf("invalid layout.background: %w", err)
	}
	comp, err := compositor.New(proc, compositor.Config{
		MarginRatio: cfg.Layout.MarginRatio,
		GapRatio:    cfg.Layout.GapRatio,
		Background:  bg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create compositor: %w", err)
	}

	src := &customs{}
	reg := registry.New(src, proc, comp)
	if cfg.Templates.CatalogFile != "" {
		if err := reg.LoadCatalog(cfg.Templates.CatalogFile); err != nil {
			return nil, err
		}
	}

	kv := opts.KV
	if kv == nil {
		fileKV, err := store.NewFileKV(cfg.Templates.StoreDir, cfg.Templates.QuotaBytes)
		if err != nil {
			return nil, err
		}
		kv = fileKV
	}
	st, err := store.New(kv, store.Options{
		MaxTemplates:  cfg.Templates.MaxTemplates,
		MaxFrameBytes: cfg.Templates.MaxFrameBytes,
		DefaultIDs:    reg.DefaultIDs(),
		Release:       proc.Forget,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open template store: %w", err)
	}
	src.store = st

	opener := opts.Opener
	if opener == nil {
		opener = camera.Devices{}.Open
	}
	cam := camera.NewManager(opener, camera.Constraints{
		Width:      cfg.Camera.Width,
		Height:     cfg.Camera.Height,
		FacingUser: cfg.Camera.FacingUser,
	})

	seq := capture.New(capture.Config{
		CountdownSeconds: cfg.Capture.CountdownSeconds,
		InterShotDelay:   ms(cfg.Capture.InterShotDelayMs),
		FlashDuration:    ms(cfg.Capture.FlashDurationMs),
	}, nil, opts.Display, opts.Shutter)

	edConfig := editor.DefaultConfig()
	edConfig.MarginRatio = cfg.Layout.MarginRatio
	edConfig.GapRatio = cfg.Layout.GapRatio
	if cfg.Layout.HandleSize > 0 {
		edConfig.HandleSize = cfg.Layout.HandleSize
	}
	ed := editor.New(edConfig, opts.Confirm)

	vc, err := newVisionClient(cfg.Vision)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	det := detection.NewDetector(vc, cfg.Vision.Model)

	upConfig := upload.New().Config()
	upConfig.MaxBytes = cfg.Upload.MaxBytes
	upConfig.MinDimension = cfg.Upload.MinDimension
	upConfig.MaxDimension = cfg.Upload.MaxDimension

	exp := export.New(export.Config{
		Dir:     cfg.Output.OutputDir,
		Format:  cfg.Output.DefaultFormat,
		Quality: cfg.Output.Quality,
	}, opts.Sharer)

	b := &Booth{
		Config:     cfg,
		Processor:  proc,
		Store:      st,
		Registry:   reg,
		Compositor: comp,
		Camera:     cam,
		Sequencer:  seq,
		Editor:     ed,
		Detector:   det,
		Uploads:    upload.NewWithConfig(upConfig),
		Exporter:   exp,
	}
	b.Session = session.New(session.Deps{
		Templates:  reg,
		Camera:     cam,
		Capturer:   seq,
		Compositor: comp,
		Exporter:   exp,
		Store:      st,
		Editor:     ed,
		Loader:     proc,
		DeviceID:   cfg.Camera.Device,
	})
	log.Printf("[Booth] Ready: %d templates, store at %s", len(reg.All()), cfg.Templates.StoreDir)
	return b, nil
}

// newVisionClient returns nil when no vision URL is configured
func newVisionClient(vc config.VisionConfig) (client.VisionClient, error) {
	if vc.URL == "" {
		return nil, nil
	}
	switch vc.Backend {
	case "llamacpp":
		return llamacpp.NewClient(vc.URL)
	default:
		return ollama.NewClient(vc.URL)
	}
}

// Shoot runs a full session for templateID and downloads the result
func (b *Booth) Shoot(ctx context.Context, templateID, name string) (string, error) {
	return b.ShootWith(ctx, templateID, name, nil)
}

// ShootWith is Shoot with a per-shot callback
func (b *Booth) ShootWith(ctx context.Context, templateID, name string, onShot func(shot int, frame image.Image)) (string, error) {
	s := b.Session
	defer s.GoHome()

	s.OpenPicker()
	if err := s.SelectTemplate(ctx, templateID); err != nil {
		return "", err
	}
	if err := s.Capture(ctx, onShot); err != nil {
		return "", err
	}
	if msg := s.Message(); msg != "" {
		log.Printf("[Booth] %s", msg)
	}
	return s.Download(name)
}

// Compose renders already captured frames into a template without a camera
func (b *Booth) Compose(ctx context.Context, templateID string, frames []image.Image, mirrored bool) (*compositor.Result, error) {
	tpl, err := b.Registry.Get(templateID)
	if err != nil {
		return nil, err
	}
	return b.Compositor.CompositeStrip(ctx, frames, tpl, mirrored)
}

// CreateTemplate validates an uploaded frame image, lays out shots slots
// (detected from transparent windows when detect is set) and stores the
// result as a custom template.
func (b *Booth) CreateTemplate(ctx context.Context, framePath, name string, shots int, detect bool) (*store.Record, error) {
	up, err := b.Uploads.ValidateFile(framePath)
	if err != nil {
		return nil, err
	}
	if up.Advisory != "" {
		log.Printf("[Booth] WARNING: %s", up.Advisory)
	}

	ed := b.Editor
	ed.Reset()
	if err := ed.ChangeShotCount(shots); err != nil {
		return nil, err
	}
	if err := ed.LoadFrame(up.Image, up.DataURI); err != nil {
		return nil, err
	}
	if detect {
		if err := ed.SuggestSlots(ctx, b.Detector); err != nil {
			return nil, err
		}
	}
	ed.SetName(name)
	return ed.Save(ctx, b.Store)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
