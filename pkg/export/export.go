// Package export saves finished photos to disk and hands them to a share
// target, falling back to a plain download when sharing fails.
package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/photobooth/internal/utils"
	"github.com/menta2k/photobooth/pkg/processing"
)

// ErrShareCanceled is returned by a Sharer when the user dismisses the share
// target. No download happens in that case.
var ErrShareCanceled = stderrors.New("share canceled")

// Sharer hands encoded image bytes to an external share target
type Sharer interface {
	Share(ctx context.Context, data []byte, mime, name string) error
}

// Config holds export settings
type Config struct {
	Dir     string
	Format  string // png, jpeg or webp
	Quality int
}

// DefaultConfig returns PNG output into ./output
func DefaultConfig() Config {
	return Config{Dir: "output", Format: "png", Quality: 92}
}

// Result reports what Share did
type Result struct {
	Shared bool
	Path   string // set when the image was downloaded
}

// Exporter writes images to the output directory and shares them
type Exporter struct {
	config Config
	sharer Sharer
	now    func() time.Time
}

// New creates an exporter. sharer may be nil, in which case Share always
// downloads.
func New(config Config, sharer Sharer) *Exporter {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}
	config.Format = utils.NormalizeFormat(config.Format)
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = DefaultConfig().Quality
	}
	return &Exporter{config: config, sharer: sharer, now: time.Now}
}

// Download writes img into the output directory and returns its path. An
// empty name gets a timestamped one.
func (e *Exporter) Download(img image.Image, name string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to export")
	}
	if err := utils.EnsureDir(e.config.Dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := utils.OutputFilename(e.config.Dir, name, e.config.Format, e.now())
	data, err := e.encode(img)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save output file: %w", err)
	}

	log.Printf("[Export] Saved %s (%s)", path, utils.FormatFileSize(int64(len(data))))
	return path, nil
}

// Share offers img to the share target and downloads it when sharing is
// unavailable or fails
func (e *Exporter) Share(ctx context.Context, img image.Image, name string) (Result, error) {
	if e.sharer == nil {
		path, err := e.Download(img, name)
		return Result{Path: path}, err
	}

	data, err := e.encode(img)
	if err != nil {
		return Result{}, err
	}
	err = e.sharer.Share(ctx, data, processing.MimeTypes[e.config.Format], filepath.Base(utils.OutputFilename("", name, e.config.Format, e.now())))
	switch {
	case err == nil:
		log.Printf("[Export] Shared %s", utils.FormatFileSize(int64(len(data))))
		return Result{Shared: true}, nil
	case stderrors.Is(err, ErrShareCanceled):
		return Result{}, nil
	}

	log.Printf("[Export] Share failed, downloading instead: %v", err)
	path, err := e.Download(img, name)
	return Result{Path: path}, err
}

func (e *Exporter) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := processing.Encode(&buf, img, e.config.Format, e.config.Quality, false); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", e.config.Format, err)
	}
	return buf.Bytes(), nil
}
