// Package upload validates user-supplied frame images before they reach
// the editor or the template store.
package upload

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/menta2k/photobooth/internal/utils"
	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/processing"
)

// Validator checks uploaded images against format, size and dimension limits
type Validator struct {
	config Config
}

// Config holds upload limits
type Config struct {
	MaxBytes          int64
	MinDimension      int
	MaxDimension      int
	SupportedFormats  []string
	RecommendedWidth  int
	RecommendedHeight int
}

// Upload is an accepted image
type Upload struct {
	Image   image.Image
	Format  string
	Width   int
	Height  int
	Size    int64
	Data    []byte
	DataURI string
	// Advisory is set when the image differs from the recommended size. It
	// is informational; the upload is still accepted.
	Advisory string
}

// New creates a Validator with the default limits
func New() *Validator {
	return &Validator{
		config: Config{
			MaxBytes:          5 << 20,
			MinDimension:      400,
			MaxDimension:      4096,
			SupportedFormats:  []string{"png", "jpeg", "webp"},
			RecommendedWidth:  1080,
			RecommendedHeight: 1920,
		},
	}
}

// NewWithConfig creates a Validator with custom limits
func NewWithConfig(config Config) *Validator {
	return &Validator{config: config}
}

// Config returns the active limits
func (v *Validator) Config() Config {
	return v.config
}

// ValidateFile reads and validates an image file
func (v *Validator) ValidateFile(path string) (*Upload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()
	return v.ValidateReader(file)
}

// ValidateReader reads at most MaxBytes+1 bytes from r and validates them
func (v *Validator) ValidateReader(r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, v.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return v.ValidateBytes(data)
}

// ValidateDataURI validates a base64 data: URI
func (v *Validator) ValidateDataURI(uri string) (*Upload, error) {
	data, _, err := processing.DecodeDataURI(uri)
	if err != nil {
		return nil, errors.ValidationCode(errors.ErrCodeInvalidFormat, "file", "could not read the image data: %v", err)
	}
	return v.ValidateBytes(data)
}

// ValidateBytes checks size, format and dimensions, then decodes the image
func (v *Validator) ValidateBytes(data []byte) (*Upload, error) {
	size := int64(len(data))
	if size == 0 {
		return nil, errors.Validation("file", "the file is empty")
	}
	if size > v.config.MaxBytes {
		return nil, errors.ValidationCode(errors.ErrCodeTooLarge, "file",
			"the file is larger than %s; please use a smaller image", utils.FormatFileSize(v.config.MaxBytes))
	}

	cfg, format, err := processing.DecodeConfig(data)
	if err != nil || !v.isFormatSupported(format) {
		return nil, errors.ValidationCode(errors.ErrCodeInvalidFormat, "file",
			"unsupported image type; please use %s", strings.ToUpper(strings.Join(v.config.SupportedFormats, ", ")))
	}

	if err := v.validateDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := processing.DecodeBytes(data)
	if err != nil {
		return nil, errors.ValidationCode(errors.ErrCodeInvalidFormat, "file", "the image could not be decoded: %v", err)
	}

	return &Upload{
		Image:    img,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     size,
		Data:     data,
		DataURI:  processing.EncodeDataURI(data, processing.MimeTypes[format]),
		Advisory: v.advisory(cfg.Width, cfg.Height),
	}, nil
}

func (v *Validator) validateDimensions(w, h int) error {
	if w < v.config.MinDimension || h < v.config.MinDimension {
		return errors.ValidationCode(errors.ErrCodeDimensions, "file",
			"image is %dx%d; both sides must be at least %d pixels", w, h, v.config.MinDimension)
	}
	if w > v.config.MaxDimension || h > v.config.MaxDimension {
		return errors.ValidationCode(errors.ErrCodeDimensions, "file",
			"image is %dx%d; neither side may exceed %d pixels", w, h, v.config.MaxDimension)
	}
	return nil
}

func (v *Validator) advisory(w, h int) string {
	rw, rh := v.config.RecommendedWidth, v.config.RecommendedHeight
	if rw == 0 || rh == 0 || (w == rw && h == rh) {
		return ""
	}
	return fmt.Sprintf("Image is %dx%d; %dx%d is recommended for best results", w, h, rw, rh)
}

func (v *Validator) isFormatSupported(format string) bool {
	for _, supported := range v.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
