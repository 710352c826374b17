// Package camera provides frame sources and keeps at most one camera stream
// open at a time.
package camera

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"sync"
	"syscall"

	"github.com/menta2k/photobooth/pkg/errors"
)

// Default capture resolution requested from devices
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Errors a backend returns so the manager can classify them
var (
	ErrPermissionDenied = stderrors.New("camera permission denied")
	ErrNoDevice         = stderrors.New("no camera found")
	ErrDeviceBusy       = stderrors.New("camera in use")
	ErrUnsatisfiable    = stderrors.New("camera cannot satisfy constraints")
	ErrClosed           = stderrors.New("camera source closed")
)

// Source is an open camera stream
type Source interface {
	Frame() (image.Image, error)
	// Mirrored reports whether preview and capture should be flipped
	Mirrored() bool
	Close() error
}

// Constraints describe the stream requested from a device
type Constraints struct {
	Width      int
	Height     int
	FacingUser bool
}

// DefaultConstraints requests a user-facing 1280x720 stream
func DefaultConstraints() Constraints {
	return Constraints{Width: DefaultWidth, Height: DefaultHeight, FacingUser: true}
}

// Opener opens deviceID with the given constraints
type Opener func(ctx context.Context, deviceID string, c Constraints) (Source, error)

// ClassifyError maps a backend error onto a device AppError carrying a
// message the user can act on
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsDevice(err) {
		return err
	}

	switch {
	case stderrors.Is(err, ErrPermissionDenied), stderrors.Is(err, fs.ErrPermission):
		return errors.Device(errors.ErrCodePermissionDenied,
			"Camera access was denied. Allow camera access for this application and try again.", err)
	case stderrors.Is(err, ErrNoDevice), stderrors.Is(err, fs.ErrNotExist):
		return errors.Device(errors.ErrCodeNoDevice,
			"No camera was found. Connect a camera or choose another device.", err)
	case stderrors.Is(err, ErrDeviceBusy), stderrors.Is(err, syscall.EBUSY):
		return errors.Device(errors.ErrCodeDeviceBusy,
			"The camera is being used by another application. Close it and try again.", err)
	case stderrors.Is(err, ErrUnsatisfiable):
		return errors.Device(errors.ErrCodeUnsatisfiable,
			"The camera does not support the requested resolution. Try another camera.", err)
	default:
		return errors.Device(errors.ErrCodeDeviceFailure,
			"The camera could not be started.", err)
	}
}

// Manager owns the active stream. Switching devices always closes the
// previous stream before the next one is opened.
type Manager struct {
	open        Opener
	constraints Constraints

	mu       sync.Mutex
	active   Source
	activeID string
}

// NewManager creates a manager that opens devices with open
func NewManager(open Opener, c Constraints) *Manager {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.Height == 0 {
		c.Height = DefaultHeight
	}
	return &Manager{open: open, constraints: c}
}

// Switch closes the current stream and opens deviceID. On failure no stream
// is active and the error is classified.
func (m *Manager) Switch(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	if m.open == nil {
		return ClassifyError(ErrNoDevice)
	}
	log.Printf("[Camera] Opening device %q (%dx%d)", deviceID, m.constraints.Width, m.constraints.Height)
	src, err := m.open(ctx, deviceID, m.constraints)
	if err != nil {
		log.Printf("[Camera] Failed to open %q: %v", deviceID, err)
		return ClassifyError(err)
	}
	m.active = src
	m.activeID = deviceID
	return nil
}

// Frame returns the current frame of the active stream
func (m *Manager) Frame() (image.Image, error) {
	m.mu.Lock()
	src := m.active
	m.mu.Unlock()

	if src == nil {
		return nil, ClassifyError(ErrNoDevice)
	}
	img, err := src.Frame()
	if err != nil {
		return nil, ClassifyError(err)
	}
	return img, nil
}

// Mirrored reports whether the active stream is mirrored
func (m *Manager) Mirrored() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil && m.active.Mirrored()
}

// ActiveID returns the open device id, or "" when none is open
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Stop closes the active stream
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.active == nil {
		return
	}
	log.Printf("[Camera] Stopping device %q", m.activeID)
	if err := m.active.Close(); err != nil {
		log.Printf("[Camera] Warning: close %q: %v", m.activeID, err)
	}
	m.active = nil
	m.activeID = ""
}

// Devices maps device ids to openers for backends that enumerate ahead of
// time, such as a set of image files
type Devices map[string]Opener

// Open dispatches to the opener registered for deviceID
func (d Devices) Open(ctx context.Context, deviceID string, c Constraints) (Source, error) {
	open, ok := d[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %q: %w", deviceID, ErrNoDevice)
	}
	return open(ctx, deviceID, c)
}
