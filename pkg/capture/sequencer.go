// Package capture drives the timed countdown, shutter and flash sequence
// that produces raw frames for the compositor.
package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/menta2k/photobooth/pkg/errors"
)

var (
	// ErrBusy is returned when a capture is requested while one is running
	ErrBusy = stderrors.New("capture already in progress")
	// ErrCanceled is returned when a sequence is canceled before it completes
	ErrCanceled = stderrors.New("capture canceled")
)

// State is the sequencer's position in the capture state machine
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateCapturing:
		return "capturing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Display shows capture feedback to the user
type Display interface {
	ShowCountdown(n int)
	HideCountdown()
	ShowShotIndicator(shot, total int)
	HideShotIndicator()
	// Flash starts a full-screen flash that fades out over d
	Flash(d time.Duration)
}

// Shutter plays the audible shutter cue
type Shutter interface {
	Play()
}

// FrameGrabber returns the current camera frame
type FrameGrabber interface {
	Frame() (image.Image, error)
}

// Config holds sequence timing
type Config struct {
	CountdownSeconds int
	InterShotDelay   time.Duration
	FlashDuration    time.Duration
}

// DefaultConfig returns the standard timing: a 3 second countdown and
// 1.5 seconds between strip shots
func DefaultConfig() Config {
	return Config{
		CountdownSeconds: 3,
		InterShotDelay:   1500 * time.Millisecond,
		FlashDuration:    300 * time.Millisecond,
	}
}

// Sequencer runs one capture at a time
type Sequencer struct {
	config  Config
	clock   Clock
	display Display
	shutter Shutter

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// New creates a sequencer. A nil clock uses the wall clock; nil display
// and shutter disable feedback.
func New(config Config, clock Clock, display Display, shutter Shutter) *Sequencer {
	if clock == nil {
		clock = RealClock{}
	}
	if display == nil {
		display = nopDisplay{}
	}
	if shutter == nil {
		shutter = nopShutter{}
	}
	if config.CountdownSeconds < 0 {
		config.CountdownSeconds = 0
	}
	return &Sequencer{config: config, clock: clock, display: display, shutter: shutter}
}

// State returns the current state
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a sequence is running
func (s *Sequencer) Busy() bool {
	return s.State() != StateIdle
}

// Cancel stops a running sequence. It is a no-op when idle.
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CaptureSingle runs one countdown and returns the captured frame
func (s *Sequencer) CaptureSingle(ctx context.Context, grabber FrameGrabber) (image.Image, error) {
	frames, err := s.CaptureStrip(ctx, grabber, 1, nil)
	if err != nil {
		return nil, err
	}
	return frames[0], nil
}

// CaptureStrip runs shots countdowns in a row and returns the frames in shot
// order. onShot, when set, is called after each capture. On cancel or error
// no frames are returned.
func (s *Sequencer) CaptureStrip(ctx context.Context, grabber FrameGrabber, shots int, onShot func(shot int, frame image.Image)) ([]image.Image, error) {
	if shots < 1 {
		return nil, errors.Validation("shots", "must be at least 1, got %d", shots)
	}

	ctx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.end()

	log.Printf("[Capture] Starting %d-shot sequence", shots)
	frames := make([]image.Image, 0, shots)
	for i := 0; i < shots; i++ {
		if i > 0 {
			if err := s.wait(ctx, s.config.InterShotDelay); err != nil {
				return nil, err
			}
		}
		if shots > 1 {
			s.display.ShowShotIndicator(i+1, shots)
		}

		frame, err := s.shoot(ctx, grabber)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
		if onShot != nil {
			onShot(i, frame)
		}
	}

	log.Printf("[Capture] Sequence complete")
	return frames, nil
}

// shoot runs the countdown for one shot and grabs the frame
func (s *Sequencer) shoot(ctx context.Context, grabber FrameGrabber) (image.Image, error) {
	s.setState(StateCountdown)
	for n := s.config.CountdownSeconds; n > 0; n-- {
		s.display.ShowCountdown(n)
		if err := s.wait(ctx, time.Second); err != nil {
			return nil, err
		}
	}
	if s.config.CountdownSeconds > 0 {
		s.display.HideCountdown()
	}
	if ctx.Err() != nil {
		return nil, ErrCanceled
	}

	s.setState(StateCapturing)
	s.shutter.Play()
	frame, err := grabber.Frame()
	if err != nil {
		log.Printf("[Capture] Frame grab failed: %v", err)
		if errors.IsDevice(err) {
			return nil, err
		}
		return nil, errors.Device(errors.ErrCodeDeviceFailure, "Could not read a frame from the camera. Check that it is still connected.", err)
	}
	s.display.Flash(s.config.FlashDuration)
	return frame, nil
}

// wait blocks for d or until the sequence is canceled
func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return ErrCanceled
		}
		return nil
	}
	t := s.clock.NewTimer(d)
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		t.Stop()
		return ErrCanceled
	}
}

func (s *Sequencer) begin(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.state = StateCountdown
	return ctx, nil
}

// end hides all capture UI and returns to idle
func (s *Sequencer) end() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.state = StateIdle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.display.HideCountdown()
	s.display.HideShotIndicator()
}

func (s *Sequencer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

type nopDisplay struct{}

func (nopDisplay) ShowCountdown(int)          {}
func (nopDisplay) HideCountdown()             {}
func (nopDisplay) ShowShotIndicator(int, int) {}
func (nopDisplay) HideShotIndicator()         {}
func (nopDisplay) Flash(time.Duration)        {}

type nopShutter struct{}

func (nopShutter) Play() {}
