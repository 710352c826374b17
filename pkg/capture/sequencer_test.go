package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/menta2k/photobooth/pkg/errors"
)

// instantClock fires every timer immediately and records requested durations
type instantClock struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (c *instantClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	c.durations = append(c.durations, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return &fakeTimer{ch: ch}
}

// blockingClock never fires; timers only end through cancellation
type blockingClock struct {
	created chan struct{}
	stopped chan struct{}
}

func newBlockingClock() *blockingClock {
	return &blockingClock{created: make(chan struct{}, 16), stopped: make(chan struct{}, 16)}
}

func (c *blockingClock) NewTimer(d time.Duration) Timer {
	c.created <- struct{}{}
	return &fakeTimer{ch: make(chan time.Time), onStop: func() { c.stopped <- struct{}{} }}
}

type fakeTimer struct {
	ch     chan time.Time
	onStop func()
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }
func (t *fakeTimer) Stop() bool {
	if t.onStop != nil {
		t.onStop()
	}
	return true
}

type recordingDisplay struct {
	mu     sync.Mutex
	events []string
	seq    *Sequencer
	states []State
}

func (d *recordingDisplay) record(e string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	if d.seq != nil {
		d.states = append(d.states, d.seq.State())
	}
}

func (d *recordingDisplay) ShowCountdown(n int)          { d.record(fmt.Sprintf("countdown %d", n)) }
func (d *recordingDisplay) HideCountdown()               { d.record("hide countdown") }
func (d *recordingDisplay) ShowShotIndicator(i, n int)   { d.record(fmt.Sprintf("shot %d/%d", i, n)) }
func (d *recordingDisplay) HideShotIndicator()           { d.record("hide indicator") }
func (d *recordingDisplay) Flash(dur time.Duration)      { d.record(fmt.Sprintf("flash %s", dur)) }

type countingShutter struct{ plays int }

func (s *countingShutter) Play() { s.plays++ }

type fakeGrabber struct {
	calls int
	err   error
}

func (g *fakeGrabber) Frame() (image.Image, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	// encode the call number in the width so order can be checked
	return image.NewRGBA(image.Rect(0, 0, g.calls, 1)), nil
}

func TestCaptureSingleSequence(t *testing.T) {
	clock := &instantClock{}
	display := &recordingDisplay{}
	shutter := &countingShutter{}
	s := New(Config{CountdownSeconds: 3, FlashDuration: 200 * time.Millisecond}, clock, display, shutter)
	display.seq = s

	frame, err := s.CaptureSingle(context.Background(), &fakeGrabber{})
	if err != nil {
		t.Fatalf("CaptureSingle() error = %v", err)
	}
	if frame == nil {
		t.Fatal("nil frame")
	}

	want := []string{"countdown 3", "countdown 2", "countdown 1", "hide countdown", "flash 200ms", "hide countdown", "hide indicator"}
	if fmt.Sprint(display.events) != fmt.Sprint(want) {
		t.Errorf("events = %v\nwant %v", display.events, want)
	}
	for i, d := range clock.durations {
		if d != time.Second {
			t.Errorf("tick %d duration = %v, want 1s", i, d)
		}
	}
	if len(clock.durations) != 3 {
		t.Errorf("expected 3 ticks, got %d", len(clock.durations))
	}
	if shutter.plays != 1 {
		t.Errorf("shutter played %d times", shutter.plays)
	}
	if display.states[0] != StateCountdown || display.states[4] != StateCapturing {
		t.Errorf("states = %v", display.states)
	}
	if s.State() != StateIdle {
		t.Errorf("final state = %v", s.State())
	}
}

func TestZeroCountdownCapturesImmediately(t *testing.T) {
	clock := &instantClock{}
	s := New(Config{CountdownSeconds: 0}, clock, nil, nil)
	if _, err := s.CaptureSingle(context.Background(), &fakeGrabber{}); err != nil {
		t.Fatal(err)
	}
	if len(clock.durations) != 0 {
		t.Errorf("expected no timers, got %v", clock.durations)
	}
}

func TestCaptureStripOrderAndDelays(t *testing.T) {
	clock := &instantClock{}
	display := &recordingDisplay{}
	s := New(Config{CountdownSeconds: 1, InterShotDelay: 1500 * time.Millisecond}, clock, display, nil)

	var shots []int
	frames, err := s.CaptureStrip(context.Background(), &fakeGrabber{}, 3, func(i int, _ image.Image) {
		shots = append(shots, i)
	})
	if err != nil {
		t.Fatalf("CaptureStrip() error = %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames", len(frames))
	}
	for i, f := range frames {
		if f.Bounds().Dx() != i+1 {
			t.Errorf("frame %d out of order", i)
		}
	}
	if fmt.Sprint(shots) != "[0 1 2]" {
		t.Errorf("onShot order = %v", shots)
	}

	want := []time.Duration{time.Second, 1500 * time.Millisecond, time.Second, 1500 * time.Millisecond, time.Second}
	if fmt.Sprint(clock.durations) != fmt.Sprint(want) {
		t.Errorf("timers = %v, want %v", clock.durations, want)
	}

	indicators := 0
	for _, e := range display.events {
		if e == "shot 1/3" || e == "shot 2/3" || e == "shot 3/3" {
			indicators++
		}
	}
	if indicators != 3 {
		t.Errorf("expected 3 shot indicators, events = %v", display.events)
	}
}

func TestCancelDuringCountdown(t *testing.T) {
	clock := newBlockingClock()
	display := &recordingDisplay{}
	grabber := &fakeGrabber{}
	s := New(Config{CountdownSeconds: 3}, clock, display, nil)

	type result struct {
		frames []image.Image
		err    error
	}
	done := make(chan result, 1)
	go func() {
		frames, err := s.CaptureStrip(context.Background(), grabber, 2, nil)
		done <- result{frames, err}
	}()

	<-clock.created
	if !s.Busy() {
		t.Error("sequencer should be busy during countdown")
	}
	s.Cancel()

	r := <-done
	if !stderrors.Is(r.err, ErrCanceled) {
		t.Errorf("error = %v, want ErrCanceled", r.err)
	}
	if r.frames != nil {
		t.Error("canceled sequence must not emit frames")
	}
	if grabber.calls != 0 {
		t.Error("frame grabbed after cancel")
	}
	select {
	case <-clock.stopped:
	default:
		t.Error("pending timer was not stopped")
	}
	if s.State() != StateIdle {
		t.Errorf("state after cancel = %v", s.State())
	}

	last := display.events[len(display.events)-2:]
	if last[0] != "hide countdown" || last[1] != "hide indicator" {
		t.Errorf("UI not hidden on cancel: %v", display.events)
	}
}

func TestContextCancel(t *testing.T) {
	clock := newBlockingClock()
	s := New(Config{CountdownSeconds: 5}, clock, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.CaptureSingle(ctx, &fakeGrabber{})
		done <- err
	}()
	<-clock.created
	cancel()
	if err := <-done; !stderrors.Is(err, ErrCanceled) {
		t.Errorf("error = %v, want ErrCanceled", err)
	}
}

func TestReentrantCaptureIsBusy(t *testing.T) {
	clock := newBlockingClock()
	s := New(Config{CountdownSeconds: 3}, clock, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.CaptureSingle(context.Background(), &fakeGrabber{})
		done <- err
	}()
	<-clock.created

	grabber := &fakeGrabber{}
	if _, err := s.CaptureSingle(context.Background(), grabber); !stderrors.Is(err, ErrBusy) {
		t.Errorf("second capture error = %v, want ErrBusy", err)
	}
	if grabber.calls != 0 || s.State() != StateCountdown {
		t.Error("busy request must not disturb the running sequence")
	}

	s.Cancel()
	<-done
	s.Cancel() // idle cancel is a no-op
}

func TestGrabFailureIsDeviceError(t *testing.T) {
	display := &recordingDisplay{}
	s := New(Config{CountdownSeconds: 1}, &instantClock{}, display, nil)

	_, err := s.CaptureSingle(context.Background(), &fakeGrabber{err: stderrors.New("stream ended")})
	if !errors.IsDevice(err) {
		t.Errorf("error = %v, want device error", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v", s.State())
	}
	if display.events[len(display.events)-1] != "hide indicator" {
		t.Errorf("UI not hidden: %v", display.events)
	}

	devErr := errors.Device(errors.ErrCodeDeviceBusy, "busy", nil)
	_, err = s.CaptureSingle(context.Background(), &fakeGrabber{err: devErr})
	if !errors.HasCode(err, errors.ErrCodeDeviceBusy) {
		t.Errorf("device error code not preserved: %v", err)
	}
}

func TestInvalidShotCount(t *testing.T) {
	s := New(DefaultConfig(), &instantClock{}, nil, nil)
	if _, err := s.CaptureStrip(context.Background(), &fakeGrabber{}, 0, nil); !errors.IsValidation(err) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestStateString(t *testing.T) {
	if StateCountdown.String() != "countdown" || State(9).String() != "state(9)" {
		t.Error("unexpected State strings")
	}
}
