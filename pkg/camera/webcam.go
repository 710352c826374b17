//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"log"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// WebcamSource streams from a local capture device through OpenCV
type WebcamSource struct {
	mu       sync.Mutex
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	mirrored bool
}

// OpenWebcam is an Opener for numeric OpenCV device ids ("0", "1", ...)
func OpenWebcam(ctx context.Context, deviceID string, c Constraints) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(deviceID)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", deviceID, ErrNoDevice)
	}

	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", id, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("device %d: %w", id, ErrNoDevice)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	w := int(capture.Get(gocv.VideoCaptureFrameWidth))
	h := int(capture.Get(gocv.VideoCaptureFrameHeight))
	if w <= 0 || h <= 0 {
		capture.Close()
		return nil, fmt.Errorf("device %d reports %dx%d: %w", id, w, h, ErrUnsatisfiable)
	}
	log.Printf("[Camera] Webcam %d streaming at %dx%d", id, w, h)

	return &WebcamSource{capture: capture, mat: gocv.NewMat(), mirrored: c.FacingUser}, nil
}

func (s *WebcamSource) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil, ErrClosed
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("webcam returned no frame")
	}
	return s.mat.ToImage()
}

func (s *WebcamSource) Mirrored() bool { return s.mirrored }

func (s *WebcamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil
	}
	s.mat.Close()
	err := s.capture.Close()
	s.capture = nil
	return err
}
