package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// ImageLoader loads an image reference (path, URL or data: URI)
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// StaticSource replays a fixed list of images, one per Frame call, wrapping
// around at the end
type StaticSource struct {
	mu       sync.Mutex
	frames   []image.Image
	next     int
	mirrored bool
	closed   bool
}

// NewStaticSource creates a source over frames
func NewStaticSource(mirrored bool, frames ...image.Image) *StaticSource {
	return &StaticSource{frames: frames, mirrored: mirrored}
}

// LoadStaticSource loads refs with loader and replays them
func LoadStaticSource(ctx context.Context, loader ImageLoader, mirrored bool, refs ...string) (*StaticSource, error) {
	if len(refs) == 0 {
		return nil, ErrNoDevice
	}
	frames := make([]image.Image, 0, len(refs))
	for _, ref := range refs {
		img, err := loader.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load frame %s: %w", ref, err)
		}
		frames = append(frames, img)
	}
	return NewStaticSource(mirrored, frames...), nil
}

// StaticOpener returns an Opener that serves src regardless of device id
func StaticOpener(src *StaticSource) Opener {
	return func(ctx context.Context, deviceID string, c Constraints) (Source, error) {
		src.mu.Lock()
		src.closed = false
		src.mu.Unlock()
		return src, nil
	}
}

func (s *StaticSource) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.frames) == 0 {
		return nil, ErrNoDevice
	}
	img := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	return img, nil
}

func (s *StaticSource) Mirrored() bool { return s.mirrored }

func (s *StaticSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
