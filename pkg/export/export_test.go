package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/menta2k/photobooth/pkg/processing"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 100, 255})
		}
	}
	return img
}

func newTestExporter(t *testing.T, format string, sharer Sharer) *Exporter {
	t.Helper()
	e := New(Config{Dir: filepath.Join(t.TempDir(), "out"), Format: format}, sharer)
	e.now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC) }
	return e
}

func TestDownloadFormats(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"png", ".png"},
		{"jpg", ".jpg"},
		{"webp", ".webp"},
		{"", ".png"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e := newTestExporter(t, tt.format, nil)
			path, err := e.Download(createTestImage(40, 60), "")
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if filepath.Base(path) != "photobooth-20240203-040506"+tt.ext {
				t.Errorf("path = %s", path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			img, _, err := processing.DecodeBytes(data)
			if err != nil {
				t.Fatalf("written file does not decode: %v", err)
			}
			if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 60 {
				t.Errorf("decoded size = %v", img.Bounds())
			}
		})
	}
}

func TestDownloadNilImage(t *testing.T) {
	if _, err := newTestExporter(t, "png", nil).Download(nil, "x"); err == nil {
		t.Error("expected error for nil image")
	}
}

type fakeSharer struct {
	err  error
	data []byte
	mime string
	name string
}

func (s *fakeSharer) Share(ctx context.Context, data []byte, mime, name string) error {
	s.data, s.mime, s.name = data, mime, name
	return s.err
}

func TestShare(t *testing.T) {
	sharer := &fakeSharer{}
	e := newTestExporter(t, "png", sharer)

	res, err := e.Share(context.Background(), createTestImage(10, 10), "party")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if !res.Shared || res.Path != "" {
		t.Errorf("result = %+v", res)
	}
	if sharer.mime != "image/png" || sharer.name != "party.png" || len(sharer.data) == 0 {
		t.Errorf("sharer got %s %s (%d bytes)", sharer.mime, sharer.name, len(sharer.data))
	}
}

func TestShareFallsBackToDownload(t *testing.T) {
	e := newTestExporter(t, "png", &fakeSharer{err: stderrors.New("no share target")})

	res, err := e.Share(context.Background(), createTestImage(10, 10), "party")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if res.Shared || filepath.Base(res.Path) != "party.png" {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("fallback file missing: %v", err)
	}
}

func TestShareCanceledDoesNotDownload(t *testing.T) {
	e := newTestExporter(t, "png", &fakeSharer{err: ErrShareCanceled})
	res, err := e.Share(context.Background(), createTestImage(10, 10), "party")
	if err != nil || res.Shared || res.Path != "" {
		t.Errorf("Share() = %+v, %v", res, err)
	}
	if _, err := os.Stat(e.config.Dir); !os.IsNotExist(err) {
		t.Error("canceled share should not create output")
	}
}

func TestShareWithoutSharerDownloads(t *testing.T) {
	res, err := newTestExporter(t, "jpeg", nil).Share(context.Background(), createTestImage(10, 10), "")
	if err != nil || !strings.HasSuffix(res.Path, ".jpg") {
		t.Errorf("Share() = %+v, %v", res, err)
	}
}

type call struct {
	name  string
	args  []string
	stdin []byte
}

func newFakeClipboard(goos string, installed map[string]bool, failing map[string]bool) (*ClipboardSharer, *[]call) {
	var calls []call
	s := &ClipboardSharer{
		GOOS:     goos,
		Commands: DefaultClipboardCommands(),
		lookPath: func(name string) (string, error) {
			if installed[name] {
				return "/usr/bin/" + name, nil
			}
			return "", stderrors.New("not found")
		},
		run: func(ctx context.Context, name string, args []string, stdin []byte) error {
			calls = append(calls, call{name, args, stdin})
			if failing[name] {
				return stderrors.New("exit status 1")
			}
			return nil
		},
	}
	return s, &calls
}

func TestClipboardSharer(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G'}

	s, calls := newFakeClipboard("linux", map[string]bool{"xclip": true, "wl-copy": true}, map[string]bool{"xclip": true})
	if err := s.Share(context.Background(), data, "image/png", "x.png"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if len(*calls) != 2 || (*calls)[1].name != "wl-copy" {
		t.Fatalf("calls = %+v", *calls)
	}
	if got := strings.Join((*calls)[0].args, " "); got != "-selection clipboard -t image/png -i" {
		t.Errorf("xclip args = %q", got)
	}
	if !bytes.Equal((*calls)[1].stdin, data) {
		t.Error("wl-copy should receive raw image bytes")
	}

	s, calls = newFakeClipboard("darwin", map[string]bool{"pbcopy": true}, nil)
	if err := s.Share(context.Background(), data, "image/png", "x.png"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string((*calls)[0].stdin), "data:image/png;base64,") {
		t.Error("pbcopy should receive a data URI")
	}
}

func TestClipboardSharerErrors(t *testing.T) {
	s, _ := newFakeClipboard("linux", nil, nil)
	err := s.Share(context.Background(), []byte("x"), "image/png", "x.png")
	var clipErr *ClipboardError
	if !stderrors.As(err, &clipErr) || !strings.Contains(clipErr.Message, "xclip") {
		t.Errorf("missing utility error = %v", err)
	}

	s, _ = newFakeClipboard("linux", map[string]bool{"xclip": true}, map[string]bool{"xclip": true})
	err = s.Share(context.Background(), []byte("x"), "image/png", "x.png")
	if err == nil || stderrors.As(err, &clipErr) {
		t.Errorf("failed utility error = %v", err)
	}

	s, _ = newFakeClipboard("plan9", nil, nil)
	if err := s.Share(context.Background(), []byte("x"), "image/png", "x.png"); !stderrors.As(err, &clipErr) {
		t.Errorf("unsupported OS error = %v", err)
	}
}

func TestClipboardFallbackThroughExporter(t *testing.T) {
	s, _ := newFakeClipboard("linux", nil, nil)
	e := newTestExporter(t, "png", s)
	res, err := e.Share(context.Background(), createTestImage(8, 8), "strip")
	if err != nil || res.Shared || res.Path == "" {
		t.Errorf("Share() = %+v, %v", res, err)
	}
}
