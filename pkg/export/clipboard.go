package export

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/menta2k/photobooth/pkg/processing"
)

// ClipboardError reports that no clipboard utility is installed
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a ClipboardError with installation hints
func NewClipboardError(goos string) *ClipboardError {
	var msg string
	switch goos {
	case "linux":
		msg = "no clipboard utility found. Install one of:\n" +
			"  • X11: xclip\n" +
			"  • Wayland: wl-clipboard"
	case "darwin":
		msg = "pbcopy not available"
	default:
		msg = fmt.Sprintf("clipboard not supported on %s", goos)
	}
	return &ClipboardError{OS: goos, Message: msg}
}

// ClipboardCommand is one clipboard utility. Tools that accept a MIME type
// receive raw image bytes; the others receive a data: URI as text.
type ClipboardCommand struct {
	Name     string
	Args     func(mime string) []string
	TextOnly bool
}

// ClipboardSharer copies the image to the system clipboard
type ClipboardSharer struct {
	GOOS     string
	Commands map[string][]ClipboardCommand
	lookPath func(name string) (string, error)
	run      func(ctx context.Context, name string, args []string, stdin []byte) error
}

// NewClipboardSharer creates a sharer for the current platform
func NewClipboardSharer() *ClipboardSharer {
	return &ClipboardSharer{
		GOOS:     runtime.GOOS,
		Commands: DefaultClipboardCommands(),
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// DefaultClipboardCommands lists the utilities tried per platform, in order
func DefaultClipboardCommands() map[string][]ClipboardCommand {
	return map[string][]ClipboardCommand{
		"linux": {
			{Name: "xclip", Args: func(mime string) []string { return []string{"-selection", "clipboard", "-t", mime, "-i"} }},
			{Name: "wl-copy", Args: func(mime string) []string { return []string{"--type", mime} }},
		},
		"darwin": {
			{Name: "pbcopy", Args: func(string) []string { return nil }, TextOnly: true},
		},
	}
}

// Share tries each available utility and returns the last failure
func (s *ClipboardSharer) Share(ctx context.Context, data []byte, mime, name string) error {
	var lastErr error
	found := false

	for _, c := range s.Commands[s.GOOS] {
		if _, err := s.lookPath(c.Name); err != nil {
			continue
		}
		found = true

		payload := data
		if c.TextOnly {
			payload = []byte(processing.EncodeDataURI(data, mime))
		}
		if err := s.run(ctx, c.Name, c.Args(mime), payload); err != nil {
			lastErr = fmt.Errorf("%s failed: %w", c.Name, err)
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("clipboard utilities available but failed: %w", lastErr)
	}
	if !found {
		return NewClipboardError(s.GOOS)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args []string, stdin []byte) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	return cmd.Run()
}
