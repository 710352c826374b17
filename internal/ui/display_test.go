package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/menta2k/photobooth/pkg/capture"
)

var (
	_ capture.Display = (*Terminal)(nil)
	_ capture.Shutter = Bell{}
)

func TestShotDots(t *testing.T) {
	tests := []struct {
		shot, total int
		want        string
	}{
		{0, 3, "○○○"},
		{2, 4, "●●○○"},
		{4, 4, "●●●●"},
		{5, 2, "●●"},
		{-1, 1, "○"},
		{1, 0, ""},
	}
	for _, tt := range tests {
		if got := ShotDots(tt.shot, tt.total); got != tt.want {
			t.Errorf("ShotDots(%d, %d) = %q, want %q", tt.shot, tt.total, got, tt.want)
		}
	}
}

func TestTerminalState(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	term.now = func() time.Time { return now }

	term.ShowCountdown(3)
	if term.Countdown() != 3 || !strings.Contains(buf.String(), "3") {
		t.Errorf("countdown = %d output = %q", term.Countdown(), buf.String())
	}
	term.HideCountdown()
	if term.Countdown() != 0 {
		t.Error("HideCountdown() did not clear")
	}

	term.ShowShotIndicator(2, 4)
	if s, n := term.Shot(); s != 2 || n != 4 {
		t.Errorf("Shot() = %d/%d", s, n)
	}
	if !strings.Contains(buf.String(), "2/4") {
		t.Errorf("indicator missing from output: %q", buf.String())
	}
	term.HideShotIndicator()
	if s, n := term.Shot(); s != 0 || n != 0 {
		t.Error("HideShotIndicator() did not clear")
	}

	term.Flash(300 * time.Millisecond)
	if !term.Flashing() {
		t.Error("expected flash to be active")
	}
	now = now.Add(time.Second)
	if term.Flashing() {
		t.Error("flash should have faded")
	}
}

func TestTerminalMessages(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Success("saved %s", "strip.png")
	term.Error("camera %s", "busy")
	out := buf.String()
	if !strings.Contains(out, "saved strip.png") || !strings.Contains(out, "camera busy") {
		t.Errorf("output = %q", out)
	}
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	Bell{W: &buf}.Play()
	if buf.String() != "\a" {
		t.Errorf("bell wrote %q", buf.String())
	}
	Bell{}.Play()
}
