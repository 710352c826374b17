// Package ui renders the capture sequence to a terminal: the countdown
// digits, the shot counter and a flash banner.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("205")
	colorMuted   = lipgloss.Color("244")
	colorFlash   = lipgloss.Color("231")
	colorSuccess = lipgloss.Color("10")
	colorError   = lipgloss.Color("9")
)

var (
	countdownStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 3)

	indicatorStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	flashStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(colorFlash).
			Padding(0, 2)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

// Terminal implements the capture display by printing to w
type Terminal struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time

	countdown  int
	shot       int
	total      int
	flashUntil time.Time
}

// NewTerminal creates a display writing to w
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, now: time.Now}
}

// ShowCountdown prints the seconds remaining before the next shot
func (t *Terminal) ShowCountdown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.countdown = n
	t.println(countdownStyle.Render(fmt.Sprintf("%d", n)))
}

// HideCountdown clears the countdown
func (t *Terminal) HideCountdown() {
	t.mu.Lock()
	t.countdown = 0
	t.mu.Unlock()
}

// ShowShotIndicator prints "shot/total" with a dot per shot
func (t *Terminal) ShowShotIndicator(shot, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shot, t.total = shot, total
	t.println(indicatorStyle.Render(ShotDots(shot, total) + fmt.Sprintf("  %d/%d", shot, total)))
}

// HideShotIndicator clears the shot counter
func (t *Terminal) HideShotIndicator() {
	t.mu.Lock()
	t.shot, t.total = 0, 0
	t.mu.Unlock()
}

// Flash prints the flash banner. Flashing reports true until d elapses.
func (t *Terminal) Flash(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flashUntil = t.now().Add(d)
	t.println(flashStyle.Render("* SNAP *"))
}

// Flashing reports whether a flash is still fading
func (t *Terminal) Flashing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Before(t.flashUntil)
}

// Countdown returns the visible countdown value, 0 when hidden
func (t *Terminal) Countdown() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countdown
}

// Shot returns the visible shot indicator, zeros when hidden
func (t *Terminal) Shot() (shot, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shot, t.total
}

// Success prints a confirmation line
func (t *Terminal) Success(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line
func (t *Terminal) Error(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(errorStyle.Render(fmt.Sprintf(format, args...)))
}

func (t *Terminal) println(s string) {
	fmt.Fprintln(t.w, s)
}

// ShotDots renders filled dots for taken shots and hollow ones for the rest
func ShotDots(shot, total int) string {
	if total <= 0 {
		return ""
	}
	if shot > total {
		shot = total
	}
	if shot < 0 {
		shot = 0
	}
	return strings.Repeat("●", shot) + strings.Repeat("○", total-shot)
}

// Bell plays the shutter by ringing the terminal bell
type Bell struct {
	W io.Writer
}

func (b Bell) Play() {
	if b.W != nil {
		fmt.Fprint(b.W, "\a")
	}
}
