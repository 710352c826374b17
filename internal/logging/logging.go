// Package logging routes the standard logger to stdout and an optional
// size-rotated file, dropping lines below the configured level.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is a coarse severity inferred from a log line
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// lineLevel infers severity from the tag after the component prefix, as in
// "[Store] WARNING: quota almost full". Untagged lines are info.
func lineLevel(line string) Level {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "ERROR"), strings.Contains(upper, "FAILED"):
		return LevelError
	case strings.Contains(upper, "WARN"):
		return LevelWarning
	case strings.Contains(upper, "DEBUG"):
		return LevelDebug
	default:
		return LevelInfo
	}
}

// FilterWriter discards lines below Min
type FilterWriter struct {
	Min  Level
	Next io.Writer
}

func (w *FilterWriter) Write(p []byte) (int, error) {
	if lineLevel(string(p)) < w.Min {
		return len(p), nil
	}
	return w.Next.Write(p)
}

// RotatingFile is an io.WriteCloser that rolls path to path.1 .. path.N
// once a write would take it past maxBytes. maxBytes <= 0 never rotates.
type RotatingFile struct {
	mu      sync.Mutex
	path    string
	max     int64
	backups int
	file    *os.File
	size    int64
}

// NewRotatingFile opens (or creates) path for appending
func NewRotatingFile(path string, maxBytes, backups int) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rf := &RotatingFile{path: path, max: int64(maxBytes), backups: backups}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.max > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.max {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *RotatingFile) rotate() error {
	rf.file.Close()
	rf.file = nil

	if rf.backups <= 0 {
		os.Remove(rf.path)
	}
	for i := rf.backups; i > 0; i-- {
		src := rf.path
		if i > 1 {
			src = fmt.Sprintf("%s.%d", rf.path, i-1)
		}
		dst := fmt.Sprintf("%s.%d", rf.path, i)
		os.Remove(dst)
		os.Rename(src, dst)
	}
	return rf.open()
}

// Close closes the current file
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// Options select log destinations
type Options struct {
	Level       string
	File        string
	MaxBytes    int
	BackupCount int
	Stdout      bool
}

// Configure points the standard logger at the configured destinations and
// returns a cleanup func that closes the log file. With no destination it
// logs to stderr.
func Configure(opts Options) (func(), error) {
	var writers []io.Writer
	cleanup := func() {}

	if opts.File != "" {
		rf, err := NewRotatingFile(opts.File, opts.MaxBytes, opts.BackupCount)
		if err != nil {
			return cleanup, err
		}
		writers = append(writers, rf)
		cleanup = func() { rf.Close() }
	}
	if opts.Stdout {
		writers = append(writers, os.Stdout)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	log.SetOutput(&FilterWriter{Min: ParseLevel(opts.Level), Next: io.MultiWriter(writers...)})
	log.SetFlags(log.Ldate | log.Ltime)
	return cleanup, nil
}
