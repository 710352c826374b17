package store

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// ErrQuota is returned by a KV backend when a write would exceed its quota
var ErrQuota = stderrors.New("storage quota exceeded")

// KV is the key-value persistence primitive the store writes through
type KV interface {
	// Get returns nil, nil when the key is absent
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// MemoryKV is an in-process KV with an optional byte quota over all values
type MemoryKV struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
}

// NewMemoryKV creates an in-memory KV. A quota of 0 means unlimited.
func NewMemoryKV(quota int) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), quota: quota}
}

// Get returns a copy of the stored value
func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set stores value, failing with ErrQuota when the total would exceed the quota
func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		total := len(value)
		for k, v := range m.data {
			if k != key {
				total += len(v)
			}
		}
		if total > m.quota {
			return fmt.Errorf("%w: %d bytes over %d byte limit", ErrQuota, total, m.quota)
		}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key; deleting an absent key is not an error
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileKV stores one file per key under a directory. Writes go to a
// temporary file first and are renamed into place.
type FileKV struct {
	dir   string
	quota int64
}

// NewFileKV creates a file-backed KV rooted at dir. A quota of 0 means
// unlimited; otherwise it bounds the size of a single value.
func NewFileKV(dir string, quota int64) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileKV{dir: dir, quota: quota}, nil
}

func (f *FileKV) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Get reads the value stored for key
func (f *FileKV) Get(key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set atomically replaces the value stored for key
func (f *FileKV) Set(key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if f.quota > 0 && int64(len(value)) > f.quota {
		return fmt.Errorf("%w: %d bytes over %d byte limit", ErrQuota, len(value), f.quota)
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key
func (f *FileKV) Delete(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
