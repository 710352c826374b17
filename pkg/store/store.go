// Package store persists user-created templates over a key-value backend.
// The whole id-to-record mapping is kept under a single key as JSON.
package store

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/processing"
	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/types"
)

const (
	// DefaultKey is the KV key holding the template mapping
	DefaultKey = "templates"
	// DefaultMaxTemplates caps the number of stored custom templates
	DefaultMaxTemplates = 20
	// DefaultMaxFrameBytes caps the decoded frame artwork payload
	DefaultMaxFrameBytes = 5 << 20
)

var allowedFrameMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Record is the persisted shape of a custom template
type Record struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Shots          int          `json:"shots"`
	FrameImageData string       `json:"frameImageData"`
	FrameWidth     int          `json:"frameWidth"`
	FrameHeight    int          `json:"frameHeight"`
	PhotoSlots     []types.Rect `json:"photoSlots"`
	IsCustom       bool         `json:"isCustom"`
	IsDefault      bool         `json:"isDefault"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Template converts the record into a renderable template
func (r *Record) Template() *template.Template {
	return &template.Template{
		ID:          r.ID,
		Name:        r.Name,
		Shots:       r.Shots,
		FrameWidth:  r.FrameWidth,
		FrameHeight: r.FrameHeight,
		PhotoSlots:  append([]types.Rect(nil), r.PhotoSlots...),
		Style:       template.CustomFrame{FrameRef: r.FrameImageData},
		IsCustom:    r.IsCustom,
		IsDefault:   r.IsDefault,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r *Record) clone() *Record {
	c := *r
	c.PhotoSlots = append([]types.Rect(nil), r.PhotoSlots...)
	return &c
}

// FromTemplate builds a record from a CustomFrame template whose frame
// reference is an embedded data: URI
func FromTemplate(t *template.Template) *Record {
	return &Record{
		ID:             t.ID,
		Name:           t.Name,
		Shots:          t.Shots,
		FrameImageData: t.FrameRef(),
		FrameWidth:     t.FrameWidth,
		FrameHeight:    t.FrameHeight,
		PhotoSlots:     append([]types.Rect(nil), t.PhotoSlots...),
		IsCustom:       t.IsCustom,
		IsDefault:      t.IsDefault,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// Options configures a Store
type Options struct {
	Key           string
	MaxTemplates  int
	MaxFrameBytes int
	// DefaultIDs are the ids of built-in templates; they can never be
	// saved, updated or removed through the store
	DefaultIDs []string
	Now        func() time.Time
	// Release is called with a frame reference that no stored record uses
	// any more, after a remove or a frame-changing update
	Release func(frameRef string)
}

// Store is the CRUD layer for custom templates
type Store struct {
	mu       sync.Mutex
	kv       KV
	opts     Options
	defaults map[string]bool
	records  map[string]*Record
}

// New opens a store over kv and loads the existing mapping
func New(kv KV, opts Options) (*Store, error) {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.MaxTemplates <= 0 {
		opts.MaxTemplates = DefaultMaxTemplates
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		kv:       kv,
		opts:     opts,
		defaults: make(map[string]bool, len(opts.DefaultIDs)),
		records:  make(map[string]*Record),
	}
	for _, id := range opts.DefaultIDs {
		s.defaults[id] = true
	}

	data, err := kv.Get(opts.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.records); err != nil {
			return nil, fmt.Errorf("failed to parse stored templates: %w", err)
		}
	}
	log.Printf("[Store] Loaded %d custom templates", len(s.records))
	return s, nil
}

// MaxTemplates returns the configured capacity
func (s *Store) MaxTemplates() int {
	return s.opts.MaxTemplates
}

// GetAll returns copies of every record, oldest first
func (s *Store) GetAll() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

func (s *Store) sorted() []*Record {
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetByID returns a copy of the record with the given id
func (s *Store) GetByID(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return r.clone(), nil
}

// Save stores a new custom template. A missing id is assigned; an id that
// already exists is rejected in favour of Update.
func (s *Store) Save(rec *Record) (*Record, error) {
	if rec == nil {
		return nil, errors.Validation("record", "record is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID != "" && s.defaults[rec.ID] {
		return nil, errors.Immutable(rec.ID)
	}

	r := rec.clone()
	r.IsCustom = true
	if err := s.validate(r); err != nil {
		return nil, err
	}
	if r.ID != "" {
		if _, exists := s.records[r.ID]; exists {
			return nil, errors.Validation("id", "template %s already exists", r.ID)
		}
	}
	if len(s.records) >= s.opts.MaxTemplates {
		return nil, errors.TemplateLimit(s.opts.MaxTemplates)
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.opts.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	next := s.copyRecords()
	next[r.ID] = r
	if err := s.persist(next); err != nil {
		return nil, err
	}
	log.Printf("[Store] Saved template %s (%q)", r.ID, r.Name)
	return r.clone(), nil
}

// Update replaces a custom template, preserving its creation time
func (s *Store) Update(id string, rec *Record) (*Record, error) {
	if rec == nil {
		return nil, errors.Validation("record", "record is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaults[id] {
		return nil, errors.Immutable(id)
	}
	existing, ok := s.records[id]
	if !ok {
		return nil, errors.NotFound(id)
	}

	r := rec.clone()
	r.ID = id
	r.IsCustom = true
	if err := s.validate(r); err != nil {
		return nil, err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.opts.Now()

	next := s.copyRecords()
	next[id] = r
	if err := s.persist(next); err != nil {
		return nil, err
	}
	log.Printf("[Store] Updated template %s", id)
	if existing.FrameImageData != r.FrameImageData {
		s.release(existing.FrameImageData)
	}
	return r.clone(), nil
}

// Remove deletes a custom template
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaults[id] {
		return errors.Immutable(id)
	}
	existing, ok := s.records[id]
	if !ok {
		return errors.NotFound(id)
	}

	next := s.copyRecords()
	delete(next, id)
	if err := s.persist(next); err != nil {
		return err
	}
	log.Printf("[Store] Removed template %s", id)
	s.release(existing.FrameImageData)
	return nil
}

// release hands ref to the Release hook unless another record still
// shares the same frame. Callers hold s.mu.
func (s *Store) release(ref string) {
	if s.opts.Release == nil || ref == "" {
		return
	}
	for _, r := range s.records {
		if r.FrameImageData == ref {
			return
		}
	}
	s.opts.Release(ref)
}

// Validate checks a record against every template invariant and the
// frame payload constraints
func (s *Store) Validate(rec *Record) error {
	return s.validate(rec)
}

func (s *Store) validate(rec *Record) error {
	if rec.IsDefault {
		return errors.Validation("isDefault", "stored templates cannot be flagged default")
	}
	if err := rec.Template().Validate(); err != nil {
		return err
	}
	return s.validateFrame(rec)
}

func (s *Store) validateFrame(rec *Record) error {
	if rec.FrameImageData == "" {
		return errors.Validation("frameImageData", "frame image is required")
	}
	data, mime, err := processing.DecodeDataURI(rec.FrameImageData)
	if err != nil {
		return errors.ValidationCode(errors.ErrCodeInvalidFormat, "frameImageData", "%v", err)
	}
	if !allowedFrameMimes[mime] {
		return errors.ValidationCode(errors.ErrCodeInvalidFormat, "frameImageData",
			"unsupported frame format %q (allowed: png, jpeg, webp)", mime)
	}
	if len(data) > s.opts.MaxFrameBytes {
		return errors.ValidationCode(errors.ErrCodeTooLarge, "frameImageData",
			"frame image is %d bytes, maximum is %d", len(data), s.opts.MaxFrameBytes)
	}
	if _, _, err := processing.DecodeConfig(data); err != nil {
		return errors.ValidationCode(errors.ErrCodeInvalidFormat, "frameImageData", "frame image does not decode: %v", err)
	}
	return nil
}

// Import validates a JSON array of records and adds them all, or none.
// Every imported record receives a fresh id.
func (s *Store) Import(data []byte) ([]*Record, error) {
	var batch []*Record
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, errors.ValidationCode(errors.ErrCodeInvalidFormat, "import", "invalid template document: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records)+len(batch) > s.opts.MaxTemplates {
		return nil, errors.TemplateLimit(s.opts.MaxTemplates)
	}

	now := s.opts.Now()
	next := s.copyRecords()
	imported := make([]*Record, 0, len(batch))
	for i, rec := range batch {
		if rec == nil {
			return nil, errors.Validation(fmt.Sprintf("records[%d]", i), "record is null")
		}
		r := rec.clone()
		r.IsCustom = true
		r.IsDefault = false
		if err := s.validate(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		r.ID = uuid.NewString()
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		next[r.ID] = r
		imported = append(imported, r.clone())
	}

	if err := s.persist(next); err != nil {
		return nil, err
	}
	log.Printf("[Store] Imported %d templates", len(imported))
	return imported, nil
}

// Export serializes every record as a JSON array
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal templates: %w", err)
	}
	return data, nil
}

func (s *Store) copyRecords() map[string]*Record {
	next := make(map[string]*Record, len(s.records)+1)
	for id, r := range s.records {
		next[id] = r
	}
	return next
}

// persist writes next and commits it to memory only on success
func (s *Store) persist(next map[string]*Record) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal templates: %w", err)
	}
	if err := s.kv.Set(s.opts.Key, data); err != nil {
		if stderrors.Is(err, ErrQuota) {
			log.Printf("[Store] Write rejected: %v", err)
			return errors.QuotaExceeded(err)
		}
		return fmt.Errorf("failed to persist templates: %w", err)
	}
	s.records = next
	return nil
}
