package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/processing"
	"github.com/menta2k/photobooth/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	return img
}

var frameURI = func() string {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(108, 192)); err != nil {
		panic(err)
	}
	return processing.EncodeDataURI(buf.Bytes(), "image/png")
}()

func validRecord() *Record {
	return &Record{
		Name:           "Wedding",
		Shots:          2,
		FrameImageData: frameURI,
		FrameWidth:     1080,
		FrameHeight:    1920,
		PhotoSlots: []types.Rect{
			{X: 130, Y: 310, Width: 830, Height: 525},
			{X: 133, Y: 970, Width: 830, Height: 525},
		},
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, kv KV) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := New(kv, Options{DefaultIDs: []string{"classic", "filmstrip"}, Now: clock.Now})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, clock
}

func TestSaveGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))

	saved, err := s.Save(validRecord())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() || !saved.IsCustom {
		t.Errorf("Save() did not stamp id/timestamps/isCustom: %+v", saved)
	}

	got, err := s.GetByID(saved.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	want := validRecord()
	if got.Name != want.Name || got.Shots != want.Shots || got.FrameWidth != want.FrameWidth ||
		got.FrameHeight != want.FrameHeight || got.FrameImageData != want.FrameImageData {
		t.Errorf("round trip mismatch: %+v", got)
	}
	for i := range want.PhotoSlots {
		if got.PhotoSlots[i] != want.PhotoSlots[i] {
			t.Errorf("slot %d = %+v, want %+v", i, got.PhotoSlots[i], want.PhotoSlots[i])
		}
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))
	saved, err := s.Save(validRecord())
	if err != nil {
		t.Fatal(err)
	}

	edit := saved.clone()
	edit.Name = "Renamed"
	edit.CreatedAt = time.Time{}
	updated, err := s.Update(saved.ID, edit)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.GetByID(saved.ID)
	if got.Name != "Renamed" {
		t.Errorf("Name = %q", got.Name)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", saved.CreatedAt, got.CreatedAt)
	}
	if !updated.UpdatedAt.After(saved.UpdatedAt) {
		t.Error("UpdatedAt not advanced")
	}
}

func TestDefaultImmutability(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))

	inputs := []*Record{validRecord(), {}, {Name: strings.Repeat("x", 200)}}
	for _, id := range []string{"classic", "filmstrip"} {
		for _, rec := range inputs {
			if _, err := s.Update(id, rec); !errors.IsImmutable(err) {
				t.Errorf("Update(%s) error = %v, want immutable", id, err)
			}
		}
		if err := s.Remove(id); !errors.IsImmutable(err) {
			t.Errorf("Remove(%s) error = %v, want immutable", id, err)
		}
		rec := validRecord()
		rec.ID = id
		if _, err := s.Save(rec); !errors.IsImmutable(err) {
			t.Errorf("Save(%s) error = %v, want immutable", id, err)
		}
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))
	if _, err := s.GetByID("nope"); !errors.IsNotFound(err) {
		t.Errorf("GetByID error = %v", err)
	}
	if _, err := s.Update("nope", validRecord()); !errors.IsNotFound(err) {
		t.Errorf("Update error = %v", err)
	}
	if err := s.Remove("nope"); !errors.IsNotFound(err) {
		t.Errorf("Remove error = %v", err)
	}
}

func TestSaveRejectsExistingID(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))
	saved, _ := s.Save(validRecord())
	dup := validRecord()
	dup.ID = saved.ID
	if _, err := s.Save(dup); !errors.IsValidation(err) {
		t.Errorf("Save(existing id) error = %v, want validation", err)
	}
}

func TestCapacity(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))
	for i := 0; i < DefaultMaxTemplates; i++ {
		rec := validRecord()
		rec.Name = fmt.Sprintf("T%d", i)
		if _, err := s.Save(rec); err != nil {
			t.Fatalf("Save #%d error = %v", i, err)
		}
	}

	before := s.GetAll()
	_, err := s.Save(validRecord())
	if !errors.IsCapacity(err) || !errors.HasCode(err, errors.ErrCodeTemplateLimit) {
		t.Fatalf("21st Save error = %v, want template limit", err)
	}
	after := s.GetAll()
	if len(after) != DefaultMaxTemplates {
		t.Fatalf("store has %d templates after rejected save", len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Name != after[i].Name {
			t.Errorf("template %d changed after rejected save", i)
		}
	}
}

func TestQuotaIsCapacityNotValidation(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(len(frameURI)+100))

	_, err := s.Save(validRecord())
	if !errors.HasCode(err, errors.ErrCodeQuotaExceeded) {
		t.Fatalf("Save error = %v, want quota exceeded", err)
	}
	if errors.IsValidation(err) {
		t.Error("quota error must not be a validation error")
	}
	if len(s.GetAll()) != 0 {
		t.Error("rejected write was committed to memory")
	}
}

func TestValidateFields(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))
	tests := []struct {
		name   string
		mutate func(*Record)
		field  string
		code   errors.ErrorCode
	}{
		{"empty name", func(r *Record) { r.Name = "" }, "name", errors.ErrCodeValidation},
		{"bad shots", func(r *Record) { r.Shots = 7 }, "shots", errors.ErrCodeValidation},
		{"slot count", func(r *Record) { r.PhotoSlots = r.PhotoSlots[:1] }, "photoSlots", errors.ErrCodeValidation},
		{"slot bounds", func(r *Record) { r.PhotoSlots[1].Y = 1500 }, "photoSlots[1]", errors.ErrCodeValidation},
		{"slot min size", func(r *Record) { r.PhotoSlots[0].Width = 10 }, "photoSlots[0]", errors.ErrCodeValidation},
		{"missing frame", func(r *Record) { r.FrameImageData = "" }, "frameImageData", errors.ErrCodeValidation},
		{"not data uri", func(r *Record) { r.FrameImageData = "frame.png" }, "frameImageData", errors.ErrCodeInvalidFormat},
		{"gif frame", func(r *Record) {
			r.FrameImageData = processing.EncodeDataURI([]byte("GIF89a"), "image/gif")
		}, "frameImageData", errors.ErrCodeInvalidFormat},
		{"undecodable frame", func(r *Record) {
			r.FrameImageData = processing.EncodeDataURI([]byte("garbage"), "image/png")
		}, "frameImageData", errors.ErrCodeInvalidFormat},
		{"default flag", func(r *Record) { r.IsDefault = true }, "isDefault", errors.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			err := s.Validate(rec)
			appErr, ok := errors.GetAppError(err)
			if !ok {
				t.Fatalf("Validate() = %v, want AppError", err)
			}
			if appErr.Field != tt.field || appErr.Code != tt.code {
				t.Errorf("got field=%q code=%s, want field=%q code=%s", appErr.Field, appErr.Code, tt.field, tt.code)
			}
		})
	}
}

func TestFrameSizeLimit(t *testing.T) {
	clock := &fakeClock{}
	s, err := New(NewMemoryKV(0), Options{MaxFrameBytes: 64, Now: clock.Now})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(validRecord()); !errors.HasCode(err, errors.ErrCodeTooLarge) {
		t.Errorf("Validate() = %v, want too large", err)
	}
}

func TestImportExport(t *testing.T) {
	src, _ := newTestStore(t, NewMemoryKV(0))
	for i := 0; i < 3; i++ {
		rec := validRecord()
		rec.Name = fmt.Sprintf("T%d", i)
		if _, err := src.Save(rec); err != nil {
			t.Fatal(err)
		}
	}
	data, err := src.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst, _ := newTestStore(t, NewMemoryKV(0))
	imported, err := dst.Import(data)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(imported) != 3 || len(dst.GetAll()) != 3 {
		t.Fatalf("imported %d templates", len(imported))
	}
	for i, r := range dst.GetAll() {
		if r.Name != fmt.Sprintf("T%d", i) {
			t.Errorf("order/name mismatch at %d: %q", i, r.Name)
		}
	}
}

func TestImportRejectsWholeBatch(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))

	bad := validRecord()
	bad.Shots = 9
	data, _ := json.Marshal([]*Record{validRecord(), bad})
	if _, err := s.Import(data); !errors.IsValidation(err) {
		t.Errorf("Import() error = %v, want validation", err)
	}
	if len(s.GetAll()) != 0 {
		t.Error("partial import committed")
	}

	many := make([]*Record, DefaultMaxTemplates+1)
	for i := range many {
		many[i] = validRecord()
	}
	data, _ = json.Marshal(many)
	if _, err := s.Import(data); !errors.IsCapacity(err) {
		t.Errorf("Import() error = %v, want capacity", err)
	}

	if _, err := s.Import([]byte("{not json")); !errors.IsValidation(err) {
		t.Errorf("Import(garbage) error = %v", err)
	}
}

func TestFileKVPersistsAcrossStores(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newTestStore(t, kv)
	saved, err := s.Save(validRecord())
	if err != nil {
		t.Fatal(err)
	}

	kv2, _ := NewFileKV(dir, 0)
	reopened, _ := newTestStore(t, kv2)
	got, err := reopened.GetByID(saved.ID)
	if err != nil {
		t.Fatalf("GetByID after reopen: %v", err)
	}
	if got.Name != saved.Name || !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("reopened record = %+v", got)
	}
}

func TestFileKVQuotaAndKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set("small", []byte("ok")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set("big", bytes.Repeat([]byte("x"), 11)); err == nil {
		t.Error("expected quota error")
	}
	if err := kv.Set("../escape", []byte("x")); err == nil {
		t.Error("expected invalid key error")
	}
	if v, err := kv.Get("missing"); err != nil || v != nil {
		t.Errorf("Get(missing) = %v, %v", v, err)
	}
	if err := kv.Delete("small"); err != nil {
		t.Fatal(err)
	}
	if v, _ := kv.Get("small"); v != nil {
		t.Error("value survived Delete")
	}
}

func TestRecordTemplateConversion(t *testing.T) {
	rec := validRecord()
	tpl := rec.Template()
	if tpl.FrameRef() != frameURI {
		t.Error("frame ref not carried into template")
	}
	back := FromTemplate(tpl)
	if back.FrameImageData != rec.FrameImageData || len(back.PhotoSlots) != 2 {
		t.Errorf("FromTemplate() = %+v", back)
	}
}

func TestNilRecord(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV(0))
	saved, err := s.Save(validRecord())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Save(nil); !errors.IsValidation(err) {
		t.Errorf("Save(nil) error = %v, want validation", err)
	}
	if _, err := s.Update(saved.ID, nil); !errors.IsValidation(err) {
		t.Errorf("Update(nil) error = %v, want validation", err)
	}
	if len(s.GetAll()) != 1 {
		t.Error("nil records changed the store")
	}
}

func TestReleaseFrames(t *testing.T) {
	var released []string
	s, err := New(NewMemoryKV(0), Options{Release: func(ref string) { released = append(released, ref) }})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(216, 384)); err != nil {
		t.Fatal(err)
	}
	otherURI := processing.EncodeDataURI(buf.Bytes(), "image/png")

	a, err := s.Save(validRecord())
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Save(validRecord())
	if err != nil {
		t.Fatal(err)
	}

	// renaming keeps the frame
	edit := a.clone()
	edit.Name = "Renamed"
	if _, err := s.Update(a.ID, edit); err != nil {
		t.Fatal(err)
	}
	if len(released) != 0 {
		t.Fatalf("released = %d refs after rename", len(released))
	}

	// b still uses the old frame
	edit.FrameImageData = otherURI
	if _, err := s.Update(a.ID, edit); err != nil {
		t.Fatal(err)
	}
	if len(released) != 0 {
		t.Fatal("shared frame released while still in use")
	}

	if err := s.Remove(b.ID); err != nil {
		t.Fatal(err)
	}
	if len(released) != 1 || released[0] != frameURI {
		t.Fatalf("after removing the last user of the frame, released %d refs", len(released))
	}

	if err := s.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if len(released) != 2 || released[1] != otherURI {
		t.Errorf("replacement frame not released on remove, released %d refs", len(released))
	}

	if err := s.Remove(a.ID); !errors.IsNotFound(err) {
		t.Errorf("second Remove() error = %v", err)
	}
	if len(released) != 2 {
		t.Error("failed remove released a frame")
	}
}
