// Package registry is the template catalog: built-in templates, frame-art
// templates from the catalog file and custom templates from the store.
package registry

import (
	"context"
	"fmt"
	"image"
	"log"
	"sort"
	"sync"

	"github.com/nfnt/resize"
	"github.com/sahilm/fuzzy"

	"github.com/menta2k/photobooth/pkg/errors"
	"github.com/menta2k/photobooth/pkg/store"
	"github.com/menta2k/photobooth/pkg/template"
)

// CustomSource lists persisted custom templates
type CustomSource interface {
	GetAll() []*store.Record
}

// AssetLoader resolves frame art and sticker references
type AssetLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Previewer renders a template with placeholder photos
type Previewer interface {
	Preview(ctx context.Context, tpl *template.Template) (image.Image, error)
}

// Registry serves every template known to the booth
type Registry struct {
	mu             sync.RWMutex
	builtins       []*template.Template
	catalog        []*template.Template
	stickers       map[string]string
	decorationSets map[string][]template.Decoration

	customs   CustomSource
	loader    AssetLoader
	previewer Previewer
}

// New creates a registry holding the built-in templates. customs, loader
// and previewer may be nil.
func New(customs CustomSource, loader AssetLoader, previewer Previewer) *Registry {
	return &Registry{
		builtins:       template.Defaults(),
		stickers:       make(map[string]string),
		decorationSets: make(map[string][]template.Decoration),
		customs:        customs,
		loader:         loader,
		previewer:      previewer,
	}
}

// LoadCatalog reads the catalog file. A missing file leaves the registry
// with built-ins only; invalid frames are skipped with a warning.
func (r *Registry) LoadCatalog(path string) error {
	c, err := ReadCatalog(path)
	if err != nil {
		return err
	}
	if c == nil {
		log.Printf("[Registry] No catalog at %s, using built-in templates only", path)
		return nil
	}
	r.ApplyCatalog(c)
	return nil
}

// ApplyCatalog replaces catalog-derived templates, stickers and decoration sets
func (r *Registry) ApplyCatalog(c *Catalog) {
	stickers := make(map[string]string, len(c.Stickers))
	for _, s := range c.Stickers {
		stickers[s.ID] = s.File
	}

	sets := make(map[string][]template.Decoration, len(c.DecorationSets))
	for _, set := range c.DecorationSets {
		items := make([]template.Decoration, 0, len(set.Items))
		for i, d := range set.Items {
			if err := d.Validate(); err != nil {
				log.Printf("[Registry] Skipping decoration %d in set %q: %v", i, set.Name, err)
				continue
			}
			if file, ok := stickers[d.Sticker]; ok {
				d.Sticker = file
			}
			items = append(items, d)
		}
		sets[set.Name] = items
	}

	builtinIDs := make(map[string]bool, len(r.builtins))
	for _, b := range r.builtins {
		builtinIDs[b.ID] = true
	}

	var frames []*template.Template
	seen := make(map[string]bool)
	for _, f := range c.Frames {
		if builtinIDs[f.ID] || seen[f.ID] {
			log.Printf("[Registry] Skipping catalog frame %q: duplicate id", f.ID)
			continue
		}
		t := &template.Template{
			ID:          f.ID,
			Name:        f.Name,
			Shots:       len(f.Slots),
			FrameWidth:  f.Width,
			FrameHeight: f.Height,
			PhotoSlots:  f.Slots,
			Style:       template.CustomFrame{FrameRef: f.File},
			IsDefault:   true,
		}
		if f.DecorationSet != "" {
			t.Decorations = append([]template.Decoration(nil), sets[f.DecorationSet]...)
		}
		if err := t.Validate(); err != nil {
			log.Printf("[Registry] Skipping catalog frame %q: %v", f.ID, err)
			continue
		}
		seen[f.ID] = true
		frames = append(frames, t)
	}

	r.mu.Lock()
	r.stickers = stickers
	r.decorationSets = sets
	r.catalog = frames
	r.mu.Unlock()
	log.Printf("[Registry] Loaded catalog: %d frames, %d stickers, %d decoration sets",
		len(frames), len(stickers), len(sets))
}

// All returns built-ins, catalog frames and custom templates, in that order
func (r *Registry) All() []*template.Template {
	r.mu.RLock()
	out := make([]*template.Template, 0, len(r.builtins)+len(r.catalog))
	for _, t := range r.builtins {
		out = append(out, t.Clone())
	}
	for _, t := range r.catalog {
		out = append(out, t.Clone())
	}
	r.mu.RUnlock()

	if r.customs != nil {
		for _, rec := range r.customs.GetAll() {
			out = append(out, rec.Template())
		}
	}
	return out
}

// Get returns a copy of the template with the given id
func (r *Registry) Get(id string) (*template.Template, error) {
	for _, t := range r.All() {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errors.NotFound(id)
}

// Search fuzzy-matches query against template names and ids. An empty
// query returns every template.
func (r *Registry) Search(query string) []*template.Template {
	all := r.All()
	if query == "" {
		return all
	}

	searchStrings := make([]string, len(all))
	for i, t := range all {
		searchStrings[i] = fmt.Sprintf("%s %s", t.Name, t.ID)
	}

	matches := fuzzy.Find(query, searchStrings)
	results := make([]*template.Template, 0, len(matches))
	for _, match := range matches {
		results = append(results, all[match.Index])
	}
	return results
}

// DefaultIDs returns the ids of every immutable template
func (r *Registry) DefaultIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.builtins)+len(r.catalog))
	for _, t := range r.builtins {
		ids = append(ids, t.ID)
	}
	for _, t := range r.catalog {
		ids = append(ids, t.ID)
	}
	return ids
}

// DecorationSet returns a copy of a named decoration set
func (r *Registry) DecorationSet(name string) ([]template.Decoration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.decorationSets[name]
	if !ok {
		return nil, false
	}
	return append([]template.Decoration(nil), set...), true
}

// DecorationSetNames lists the catalog's decoration sets in name order
func (r *Registry) DecorationSetNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decorationSets))
	for name := range r.decorationSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sticker returns the asset reference for a sticker id
func (r *Registry) Sticker(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.stickers[id]
	return ref, ok
}

// Thumbnail renders a template preview bounded by maxDim on both edges
func (r *Registry) Thumbnail(ctx context.Context, id string, maxDim uint) (image.Image, error) {
	t, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch {
	case r.previewer != nil:
		img, err = r.previewer.Preview(ctx, t)
	case t.FrameRef() != "" && r.loader != nil:
		img, err = r.loader.Load(ctx, t.FrameRef())
	default:
		return nil, fmt.Errorf("no preview source for template %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render thumbnail for %s: %w", id, err)
	}
	return resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3), nil
}
