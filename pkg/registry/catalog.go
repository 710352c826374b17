package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/photobooth/pkg/template"
	"github.com/menta2k/photobooth/pkg/types"
)

// Catalog is the startup document listing frame art, stickers and
// decoration sets. JSON is accepted as well since it is valid YAML.
type Catalog struct {
	Frames         []CatalogFrame  `yaml:"frames" json:"frames"`
	Stickers       []Sticker       `yaml:"stickers" json:"stickers"`
	DecorationSets []DecorationSet `yaml:"decorationSets" json:"decorationSets"`
}

// CatalogFrame describes one frame-art template
type CatalogFrame struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name" json:"name"`
	File          string       `yaml:"file" json:"file"`
	Width         int          `yaml:"width" json:"width"`
	Height        int          `yaml:"height" json:"height"`
	Slots         []types.Rect `yaml:"slots" json:"slots"`
	DecorationSet string       `yaml:"decorationSet,omitempty" json:"decorationSet,omitempty"`
}

// Sticker is a named image asset usable in decorations
type Sticker struct {
	ID   string `yaml:"id" json:"id"`
	File string `yaml:"file" json:"file"`
}

// DecorationSet is a named group of decorations applied to a template
type DecorationSet struct {
	Name  string                `yaml:"name" json:"name"`
	Items []template.Decoration `yaml:"items" json:"items"`
}

// ParseCatalog decodes a catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// ReadCatalog loads a catalog file. A missing file yields (nil, nil).
// Relative asset paths are resolved against the catalog's directory.
func ReadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range c.Frames {
		c.Frames[i].File = resolve(base, c.Frames[i].File)
	}
	for i := range c.Stickers {
		c.Stickers[i].File = resolve(base, c.Stickers[i].File)
	}
	return c, nil
}

// Marshal encodes the catalog as YAML
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func resolve(base, file string) string {
	if file == "" || filepath.IsAbs(file) || isRemote(file) {
		return file
	}
	return filepath.Join(base, file)
}

func isRemote(ref string) bool {
	for _, prefix := range []string{"http://", "https://", "data:"} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}
