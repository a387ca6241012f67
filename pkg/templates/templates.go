// Package templates serves the regulatory reference kits. They are guidance
// only and never enforced against a user's inventory.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/seamed/tracker/pkg/inventory"
)

//go:embed data/*.yaml
var builtin embed.FS

// ErrNotFound is returned for an unknown template id
var ErrNotFound = errors.New("template not found")

// Item is one recommended supply in a template
type Item struct {
	Name                string             `yaml:"name" json:"name"`
	Category            inventory.Category `yaml:"category" json:"category"`
	RecommendedQuantity int                `yaml:"recommendedQuantity" json:"recommendedQuantity"`
	Notes               string             `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Template is a reference kit published by a maritime authority
type Template struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Source      string `yaml:"source" json:"source"`
	Description string `yaml:"description" json:"description"`
	Disclaimer  string `yaml:"disclaimer" json:"disclaimer"`
	Items       []Item `yaml:"items" json:"items"`
}

// Catalog is an immutable set of templates
type Catalog struct {
	ordered []*Template
	byID    map[string]*Template
}

// Builtin loads the templates embedded in the binary
func Builtin() (*Catalog, error) {
	sub, err := fs.Sub(builtin, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load parses every *.yaml file at the root of fsys
func Load(fsys fs.FS) (*Catalog, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	sort.Strings(names)

	c := &Catalog{byID: make(map[string]*Template)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("invalid template %s: %w", path.Base(name), err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}

		c.ordered = append(c.ordered, &t)
		c.byID[t.ID] = &t
	}
	return c, nil
}

func (t *Template) validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if len(t.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for i, item := range t.Items {
		if item.Name == "" {
			return fmt.Errorf("item %d: name is required", i)
		}
		if item.RecommendedQuantity <= 0 {
			return fmt.Errorf("item %q: recommendedQuantity must be positive", item.Name)
		}
		known := false
		for _, c := range inventory.Categories {
			if item.Category == c {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("item %q: unknown category %q", item.Name, item.Category)
		}
	}
	return nil
}

// List returns all templates ordered by file name
func (c *Catalog) List() []*Template {
	out := make([]*Template, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Get returns the template with the given id
func (c *Catalog) Get(id string) (*Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}
