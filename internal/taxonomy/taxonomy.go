// Package taxonomy holds the two-level category tree expenses are filed under.
package taxonomy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gastos/internal/core"
)

// ErrInvalidName is returned for empty or whitespace-only category names.
var ErrInvalidName = errors.New("invalid category name")

// Node is one top-level category and its ordered subcategories.
type Node struct {
	Name          string   `yaml:"name" json:"name"`
	Subcategories []string `yaml:"subcategories,omitempty" json:"subcategories"`
	Custom        bool     `yaml:"-" json:"custom"`
}

// Taxonomy is safe for concurrent use. Seeded categories come first in seed
// order, custom ones follow in registration order.
type Taxonomy struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]*Node
}

// New builds a taxonomy from seed nodes. Duplicate names keep the first occurrence.
func New(seed []Node) *Taxonomy {
	t := &Taxonomy{nodes: make(map[string]*Node, len(seed))}
	for _, n := range seed {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			continue
		}
		if _, ok := t.nodes[name]; ok {
			continue
		}
		subs := make([]string, 0, len(n.Subcategories))
		for _, s := range n.Subcategories {
			if s = strings.TrimSpace(s); s != "" && !slices.Contains(subs, s) {
				subs = append(subs, s)
			}
		}
		t.nodes[name] = &Node{Name: name, Subcategories: subs, Custom: n.Custom}
		t.order = append(t.order, name)
	}
	return t
}

// ListTopLevel returns category names in display order.
func (t *Taxonomy) ListTopLevel() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}

// ListSubcategories returns a copy of the subcategories of category. It is
// empty for flat, custom and unknown categories.
func (t *Taxonomy) ListSubcategories(category string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[strings.TrimSpace(category)]
	if !ok {
		return []string{}
	}
	return append([]string{}, n.Subcategories...)
}

// Has reports whether category exists.
func (t *Taxonomy) Has(category string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.nodes[strings.TrimSpace(category)]
	return ok
}

// CheckName trims name and reports whether it can be registered as a custom
// category.
func CheckName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &core.ValidationError{Field: "category", Message: "category name is required", Err: ErrInvalidName}
	}
	if strings.Contains(name, core.LabelSeparator) {
		return "", &core.ValidationError{Field: "category", Message: fmt.Sprintf("category name cannot contain %q", core.LabelSeparator), Err: ErrInvalidName}
	}
	return name, nil
}

// RegisterCustom appends a flat custom category. Registering an existing name
// is a no-op.
func (t *Taxonomy) RegisterCustom(name string) error {
	name, err := CheckName(name)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[name]; ok {
		return nil
	}
	t.nodes[name] = &Node{Name: name, Subcategories: []string{}, Custom: true}
	t.order = append(t.order, name)
	return nil
}

// Validate checks that the pair names a known category. The subcategory is
// optional; when given it must belong to the category, so flat categories
// reject any.
func (t *Taxonomy) Validate(category, subcategory string) error {
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	if category == "" {
		return &core.ValidationError{Field: "category", Message: "category is required", Err: core.ErrEmptyCategory}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[category]
	if !ok {
		return &core.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	if subcategory == "" {
		return nil
	}
	if len(n.Subcategories) == 0 {
		return &core.ValidationError{Field: "subcategory", Message: fmt.Sprintf("category %q has no subcategories", category)}
	}
	if !slices.Contains(n.Subcategories, subcategory) {
		return &core.ValidationError{Field: "subcategory", Message: fmt.Sprintf("unknown subcategory %q for %q", subcategory, category)}
	}
	return nil
}

// Snapshot returns a deep copy of the tree in display order.
func (t *Taxonomy) Snapshot() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Node, 0, len(t.order))
	for _, name := range t.order {
		n := t.nodes[name]
		out = append(out, Node{Name: n.Name, Subcategories: append([]string{}, n.Subcategories...), Custom: n.Custom})
	}
	return out
}

// Clone returns an independent copy, custom categories included.
func (t *Taxonomy) Clone() *Taxonomy {
	return New(t.Snapshot())
}
