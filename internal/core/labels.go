package core

import "strings"

// LabelSeparator joins category and subcategory in display labels.
const LabelSeparator = " - "

// legacySeparator appears in older exports ("Casa: Alquiler").
const legacySeparator = ": "

// CategoryRef is the structured form of a category label.
type CategoryRef struct {
	Category    string
	Subcategory string
}

// Label renders "Category - Subcategory", or just the category when flat.
func (r CategoryRef) Label() string {
	if r.Subcategory == "" {
		return r.Category
	}
	return r.Category + LabelSeparator + r.Subcategory
}

func (r CategoryRef) String() string {
	return r.Label()
}

// ParseLabel splits a display label on the first separator.
func ParseLabel(label string) CategoryRef {
	label = strings.TrimSpace(label)
	for _, sep := range []string{LabelSeparator, legacySeparator} {
		if cat, sub, ok := strings.Cut(label, sep); ok {
			return CategoryRef{Category: strings.TrimSpace(cat), Subcategory: strings.TrimSpace(sub)}
		}
	}
	return CategoryRef{Category: label}
}
