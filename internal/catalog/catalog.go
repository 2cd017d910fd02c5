// Package catalog supplies the read-only set of named rich types a user
// can assign to a field, and the adapter that applies an entry's defaults
// onto a field. Entries are declared in CUE and loaded at startup.
package catalog

import (
	"sort"

	"github.com/datasmith/datasmith/internal/schema"
)

// Entry is one named rich type. The catalog is trusted to supply at
// least one of ID and DisplayName.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	DefaultRule string `json:"default_rule,omitempty"`
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
}

// Catalog is an ordered, indexed set of entries.
type Catalog struct {
	entries []Entry
	byID    map[string]Entry
}

// New builds a catalog from entries, preserving their order.
func New(entries []Entry) *Catalog {
	c := &Catalog{entries: entries, byID: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.ID != "" {
			c.byID[e.ID] = e
		}
	}
	return c
}

// Entries returns all entries in declaration order.
func (c *Catalog) Entries() []Entry { return c.entries }

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// IDs returns the sorted entry ids, for error messages and completions.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply writes the entry's defaults onto a copy of the field and returns
// it. The type becomes the entry id (display name if the id is absent,
// empty if both are). The rule is always overwritten — default rule,
// else description, else empty — even if the field had a custom rule.
// The example is updated only when the entry supplies one.
func Apply(f schema.Field, e Entry) schema.Field {
	switch {
	case e.ID != "":
		f.Type = e.ID
	default:
		f.Type = e.DisplayName
	}

	switch {
	case e.DefaultRule != "":
		f.Rule = e.DefaultRule
	case e.Description != "":
		f.Rule = e.Description
	default:
		f.Rule = ""
	}

	if e.Example != "" {
		f.Example = e.Example
	}
	return f
}
