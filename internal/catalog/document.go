// Package catalog holds the parsed form of one catalog document: an ordered
// entry sequence plus a per-kind index.
package catalog

import (
	"iter"
	"slices"

	"github.com/jacoelho/xmlcatalog/internal/entry"
)

// Document is an ordered, type-indexed collection of entries.
// Documents are built by a single loader and are read-only afterwards.
type Document struct {
	uri     string
	entries []entry.Entry
	byKind  [entry.KindCount][]entry.Entry
}

// New returns an empty document for uri.
func New(uri string) *Document {
	return &Document{uri: uri}
}

// URI returns the absolute URI the document was loaded from.
func (d *Document) URI() string {
	if d == nil {
		return ""
	}
	return d.uri
}

// Add appends e in document order.
func (d *Document) Add(e entry.Entry) {
	if e == nil {
		return
	}
	d.entries = append(d.entries, e)
	k := e.Kind()
	if int(k) < len(d.byKind) {
		d.byKind[k] = append(d.byKind[k], e)
	}
}

// Len returns the number of entries.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of all entries in document order.
func (d *Document) Entries() []entry.Entry {
	if d == nil {
		return nil
	}
	return slices.Clone(d.entries)
}

// Of returns the entries of the given kind in document order. The returned
// slice must not be modified.
func (d *Document) Of(kind entry.Kind) []entry.Entry {
	if d == nil || int(kind) >= len(d.byKind) {
		return nil
	}
	return d.byKind[kind]
}

// All yields the entries of the given kinds, each kind in document order.
func (d *Document) All(kinds ...entry.Kind) iter.Seq[entry.Entry] {
	return func(yield func(entry.Entry) bool) {
		for _, k := range kinds {
			for _, e := range d.Of(k) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Typed yields the entries of kind that have concrete type T.
func Typed[T entry.Entry](d *Document, kind entry.Kind) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range d.Of(kind) {
			t, ok := e.(T)
			if !ok {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}
