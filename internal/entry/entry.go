// Package entry defines the typed catalog entry model. Entries are immutable
// once constructed apart from their property bag.
package entry

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"unicode"

	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// Entry is one catalog element.
type Entry interface {
	Kind() Kind
	BaseURI() string
	ID() string
	Properties() *Properties
}

type header struct {
	baseURI string
	id      string
	props   *Properties
}

func newHeader(baseURI, id string) (header, error) {
	if !uri.IsAbsolute(baseURI) {
		return header{}, fmt.Errorf("entry base uri %q is not absolute", baseURI)
	}
	return header{baseURI: baseURI, id: id, props: &Properties{}}, nil
}

// BaseURI returns the absolute base URI in effect for the entry.
func (h *header) BaseURI() string { return h.baseURI }

// ID returns the optional id attribute.
func (h *header) ID() string { return h.id }

// Properties returns the entry's property bag.
func (h *header) Properties() *Properties { return h.props }

func (h *header) resolve(ref string) (string, error) {
	return uri.Resolve(h.baseURI, ref)
}

// Properties is a string-keyed bag of extension attributes. Keys must be
// name tokens.
type Properties struct {
	mu     sync.RWMutex
	values map[string]string
}

// Set stores value under key and reports whether key was accepted.
func (p *Properties) Set(key, value string) bool {
	if !IsNameToken(key) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[key] = value
	return true
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Delete removes key.
func (p *Properties) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
}

// Keys returns the stored keys in sorted order.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.values))
}

// Snapshot returns a copy of the bag.
func (p *Properties) Snapshot() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}

// IsNameToken reports whether s matches the XML NMTOKEN production.
func IsNameToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '.', r == '-', r == '_', r == ':':
		case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r), r == '·':
		default:
			return false
		}
	}
	return true
}
