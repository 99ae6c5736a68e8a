package manager

import (
	"context"
	"fmt"
	"log/slog"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/catalog"
)

type docLoadState int

const (
	docStateLoading docLoadState = iota + 1
	docStateLoaded
)

type docEntry struct {
	doc   *catalog.Document
	done  chan struct{}
	state docLoadState
}

type loadState struct {
	entries map[string]*docEntry
}

func newLoadState() loadState {
	return loadState{entries: make(map[string]*docEntry)}
}

// ensureEntry returns the entry for uri and whether the caller created it and
// must therefore load it.
func (s *loadState) ensureEntry(uri string) (*docEntry, bool) {
	if e, ok := s.entries[uri]; ok {
		return e, false
	}
	e := &docEntry{state: docStateLoading, done: make(chan struct{})}
	s.entries[uri] = e
	return e, true
}

// Load returns the parsed document for catalogURI, loading it on first use.
// Concurrent callers for the same URI wait for a single load. A catalog that
// cannot be read or parsed is logged and memoized as an empty document.
func (m *Manager) Load(catalogURI string) *catalog.Document {
	if m.cache != nil && catalogURI == m.cache.CatalogURI() {
		return m.cache.Catalog()
	}

	m.mu.Lock()
	e, owner := m.state.ensureEntry(catalogURI)
	m.mu.Unlock()
	if !owner {
		<-e.done
		return e.doc
	}

	doc, err := m.read(catalogURI)
	if err != nil {
		m.logger.Warn("catalog unavailable",
			slog.String("catalog", catalogURI),
			slog.String("error", err.Error()))
		doc = catalog.New(catalogURI)
	}

	m.mu.Lock()
	e.doc = doc
	e.state = docStateLoaded
	m.mu.Unlock()
	close(e.done)
	return doc
}

// Loaded reports whether catalogURI has been loaded in this session.
func (m *Manager) Loaded(catalogURI string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state.entries[catalogURI]
	return ok && e.state == docStateLoaded
}

func (m *Manager) read(catalogURI string) (doc *catalog.Document, err error) {
	if m.opener == nil {
		return nil, xcerrors.New(xcerrors.ErrCatalogUnavailable, catalogURI, "no catalog opener configured")
	}
	r, err := m.opener.Open(context.Background(), catalogURI)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrCatalogUnavailable, catalogURI, "open catalog", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close catalog %s: %w", catalogURI, closeErr)
		}
	}()
	doc, err = m.loader.Load(r, catalogURI)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrCatalogUnavailable, catalogURI, "parse catalog", err)
	}
	return doc, nil
}
