// Package manager owns the catalog search path, memoizes parsed catalog
// documents and exposes one lookup per identifier kind.
package manager

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/jacoelho/xmlcatalog/internal/catalog"
	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/loader"
	"github.com/jacoelho/xmlcatalog/internal/metrics"
	"github.com/jacoelho/xmlcatalog/internal/query"
)

// Opener reads catalog documents.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// CacheCatalog is a catalog whose entries are maintained by the resource
// cache. It is consulted after every configured catalog and is never memoized.
type CacheCatalog interface {
	CatalogURI() string
	Catalog() *catalog.Document
	query.Acceptor
}

// Config holds configuration for the catalog manager.
type Config struct {
	Opener  Opener
	Cache   CacheCatalog
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Catalogs is the ordered search path of absolute catalog URIs.
	Catalogs     []string
	Policy       query.Policy
	PreferPublic bool
}

// Manager resolves identifiers against its catalog search path.
type Manager struct {
	opener   Opener
	cache    CacheCatalog
	logger   *slog.Logger
	metrics  *metrics.Metrics
	loader   *loader.Loader
	searcher *query.Searcher
	catalogs []string

	mu    sync.Mutex
	state loadState
}

// New creates a manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		opener:   cfg.Opener,
		cache:    cfg.Cache,
		logger:   logger,
		metrics:  cfg.Metrics,
		loader:   loader.NewLoader(loader.Config{Logger: logger, PreferPublic: cfg.PreferPublic}),
		catalogs: slices.Clone(cfg.Catalogs),
		state:    newLoadState(),
	}
	m.searcher = query.NewSearcher(m, query.NewMatcher(cfg.Policy, m), logger)
	return m
}

// Catalogs returns the configured search path.
func (m *Manager) Catalogs() []string {
	return slices.Clone(m.catalogs)
}

// Accept implements query.Acceptor by deferring to the cache for its own
// entries.
func (m *Manager) Accept(doc *catalog.Document, e entry.Entry) bool {
	if m.cache == nil || doc.URI() != m.cache.CatalogURI() {
		return true
	}
	return m.cache.Accept(doc, e)
}

// Search runs q over the search path followed by the cache catalog.
func (m *Manager) Search(q query.Query) (string, bool) {
	seed := m.catalogs
	if m.cache != nil {
		seed = append(slices.Clone(m.catalogs), m.cache.CatalogURI())
	}
	resolved, ok := m.searcher.Search(seed, q)
	m.metrics.Lookup(q.Kind(), ok)
	if ok {
		m.logger.Debug("resolved",
			slog.String("kind", q.Kind()),
			slog.String("uri", resolved))
	}
	return resolved, ok
}
