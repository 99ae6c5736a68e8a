package xmlcatalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jacoelho/xmlcatalog/internal/cache"
	"github.com/jacoelho/xmlcatalog/internal/fetch"
	"github.com/jacoelho/xmlcatalog/internal/manager"
	"github.com/jacoelho/xmlcatalog/internal/metrics"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// ErrCacheDisabled is returned by cache maintenance methods when the
// resolver has no cache.
var ErrCacheDisabled = errors.New("resource cache is disabled")

// Resolver resolves identifiers through XML catalogs and an optional
// resource cache. It is safe for concurrent use by multiple goroutines.
type Resolver struct {
	manager *manager.Manager
	cache   *cache.Cache
	fetcher *fetch.Fetcher
	logger  *slog.Logger

	alwaysResolve bool
	parseRDDL     bool
}

// New creates a resolver.
func New(opts Options) (*Resolver, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("resolver options: %w", err)
	}
	m, err := metrics.New(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	var trusted []string
	if o.cacheEnabled {
		dirURI, err := uri.DirURI(o.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("resource cache: %w", err)
		}
		trusted = append(trusted, dirURI)
	}
	f, err := fetch.New(fetch.Config{
		Client:    o.httpClient,
		Classpath: o.classpath,
		Logger:    o.logger,
		Access:    o.access,
		UserAgent: o.userAgent,
		Trusted:   trusted,
	})
	if err != nil {
		return nil, fmt.Errorf("resolver options: %w", err)
	}

	r := &Resolver{
		fetcher:       f,
		logger:        o.logger,
		alwaysResolve: o.alwaysResolve,
		parseRDDL:     o.parseRDDL,
	}
	mcfg := manager.Config{
		Opener:       f,
		Logger:       o.logger,
		Metrics:      m,
		Catalogs:     o.catalogs,
		Policy:       o.policy,
		PreferPublic: o.preferPublic,
	}
	if o.cacheEnabled {
		c, err := cache.New(cache.Config{
			Dir:     o.cacheDir,
			Fetcher: f,
			Logger:  o.logger,
			Metrics: m,
			Offline: o.offline,
		})
		if err != nil {
			return nil, fmt.Errorf("resource cache: %w", err)
		}
		r.cache = c
		mcfg.Cache = c
	}
	r.manager = manager.New(mcfg)
	return r, nil
}

// Catalogs returns the catalog search path as absolute URIs.
func (r *Resolver) Catalogs() []string {
	return r.manager.Catalogs()
}

// LookupSystem returns the URI mapped to a system identifier.
func (r *Resolver) LookupSystem(systemID string) (string, bool) {
	return r.manager.LookupSystem(systemID)
}

// LookupPublic returns the URI mapped to an external identifier. The system
// identifier, when given, is tried first.
func (r *Resolver) LookupPublic(systemID, publicID string) (string, bool) {
	return r.manager.LookupPublic(systemID, publicID)
}

// LookupURI returns the URI mapped to a URI reference.
func (r *Resolver) LookupURI(ref string) (string, bool) {
	return r.manager.LookupURI(ref)
}

// LookupNamespaceURI returns the URI mapped to a namespace name for the
// given RDDL nature and purpose. Empty values match any entry.
func (r *Resolver) LookupNamespaceURI(ns, nature, purpose string) (string, bool) {
	return r.manager.LookupNamespaceURI(ns, nature, purpose)
}

// LookupDoctype returns the URI of a document type declaration.
func (r *Resolver) LookupDoctype(name, systemID, publicID string) (string, bool) {
	return r.manager.LookupDoctype(name, systemID, publicID)
}

// LookupEntity returns the URI of an external entity.
func (r *Resolver) LookupEntity(name, systemID, publicID string) (string, bool) {
	return r.manager.LookupEntity(name, systemID, publicID)
}

// LookupNotation returns the URI of a notation.
func (r *Resolver) LookupNotation(name, systemID, publicID string) (string, bool) {
	return r.manager.LookupNotation(name, systemID, publicID)
}

// LookupDocument returns the default document URI.
func (r *Resolver) LookupDocument() (string, bool) {
	return r.manager.LookupDocument()
}

// CacheEntry describes one cached resource.
type CacheEntry struct {
	Time        time.Time
	Kind        string
	Source      string
	LocalURI    string
	ContentType string
	Size        int64
}

// CleanupReport counts what a cache cleanup removed.
type CleanupReport = cache.CleanupReport

// CacheEntries lists the live cache entries, oldest first.
func (r *Resolver) CacheEntries() ([]CacheEntry, error) {
	if r.cache == nil {
		return nil, ErrCacheDisabled
	}
	entries, err := r.cache.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, CacheEntry{
			Time:        e.Time,
			Kind:        e.Catalog.Kind().String(),
			Source:      e.Source,
			LocalURI:    e.LocalURI,
			ContentType: e.ContentType,
			Size:        e.Size,
		})
	}
	return out, nil
}

// CleanCache removes expired descriptors past their delete wait and files
// no descriptor references.
func (r *Resolver) CleanCache(ctx context.Context) (CleanupReport, error) {
	if r.cache == nil {
		return CleanupReport{}, ErrCacheDisabled
	}
	return r.cache.Clean(ctx)
}

// FlushCache expires every cache entry whose source matches the regular
// expression pattern.
func (r *Resolver) FlushCache(pattern string) (int, error) {
	if r.cache == nil {
		return 0, ErrCacheDisabled
	}
	return r.cache.Flush(pattern)
}
