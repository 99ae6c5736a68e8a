// Package cache implements the on-disk resource cache. Cached resources are
// exposed to the query engine as a catalog whose entries point at local
// copies; staleness is checked against the origin before an entry is served.
//
// Layout of the cache directory:
//
//	data/         fetched bytes, named <sha256(uri)><ext>
//	entry/        one descriptor per cached item, in catalog entry markup
//	expired/      descriptors of entries found stale, kept until deleteWait
//	lock          cross-process lock file
//	control.xml   cache policy
//	.cleanup      sentinel whose mtime records the last cleanup
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/catalog"
	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/fetch"
	"github.com/jacoelho/xmlcatalog/internal/loader"
	"github.com/jacoelho/xmlcatalog/internal/metrics"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// ErrNotCacheable is returned when the policy excludes a URI from caching.
var ErrNotCacheable = errors.New("uri is not cacheable")

// Fetcher retrieves resources for population and staleness probes.
type Fetcher interface {
	Get(ctx context.Context, uri string) (*fetch.Resource, error)
	Head(ctx context.Context, uri string) (*fetch.Resource, error)
}

// Config holds configuration for the cache.
type Config struct {
	Fetcher Fetcher
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Dir     string

	// Now overrides the clock.
	Now func() time.Time

	// Offline disables staleness checks: nothing expires.
	Offline bool
}

// Entry is one cached item.
type Entry struct {
	// Catalog is the system, uri or public entry served from the cache.
	Catalog entry.Entry

	// Source is the original identifier: the system identifier, the uri
	// name, or the public identifier of an auxiliary public entry.
	Source      string
	LocalURI    string
	DataPath    string
	Descriptor  string
	ContentType string
	ETag        string
	Redirect    string
	Time        time.Time
	Modified    time.Time
	Size        int64
	Expired     bool
}

// Cache is a resource cache rooted at a directory.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	loader  *loader.Loader

	dir         string
	dirURI      string
	dataDir     string
	entryDir    string
	expiredDir  string
	lockPath    string
	controlPath string
	sentinel    string
	offline     bool

	mu      sync.Mutex
	loaded  bool
	control *Control
	entries []*Entry
	byEntry map[entry.Entry]*Entry
}

// New returns a cache for cfg.Dir. The directory is created and read on
// first use.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("cache directory %s: %w", cfg.Dir, err)
	}
	dirURI, err := uri.DirURI(dir)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		fetcher:     cfg.Fetcher,
		logger:      logger,
		metrics:     cfg.Metrics,
		now:         now,
		loader:      loader.NewLoader(loader.Config{Logger: logger, PreferPublic: true}),
		dir:         dir,
		dirURI:      dirURI,
		dataDir:     filepath.Join(dir, "data"),
		entryDir:    filepath.Join(dir, "entry"),
		expiredDir:  filepath.Join(dir, "expired"),
		lockPath:    filepath.Join(dir, "lock"),
		controlPath: filepath.Join(dir, "control.xml"),
		sentinel:    filepath.Join(dir, ".cleanup"),
		offline:     cfg.Offline,
		byEntry:     make(map[entry.Entry]*Entry),
	}, nil
}

// Dir returns the absolute cache directory.
func (c *Cache) Dir() string { return c.dir }

// CatalogURI returns the URI identifying the cache catalog.
func (c *Cache) CatalogURI() string { return c.dirURI }

// Control returns the policy in effect.
func (c *Cache) Control() (*Control, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	return c.control, nil
}

// Cacheable reports whether the policy allows caching u.
func (c *Cache) Cacheable(u string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return false
	}
	return c.control.RuleFor(u).Cache
}

// Catalog returns a fresh document holding every live cache entry, oldest
// first.
func (c *Cache) Catalog() *catalog.Document {
	doc := catalog.New(c.dirURI)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		c.logger.Warn("resource cache unavailable",
			slog.String("dir", c.dir),
			slog.String("error", err.Error()))
		return doc
	}
	for _, rec := range c.entries {
		doc.Add(rec.Catalog)
	}
	return doc
}

// Accept reports whether the cache entry e may be served. Stale entries are
// expired as a side effect.
func (c *Cache) Accept(_ *catalog.Document, e entry.Entry) bool {
	c.mu.Lock()
	rec := c.byEntry[e]
	c.mu.Unlock()
	if rec == nil {
		return false
	}
	if c.Expired(context.Background(), rec) {
		c.metrics.CacheEvent(metrics.EventMiss)
		return false
	}
	c.metrics.CacheEvent(metrics.EventHit)
	return true
}

// Entries returns a snapshot of the live entries, oldest first.
func (c *Cache) Entries() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(c.entries))
	for _, rec := range c.entries {
		out = append(out, *rec)
	}
	return out, nil
}

// Lookup returns the newest live system or uri entry cached from source.
func (c *Cache) Lookup(source string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, false
	}
	for _, rec := range slices.Backward(c.entries) {
		if rec.Source == source && rec.Catalog.Kind() != entry.KindPublic {
			return rec, true
		}
	}
	return nil, false
}

// ensureLoaded creates the layout, reads the policy and every descriptor
// once per cache lifetime, then runs the periodic cleanup if it is due.
// Callers hold c.mu.
func (c *Cache) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	for _, d := range []string{c.dir, c.dataDir, c.entryDir, c.expiredDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return xcerrors.Wrap(xcerrors.ErrCacheIO, c.dirURI, "create cache layout", err)
		}
	}

	control, err := readControl(c.controlPath)
	if err != nil {
		return xcerrors.Wrap(xcerrors.ErrCacheIO, c.dirURI, "read cache control", err)
	}
	if control == nil {
		control = DefaultControl()
		if err := c.withLock(func() error { return writeControl(c.controlPath, control) }); err != nil {
			return xcerrors.Wrap(xcerrors.ErrCacheIO, c.dirURI, "write cache control", err)
		}
	}
	c.control = control

	records, err := c.readDescriptors(c.entryDir)
	if err != nil {
		return xcerrors.Wrap(xcerrors.ErrCacheIO, c.dirURI, "read cache entries", err)
	}
	slices.SortStableFunc(records, func(a, b *Entry) int { return a.Time.Compare(b.Time) })
	c.entries = records
	for _, rec := range records {
		c.byEntry[rec.Catalog] = rec
	}
	c.loaded = true

	if c.cleanupDue() {
		if _, err := c.cleanupLocked(); err != nil {
			c.logger.Warn("cache cleanup failed",
				slog.String("dir", c.dir),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (c *Cache) readDescriptors(dir string) ([]*Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var records []*Entry
	for _, f := range files {
		if !isDescriptor(f) {
			continue
		}
		rec, err := c.readDescriptor(filepath.Join(dir, f.Name()))
		if err != nil {
			c.logger.Warn("ignoring cache descriptor",
				slog.String("file", f.Name()),
				slog.String("error", err.Error()))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Cache) remove(rec *Entry) {
	c.entries = slices.DeleteFunc(c.entries, func(e *Entry) bool { return e == rec })
	delete(c.byEntry, rec.Catalog)
}

func (c *Cache) add(rec *Entry) {
	for _, old := range c.entries {
		if old.Descriptor == rec.Descriptor {
			c.remove(old)
			break
		}
	}
	c.entries = append(c.entries, rec)
	c.byEntry[rec.Catalog] = rec
}
