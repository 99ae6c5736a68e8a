package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/filelock"
	"github.com/jacoelho/xmlcatalog/internal/metrics"
	"github.com/jacoelho/xmlcatalog/internal/uri"
	"github.com/jacoelho/xmlcatalog/internal/xml"
)

// StoreSystem fetches systemID into the cache as a system entry. When
// publicID is not empty a public entry sharing the same data is written too.
func (c *Cache) StoreSystem(ctx context.Context, systemID, publicID string) (*Entry, error) {
	return c.store(ctx, systemID, func(dataFile string, meta descriptorMeta) *xml.Node {
		return systemDescriptor(systemID, dataFile, meta)
	}, publicID)
}

// StoreURI fetches u into the cache as a uri entry qualified by nature and
// purpose.
func (c *Cache) StoreURI(ctx context.Context, u, nature, purpose string) (*Entry, error) {
	return c.store(ctx, u, func(dataFile string, meta descriptorMeta) *xml.Node {
		return uriDescriptor(u, nature, purpose, dataFile, meta)
	}, "")
}

type describeFunc func(dataFile string, meta descriptorMeta) *xml.Node

func (c *Cache) store(ctx context.Context, source string, describe describeFunc, publicID string) (*Entry, error) {
	if !uri.IsAbsolute(source) {
		return nil, xcerrors.New(xcerrors.ErrMalformedIdentifier, source, "cache source is not absolute")
	}
	if c.fetcher == nil {
		return nil, fmt.Errorf("cache %s: no fetcher configured", c.dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	if !c.control.RuleFor(source).Cache {
		return nil, fmt.Errorf("store %s: %w", source, ErrNotCacheable)
	}

	var rec *Entry
	err := c.withLock(func() error {
		var err error
		rec, err = c.storeLocked(ctx, source, describe, publicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.metrics.CacheEvent(metrics.EventStore)
	c.logger.Debug("cached resource",
		slog.String("uri", source),
		slog.String("data", rec.DataPath))
	return rec, nil
}

func (c *Cache) storeLocked(ctx context.Context, source string, describe describeFunc, publicID string) (*Entry, error) {
	res, err := c.fetcher.Get(ctx, source)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	name := hashName(source)
	dataFile := name + extension(res.ContentType, res.URI)
	dataPath := filepath.Join(c.dataDir, dataFile)
	err = writeFileAtomic(dataPath, func(f *os.File) error {
		_, err := io.Copy(f, res.Body)
		return err
	})
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrCacheIO, source, "write cache data", err)
	}
	info, err := os.Stat(dataPath)
	if err != nil {
		return nil, xcerrors.Wrap(xcerrors.ErrCacheIO, source, "stat cache data", err)
	}

	meta := descriptorMeta{
		time:        c.now(),
		modified:    info.ModTime(),
		etag:        res.ETag,
		contentType: res.ContentType,
		size:        info.Size(),
	}
	if res.URI != source {
		meta.redirect = res.URI
	}

	// A failed store leaves no descriptor behind.
	descriptors := []string{filepath.Join(c.entryDir, name+descriptorExt)}
	var aux string
	if publicID != "" {
		aux = filepath.Join(c.entryDir, name+publicSuffix+descriptorExt)
		if err := writeDescriptor(aux, publicDescriptor(publicID, dataFile, meta)); err != nil {
			return nil, xcerrors.Wrap(xcerrors.ErrCacheIO, source, "write cache descriptor", err)
		}
		descriptors = append(descriptors, aux)
	}
	if err := writeDescriptor(descriptors[0], describe(dataFile, meta)); err != nil {
		if aux != "" {
			_ = os.Remove(aux)
		}
		return nil, xcerrors.Wrap(xcerrors.ErrCacheIO, source, "write cache descriptor", err)
	}

	var primary *Entry
	for _, path := range descriptors {
		rec, err := c.readDescriptor(path)
		if err != nil {
			return nil, xcerrors.Wrap(xcerrors.ErrCacheIO, source, "read cache descriptor", err)
		}
		c.add(rec)
		if primary == nil {
			primary = rec
		}
	}
	return primary, nil
}

func (c *Cache) withLock(fn func() error) error {
	return filelock.With(c.lockPath, fn)
}
