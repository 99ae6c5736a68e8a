package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"go.uber.org/multierr"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/metrics"
)

// Expired reports whether rec must no longer be served. Along the way it
// enforces the count and space limits of rec's rule, evicting the oldest
// entries first, and probes the origin for changes. A failed probe leaves
// the entry live. Nothing expires in offline mode.
func (c *Cache) Expired(ctx context.Context, rec *Entry) bool {
	if c.offline {
		return false
	}

	c.mu.Lock()
	if err := c.ensureLoaded(); err != nil {
		c.mu.Unlock()
		return true
	}
	if rec.Catalog.Kind() == entry.KindPublic {
		primary := c.primaryLocked(rec)
		if primary == nil {
			c.mu.Unlock()
			return true
		}
		rec = primary
	}
	rule := c.control.RuleFor(rec.Source)
	if !rule.Cache {
		c.expireMatchingLocked(func(r *Entry) bool { return sameRule(c.control.RuleFor(r.Source), rule) }, metrics.EventExpire)
		c.mu.Unlock()
		return true
	}
	c.enforceLimitsLocked(rule)
	if !rec.Expired {
		if _, err := os.Stat(rec.DataPath); err != nil {
			c.expireLocked(rec, metrics.EventExpire)
		}
	}
	expired := rec.Expired
	c.mu.Unlock()
	if expired {
		return true
	}

	if !c.stale(ctx, rec, rule) {
		return false
	}
	c.mu.Lock()
	c.expireLocked(rec, metrics.EventExpire)
	c.mu.Unlock()
	return true
}

// stale probes the origin of rec. It never holds c.mu.
func (c *Cache) stale(ctx context.Context, rec *Entry, rule Rule) bool {
	if c.fetcher == nil {
		return false
	}
	res, err := c.fetcher.Head(ctx, rec.Source)
	if err != nil {
		c.logger.Debug("cache probe failed",
			slog.String("uri", rec.Source),
			slog.String("error", err.Error()))
		return false
	}
	_ = res.Close()

	switch {
	case rec.ETag != "" && res.ETag != "" && rec.ETag != res.ETag:
		return true
	case !res.LastModified.IsZero() && res.LastModified.After(rec.Time):
		return true
	case rule.MaxAge >= 0 && c.now().Sub(rec.Time) > rule.MaxAge:
		return true
	}
	return false
}

// primaryLocked returns the live system entry whose data a public entry
// shares.
func (c *Cache) primaryLocked(pub *Entry) *Entry {
	for _, rec := range c.entries {
		if rec.DataPath == pub.DataPath && rec.Catalog.Kind() != entry.KindPublic {
			return rec
		}
	}
	return nil
}

func sameRule(a, b Rule) bool {
	return a.Pattern() == b.Pattern()
}

// enforceLimitsLocked evicts the oldest entries governed by rule until the
// rule's count and space limits hold. Public entries ride along with their
// system entry and are not counted.
func (c *Cache) enforceLimitsLocked(rule Rule) {
	var (
		cohort []*Entry
		bytes  int64
	)
	for _, rec := range c.entries {
		if rec.Catalog.Kind() == entry.KindPublic || !sameRule(c.control.RuleFor(rec.Source), rule) {
			continue
		}
		cohort = append(cohort, rec)
		bytes += rec.Size
	}
	count := len(cohort)
	over := func() bool {
		return (rule.MaxCount >= 0 && count > rule.MaxCount) || (rule.MaxBytes >= 0 && bytes > rule.MaxBytes)
	}
	for _, rec := range cohort {
		if !over() {
			break
		}
		c.expireLocked(rec, metrics.EventEvict)
		count--
		bytes -= rec.Size
	}
}

// Flush expires every entry whose source matches the regular expression
// pattern and returns how many were expired.
func (c *Cache) Flush(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("flush pattern %q: %w", pattern, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return 0, err
	}
	return c.expireMatchingLocked(func(r *Entry) bool { return re.MatchString(r.Source) }, metrics.EventExpire), nil
}

// expireMatchingLocked expires matching entries and returns how many items
// went away. A public entry expired together with its system entry is not
// counted separately.
func (c *Cache) expireMatchingLocked(match func(*Entry) bool, event string) int {
	var matched []*Entry
	for _, rec := range c.entries {
		if match(rec) {
			matched = append(matched, rec)
		}
	}
	slices.SortStableFunc(matched, func(a, b *Entry) int {
		return cmp.Compare(publicRank(a), publicRank(b))
	})
	n := 0
	for _, rec := range matched {
		if rec.Expired {
			continue
		}
		c.expireLocked(rec, event)
		n++
	}
	return n
}

func publicRank(rec *Entry) int {
	if rec.Catalog.Kind() == entry.KindPublic {
		return 1
	}
	return 0
}

// expireLocked moves the descriptors of rec, and of any public entry sharing
// its data, into expired/ and drops them from the live list. The move resets
// the descriptor mtime so deleteWait counts from expiry.
func (c *Cache) expireLocked(rec *Entry, event string) {
	if rec.Expired {
		return
	}
	group := []*Entry{rec}
	if rec.Catalog.Kind() != entry.KindPublic {
		for _, other := range c.entries {
			if other != rec && other.DataPath == rec.DataPath && other.Catalog.Kind() == entry.KindPublic {
				group = append(group, other)
			}
		}
	}
	err := c.withLock(func() error {
		var errs error
		for _, r := range group {
			errs = multierr.Append(errs, c.moveToExpired(r.Descriptor))
		}
		return errs
	})
	if err != nil {
		c.logger.Warn("cache expiry failed",
			slog.String("uri", rec.Source),
			slog.String("error", xcerrors.Wrap(xcerrors.ErrCacheIO, rec.Source, "expire cache entry", err).Error()))
	}
	for _, r := range group {
		r.Expired = true
		c.remove(r)
	}
	c.metrics.CacheEvent(event)
	c.logger.Debug("cache entry expired",
		slog.String("uri", rec.Source),
		slog.String("reason", event))
}

func (c *Cache) moveToExpired(descriptor string) error {
	from := filepath.Join(c.entryDir, descriptor)
	to := filepath.Join(c.expiredDir, descriptor)
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("move %s: %w", descriptor, err)
	}
	now := c.now()
	if err := os.Chtimes(to, now, now); err != nil {
		return fmt.Errorf("touch %s: %w", to, err)
	}
	return nil
}
