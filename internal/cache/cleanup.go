package cache

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/jacoelho/xmlcatalog/internal/metrics"
)

const cleanupInterval = 24 * time.Hour

// CleanupReport counts what a cleanup pass removed.
type CleanupReport struct {
	ExpiredDescriptors int
	OrphanedData       int
	BrokenEntries      int
}

// Clean runs a cleanup pass now, regardless of when the last one ran.
func (c *Cache) Clean(ctx context.Context) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return CleanupReport{}, err
	}
	return c.cleanupLocked()
}

func (c *Cache) cleanupDue() bool {
	info, err := os.Stat(c.sentinel)
	if err != nil {
		return true
	}
	return c.now().Sub(info.ModTime()) >= cleanupInterval
}

// cleanupLocked deletes expired descriptors older than their rule's
// deleteWait, entry descriptors whose data file is gone, and data files no
// descriptor references. Errors on individual files do not stop the pass.
func (c *Cache) cleanupLocked() (CleanupReport, error) {
	var report CleanupReport
	err := c.withLock(func() error {
		var errs error
		now := c.now()
		referenced := make(map[string]struct{})

		expired, err := c.scanDescriptors(c.expiredDir)
		errs = multierr.Append(errs, err)
		for _, d := range expired {
			if d.rec != nil {
				wait := c.control.RuleFor(d.rec.Source).DeleteWait
				if now.Sub(d.modTime) < wait {
					referenced[d.rec.DataPath] = struct{}{}
					continue
				}
			}
			if err := os.Remove(d.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = multierr.Append(errs, err)
				continue
			}
			report.ExpiredDescriptors++
		}

		live, err := c.scanDescriptors(c.entryDir)
		errs = multierr.Append(errs, err)
		for _, d := range live {
			if d.rec == nil {
				continue
			}
			if _, err := os.Stat(d.rec.DataPath); err == nil {
				referenced[d.rec.DataPath] = struct{}{}
				continue
			}
			if err := os.Remove(d.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = multierr.Append(errs, err)
				continue
			}
			c.dropDescriptor(filepath.Base(d.path))
			report.BrokenEntries++
		}

		files, err := os.ReadDir(c.dataDir)
		errs = multierr.Append(errs, err)
		for _, f := range files {
			if !f.Type().IsRegular() {
				continue
			}
			p := filepath.Join(c.dataDir, f.Name())
			if _, ok := referenced[p]; ok {
				continue
			}
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = multierr.Append(errs, err)
				continue
			}
			report.OrphanedData++
		}

		errs = multierr.Append(errs, c.touchSentinel(now))
		return errs
	})
	for range report.ExpiredDescriptors + report.OrphanedData + report.BrokenEntries {
		c.metrics.CacheEvent(metrics.EventDelete)
	}
	c.logger.Debug("cache cleanup",
		slog.Int("expired", report.ExpiredDescriptors),
		slog.Int("orphaned", report.OrphanedData),
		slog.Int("broken", report.BrokenEntries))
	return report, err
}

type scannedDescriptor struct {
	// rec is nil when the descriptor could not be parsed.
	rec     *Entry
	modTime time.Time
	path    string
}

func (c *Cache) scanDescriptors(dir string) ([]scannedDescriptor, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []scannedDescriptor
	for _, f := range files {
		if !isDescriptor(f) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		p := filepath.Join(dir, f.Name())
		rec, err := c.readDescriptor(p)
		if err != nil {
			rec = nil
		}
		out = append(out, scannedDescriptor{rec: rec, modTime: info.ModTime(), path: p})
	}
	return out, nil
}

func (c *Cache) dropDescriptor(name string) {
	for _, rec := range c.entries {
		if rec.Descriptor == name {
			rec.Expired = true
			c.remove(rec)
			return
		}
	}
}

func (c *Cache) touchSentinel(now time.Time) error {
	f, err := os.OpenFile(c.sentinel, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chtimes(c.sentinel, now, now)
}
