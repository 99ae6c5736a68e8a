package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/fetch"
)

type origin struct {
	body         string
	etag         string
	lastModified time.Time
}

type fakeFetcher struct {
	mu      sync.Mutex
	origins map[string]origin
	headErr error
	heads   int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{origins: make(map[string]origin)}
}

func (f *fakeFetcher) set(u string, o origin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.origins[u] = o
}

func (f *fakeFetcher) lookup(u string) (origin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.origins[u]
	if !ok {
		return origin{}, errors.New("not found: " + u)
	}
	return o, nil
}

func (f *fakeFetcher) Get(_ context.Context, u string) (*fetch.Resource, error) {
	o, err := f.lookup(u)
	if err != nil {
		return nil, err
	}
	return &fetch.Resource{
		Body:         io.NopCloser(strings.NewReader(o.body)),
		URI:          u,
		ETag:         o.etag,
		LastModified: o.lastModified,
	}, nil
}

func (f *fakeFetcher) Head(_ context.Context, u string) (*fetch.Resource, error) {
	f.mu.Lock()
	f.heads++
	headErr := f.headErr
	f.mu.Unlock()
	if headErr != nil {
		return nil, headErr
	}
	o, err := f.lookup(u)
	if err != nil {
		return nil, err
	}
	return &fetch.Resource{URI: u, ETag: o.etag, LastModified: o.lastModified}, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newCache(t *testing.T, dir string, f Fetcher, clk *clock, offline bool) *Cache {
	t.Helper()
	c, err := New(Config{Dir: dir, Fetcher: f, Now: clk.Now, Offline: offline})
	require.NoError(t, err)
	return c
}

func TestStoreSystemRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := newFakeFetcher()
	f.set("http://example.com/dtd/a.dtd", origin{body: "<!ELEMENT a EMPTY>", etag: `"v1"`})
	clk := newClock()

	c := newCache(t, dir, f, clk, false)
	rec, err := c.StoreSystem(context.Background(), "http://example.com/dtd/a.dtd", "-//A//DTD A//EN")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/dtd/a.dtd", rec.Source)
	assert.True(t, strings.HasPrefix(rec.LocalURI, c.CatalogURI()+"data/"), rec.LocalURI)
	assert.True(t, strings.HasSuffix(rec.DataPath, ".dtd"), rec.DataPath)
	assert.Equal(t, `"v1"`, rec.ETag)
	assert.Equal(t, int64(len("<!ELEMENT a EMPTY>")), rec.Size)
	assert.True(t, rec.Time.Equal(clk.Now()))

	data, err := os.ReadFile(rec.DataPath)
	require.NoError(t, err)
	assert.Equal(t, "<!ELEMENT a EMPTY>", string(data))

	doc := c.Catalog()
	require.Equal(t, 2, doc.Len())
	assert.Equal(t, c.CatalogURI(), doc.URI())

	reopened := newCache(t, dir, f, clk, false)
	entries, err := reopened.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	kinds := map[entry.Kind]string{}
	for _, e := range entries {
		kinds[e.Catalog.Kind()] = e.Source
		assert.Equal(t, rec.LocalURI, e.LocalURI)
	}
	assert.Equal(t, "http://example.com/dtd/a.dtd", kinds[entry.KindSystem])
	assert.Equal(t, "-//A//DTD A//EN", kinds[entry.KindPublic])

	got, ok := reopened.Lookup("http://example.com/dtd/a.dtd")
	require.True(t, ok)
	assert.Equal(t, entry.KindSystem, got.Catalog.Kind())
}

func TestStoreURIKeepsQualifiers(t *testing.T) {
	f := newFakeFetcher()
	f.set("http://example.com/ns", origin{body: "<schema/>"})
	c := newCache(t, t.TempDir(), f, newClock(), false)

	rec, err := c.StoreURI(context.Background(), "http://example.com/ns", "http://www.w3.org/2001/XMLSchema", "validation")
	require.NoError(t, err)

	u, ok := rec.Catalog.(*entry.URI)
	require.True(t, ok)
	assert.Equal(t, "http://example.com/ns", u.Name)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema", u.Nature)
	assert.Equal(t, "validation", u.Purpose)
	assert.True(t, strings.HasSuffix(rec.DataPath, defaultExtension))
}

func TestStoreRejectsUncacheable(t *testing.T) {
	dir := t.TempDir()
	control := DefaultControl()
	rule, err := control.NewRule("^http://example.com/private/", false)
	require.NoError(t, err)
	control.Rules = append([]Rule{rule}, control.Rules...)
	require.NoError(t, writeControl(filepath.Join(dir, "control.xml"), control))

	f := newFakeFetcher()
	f.set("http://example.com/private/x.dtd", origin{body: "x"})
	c := newCache(t, dir, f, newClock(), false)

	_, err = c.StoreSystem(context.Background(), "http://example.com/private/x.dtd", "")
	require.ErrorIs(t, err, ErrNotCacheable)
	assert.False(t, c.Cacheable("file:///tmp/local.dtd"))
	assert.False(t, c.Cacheable("classpath:org/example/a.xsd"))
	assert.True(t, c.Cacheable("http://example.com/public/a.dtd"))
}

func TestEvictsOldestBeyondMaxCount(t *testing.T) {
	dir := t.TempDir()
	control := DefaultControl()
	control.Default.MaxCount = 2
	require.NoError(t, writeControl(filepath.Join(dir, "control.xml"), control))

	f := newFakeFetcher()
	clk := newClock()
	c := newCache(t, dir, f, clk, false)

	var recs []*Entry
	for _, name := range []string{"a", "b", "c"} {
		u := "http://example.com/" + name + ".dtd"
		f.set(u, origin{body: name, etag: `"1"`})
		rec, err := c.StoreSystem(context.Background(), u, "")
		require.NoError(t, err)
		recs = append(recs, rec)
		clk.Advance(time.Minute)
	}

	assert.False(t, c.Expired(context.Background(), recs[2]))
	assert.True(t, recs[0].Expired, "oldest entry should be evicted")
	assert.False(t, recs[1].Expired)

	entries, err := c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "http://example.com/b.dtd", entries[0].Source)
	assert.Equal(t, "http://example.com/c.dtd", entries[1].Source)

	_, err = os.Stat(filepath.Join(dir, "expired", recs[0].Descriptor))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "entry", recs[0].Descriptor))
	assert.True(t, os.IsNotExist(err))
}

func TestCohortLimits(t *testing.T) {
	tests := []struct {
		name    string
		rule    func(r *Rule)
		sources []string
		expired []string
	}{
		{
			name:    "space limit",
			rule:    func(r *Rule) { r.MaxBytes = 5 },
			sources: []string{"http://b/0", "http://a/1", "http://a/2", "http://a/3"},
			expired: []string{"http://a/1", "http://a/2"},
		},
		{
			name:    "count limit stays within pattern",
			rule:    func(r *Rule) { r.MaxCount = 1 },
			sources: []string{"http://b/0", "http://b/1", "http://a/2", "http://a/3"},
			expired: []string{"http://a/2"},
		},
		{
			name:    "within limits",
			rule:    func(r *Rule) { r.MaxCount = 3 },
			sources: []string{"http://b/0", "http://a/1", "http://a/2", "http://a/3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			control := DefaultControl()
			rule, err := control.NewRule(`^http://a/`, true)
			require.NoError(t, err)
			tt.rule(&rule)
			control.Rules = append(control.Rules, rule)
			require.NoError(t, writeControl(filepath.Join(dir, "control.xml"), control))

			f := newFakeFetcher()
			clk := newClock()
			c := newCache(t, dir, f, clk, false)

			recs := make(map[string]*Entry)
			for _, u := range tt.sources {
				f.set(u, origin{body: "abc", etag: `"1"`})
				rec, err := c.StoreSystem(context.Background(), u, "")
				require.NoError(t, err)
				recs[u] = rec
				clk.Advance(time.Minute)
			}

			last := tt.sources[len(tt.sources)-1]
			assert.False(t, c.Expired(context.Background(), recs[last]))
			for _, u := range tt.sources {
				assert.Equal(t, slices.Contains(tt.expired, u), recs[u].Expired, u)
			}
			entries, err := c.Entries()
			require.NoError(t, err)
			assert.Len(t, entries, len(tt.sources)-len(tt.expired))
		})
	}
}

func TestNoCacheRuleFlushesCohort(t *testing.T) {
	dir := t.TempDir()
	f := newFakeFetcher()
	clk := newClock()
	c := newCache(t, dir, f, clk, false)
	for _, u := range []string{"http://a/1", "http://a/2", "http://b/3"} {
		f.set(u, origin{body: "abc", etag: `"1"`})
		_, err := c.StoreSystem(context.Background(), u, "")
		require.NoError(t, err)
	}

	control := DefaultControl()
	rule, err := control.NewRule(`^http://a/`, false)
	require.NoError(t, err)
	control.Rules = append(control.Rules, rule)
	require.NoError(t, writeControl(filepath.Join(dir, "control.xml"), control))

	c = newCache(t, dir, f, clk, false)
	entries, err := c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	var target Entry
	for _, e := range entries {
		if e.Source == "http://a/1" {
			target = e
		}
	}
	require.Equal(t, "http://a/1", target.Source)

	assert.True(t, c.Expired(context.Background(), &target))
	entries, err = c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "http://b/3", entries[0].Source)
}

func TestFailedStoreLeavesNoDescriptor(t *testing.T) {
	const u = "http://example.com/a.dtd"
	tests := []struct {
		name    string
		blocked string
	}{
		{name: "system descriptor", blocked: hashName(u) + descriptorExt},
		{name: "public descriptor", blocked: hashName(u) + publicSuffix + descriptorExt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "entry", tt.blocked), 0o755))
			f := newFakeFetcher()
			f.set(u, origin{body: "x"})
			c := newCache(t, dir, f, newClock(), false)

			_, err := c.StoreSystem(context.Background(), u, "-//A//DTD A//EN")
			require.Error(t, err)

			files, err := os.ReadDir(filepath.Join(dir, "entry"))
			require.NoError(t, err)
			for _, file := range files {
				assert.True(t, file.IsDir(), "unexpected descriptor %s", file.Name())
			}
			reopened := newCache(t, dir, f, newClock(), false)
			entries, err := reopened.Entries()
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestStaleness(t *testing.T) {
	const u = "http://example.com/a.dtd"
	tests := []struct {
		name    string
		control func(*Control)
		probe   func(*fakeFetcher, time.Time)
		advance time.Duration
		offline bool
		want    bool
	}{
		{
			name:  "etag unchanged",
			probe: func(*fakeFetcher, time.Time) {},
			want:  false,
		},
		{
			name:  "etag changed",
			probe: func(f *fakeFetcher, _ time.Time) { f.set(u, origin{body: "x", etag: `"v2"`}) },
			want:  true,
		},
		{
			name: "last modified newer",
			probe: func(f *fakeFetcher, stored time.Time) {
				f.set(u, origin{body: "x", lastModified: stored.Add(time.Hour)})
			},
			want: true,
		},
		{
			name: "last modified older",
			probe: func(f *fakeFetcher, stored time.Time) {
				f.set(u, origin{body: "x", lastModified: stored.Add(-time.Hour)})
			},
			want: false,
		},
		{
			name:    "probe failure keeps entry",
			probe:   func(f *fakeFetcher, _ time.Time) { f.headErr = errors.New("offline") },
			advance: 365 * 24 * time.Hour,
			control: func(c *Control) { c.Default.MaxAge = time.Hour },
			want:    false,
		},
		{
			name:    "max age without validators",
			probe:   func(f *fakeFetcher, _ time.Time) { f.set(u, origin{body: "x"}) },
			advance: 2 * time.Hour,
			control: func(c *Control) { c.Default.MaxAge = time.Hour },
			want:    true,
		},
		{
			name: "etag unchanged last modified newer",
			probe: func(f *fakeFetcher, stored time.Time) {
				f.set(u, origin{body: "x", etag: `"v1"`, lastModified: stored.Add(time.Hour)})
			},
			want: true,
		},
		{
			name:    "max age exceeded etag unchanged",
			probe:   func(*fakeFetcher, time.Time) {},
			advance: 48 * time.Hour,
			control: func(c *Control) { c.Default.MaxAge = time.Hour },
			want:    true,
		},
		{
			name:    "max age not reached",
			probe:   func(*fakeFetcher, time.Time) {},
			advance: 30 * time.Minute,
			control: func(c *Control) { c.Default.MaxAge = time.Hour },
			want:    false,
		},
		{
			name:    "offline never expires",
			probe:   func(f *fakeFetcher, _ time.Time) { f.set(u, origin{body: "x", etag: `"v2"`}) },
			offline: true,
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.control != nil {
				control := DefaultControl()
				tt.control(control)
				require.NoError(t, writeControl(filepath.Join(dir, "control.xml"), control))
			}
			f := newFakeFetcher()
			f.set(u, origin{body: "x", etag: `"v1"`})
			clk := newClock()
			c := newCache(t, dir, f, clk, tt.offline)

			rec, err := c.StoreSystem(context.Background(), u, "")
			require.NoError(t, err)
			tt.probe(f, rec.Time)
			clk.Advance(tt.advance)

			assert.Equal(t, tt.want, c.Expired(context.Background(), rec))
			assert.Equal(t, tt.want, rec.Expired)
		})
	}
}

func TestOfflineSkipsProbe(t *testing.T) {
	f := newFakeFetcher()
	f.set("http://example.com/a.dtd", origin{body: "x"})
	c := newCache(t, t.TempDir(), f, newClock(), true)
	rec, err := c.StoreSystem(context.Background(), "http://example.com/a.dtd", "")
	require.NoError(t, err)

	assert.True(t, c.Accept(nil, rec.Catalog))
	assert.Zero(t, f.heads)
}

func TestAcceptPublicFollowsSystemEntry(t *testing.T) {
	const u = "http://example.com/a.dtd"
	f := newFakeFetcher()
	f.set(u, origin{body: "x", etag: `"v1"`})
	c := newCache(t, t.TempDir(), f, newClock(), false)
	_, err := c.StoreSystem(context.Background(), u, "-//A//DTD A//EN")
	require.NoError(t, err)

	var public entry.Entry
	for _, e := range c.Catalog().Entries() {
		if e.Kind() == entry.KindPublic {
			public = e
		}
	}
	require.NotNil(t, public)
	assert.True(t, c.Accept(nil, public))

	f.set(u, origin{body: "y", etag: `"v2"`})
	assert.False(t, c.Accept(nil, public))
	assert.Zero(t, c.Catalog().Len(), "public and system entries expire together")
}

func TestFlushAndCleanup(t *testing.T) {
	dir := t.TempDir()
	f := newFakeFetcher()
	f.set("http://example.com/a.dtd", origin{body: "a"})
	f.set("http://example.com/b.dtd", origin{body: "b"})
	clk := newClock()
	c := newCache(t, dir, f, clk, false)

	a, err := c.StoreSystem(context.Background(), "http://example.com/a.dtd", "")
	require.NoError(t, err)
	b, err := c.StoreSystem(context.Background(), "http://example.com/b.dtd", "")
	require.NoError(t, err)

	n, err := c.Flush(`a\.dtd$`)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, a.Expired)

	stray := filepath.Join(dir, "data", "stray.bin")
	require.NoError(t, os.WriteFile(stray, []byte("?"), 0o644))

	report, err := c.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{OrphanedData: 1}, report, "expired descriptor kept within delete wait")
	_, err = os.Stat(a.DataPath)
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)
	require.NoError(t, os.Remove(b.DataPath))
	report, err = c.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{ExpiredDescriptors: 1, OrphanedData: 1, BrokenEntries: 1}, report)

	_, err = os.Stat(a.DataPath)
	assert.True(t, os.IsNotExist(err))
	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanupRunsDaily(t *testing.T) {
	dir := t.TempDir()
	clk := newClock()
	c := newCache(t, dir, newFakeFetcher(), clk, false)
	_, err := c.Entries()
	require.NoError(t, err)
	assert.False(t, c.cleanupDue())
	clk.Advance(25 * time.Hour)
	assert.True(t, c.cleanupDue())
}
