package fetch

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

func newFetcher(t *testing.T, cfg Config) *Fetcher {
	t.Helper()
	f, err := New(cfg)
	require.NoError(t, err)
	return f
}

func readAll(t *testing.T, res *Resource) string {
	t.Helper()
	require.NotNil(t, res.Body)
	defer res.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHTTPGet(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=latin1")
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		_, _ = io.WriteString(w, "<doc/>")
	}))
	defer srv.Close()

	f := newFetcher(t, Config{})
	res, err := f.Get(context.Background(), srv.URL+"/doc.xml")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/doc.xml", res.URI)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "text/xml", res.ContentType)
	assert.Equal(t, "windows-1252", res.Encoding)
	assert.Equal(t, `"v1"`, res.ETag)
	assert.True(t, res.LastModified.Equal(modified))
	assert.False(t, res.Date.IsZero())
	assert.Equal(t, "<doc/>", readAll(t, res))
}

func TestHTTPHeadHasNoBody(t *testing.T) {
	methods := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.Header().Set("ETag", `"v2"`)
	}))
	defer srv.Close()

	res, err := newFetcher(t, Config{}).Head(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, res.Body)
	assert.Equal(t, `"v2"`, res.ETag)
	assert.Equal(t, http.MethodHead, <-methods)
}

func TestRedirectAcrossServersAndSchemes(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "final")
	}))
	defer final.Close()
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/to-final":
			http.Redirect(w, r, final.URL+"/x", http.StatusFound)
		case "/to-data":
			http.Redirect(w, r, "data:,inline", http.StatusMovedPermanently)
		}
	}))
	defer first.Close()

	f := newFetcher(t, Config{})
	res, err := f.Get(context.Background(), first.URL+"/to-final")
	require.NoError(t, err)
	assert.Equal(t, final.URL+"/x", res.URI)
	assert.Equal(t, "final", readAll(t, res))

	res, err = f.Get(context.Background(), first.URL+"/to-data")
	require.NoError(t, err)
	assert.Equal(t, "data:,inline", res.URI)
	assert.Equal(t, "inline", readAll(t, res))
}

func TestRedirectLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			http.Redirect(w, r, "/b", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/a", http.StatusFound)
	}))
	defer srv.Close()

	_, err := newFetcher(t, Config{}).Get(context.Background(), srv.URL+"/a")
	require.Error(t, err)
	assert.True(t, xcerrors.IsCode(err, xcerrors.ErrFetchFailed))
	assert.Contains(t, err.Error(), "redirect loop")
}

func TestNotFoundIsDistinctFromDenied(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFetcher(t, Config{})
	_, err := f.Get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, xcerrors.IsCode(err, xcerrors.ErrAccessDenied))

	denied := newFetcher(t, Config{Access: Access{Deny: []string{"http"}}})
	_, err = denied.Get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, xcerrors.IsCode(err, xcerrors.ErrAccessDenied))
	assert.False(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, int32(1), hits.Load(), "denied request must not reach the server")
}

func TestRedirectTargetIsAccessChecked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "file:///etc/passwd", http.StatusFound)
	}))
	defer srv.Close()

	f := newFetcher(t, Config{Access: Access{Allow: []string{"http", "https"}}})
	_, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, xcerrors.IsCode(err, xcerrors.ErrAccessDenied))
}

func TestAccessPatterns(t *testing.T) {
	f := newFetcher(t, Config{Access: Access{
		Allow: []string{"https://example.com/**", "file"},
		Deny:  []string{"https://example.com/private/**"},
	}})
	tests := []struct {
		uri  string
		want bool
	}{
		{"https://example.com/a/b.xsd", true},
		{"HTTPS://example.com/a.xsd", true},
		{"https://example.com/private/x", false},
		{"https://other.com/a.xsd", false},
		{"file:///tmp/a.xml", true},
		{"data:,x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Allowed(tt.uri), tt.uri)
	}
	assert.True(t, newFetcher(t, Config{}).Allowed("data:,x"))

	_, err := New(Config{Access: Access{Deny: []string{"https://[bad"}}})
	assert.Error(t, err)
}

func TestFileAndData(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.dtd")
	require.NoError(t, os.WriteFile(p, []byte("<!ELEMENT a EMPTY>"), 0o644))
	fileURI, err := uri.FileURI(p)
	require.NoError(t, err)

	f := newFetcher(t, Config{})
	res, err := f.Get(context.Background(), fileURI)
	require.NoError(t, err)
	assert.False(t, res.LastModified.IsZero())
	assert.Equal(t, "<!ELEMENT a EMPTY>", readAll(t, res))

	missing, err := uri.FileURI(filepath.Join(dir, "missing.dtd"))
	require.NoError(t, err)
	_, err = f.Get(context.Background(), missing)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	res, err = f.Get(context.Background(), "data:application/xml;charset=UTF-8,%3Ca%2F%3E")
	require.NoError(t, err)
	assert.Equal(t, "application/xml", res.ContentType)
	assert.Equal(t, "utf-8", res.Encoding)
	assert.Equal(t, "<a/>", readAll(t, res))
}

func TestClasspath(t *testing.T) {
	f := newFetcher(t, Config{Classpath: fstest.MapFS{
		"schemas/x.xsd": &fstest.MapFile{Data: []byte("<schema/>")},
	}})
	for _, u := range []string{"classpath:schemas/x.xsd", "classpath:/schemas/x.xsd"} {
		res, err := f.Get(context.Background(), u)
		require.NoError(t, err, u)
		assert.Equal(t, "<schema/>", readAll(t, res))
	}
	_, err := f.Get(context.Background(), "classpath:schemas/missing.xsd")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = newFetcher(t, Config{}).Get(context.Background(), "classpath:schemas/x.xsd")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestJarMember(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bundle.jar")
	out, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("org/example/catalog.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, "<catalog/>")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	archiveURI, err := uri.FileURI(p)
	require.NoError(t, err)
	f := newFetcher(t, Config{})
	res, err := f.Get(context.Background(), "jar:"+archiveURI+"!/org/example/catalog.xml")
	require.NoError(t, err)
	assert.Equal(t, "<catalog/>", readAll(t, res))

	_, err = f.Get(context.Background(), "jar:"+archiveURI+"!/missing.xml")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = f.Get(context.Background(), "jar:"+archiveURI)
	assert.True(t, xcerrors.IsCode(err, xcerrors.ErrMalformedIdentifier))
}

func TestRelativeURIRejected(t *testing.T) {
	_, err := newFetcher(t, Config{}).Get(context.Background(), "relative/path.xml")
	assert.True(t, xcerrors.IsCode(err, xcerrors.ErrMalformedIdentifier))
}

func TestTrustedPrefixBypassesPolicy(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data", "x.dtd")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	dirURI, err := uri.DirURI(dir)
	require.NoError(t, err)
	fileURI, err := uri.FileURI(p)
	require.NoError(t, err)

	f := newFetcher(t, Config{Access: Access{Deny: []string{"file"}}, Trusted: []string{dirURI}})
	res, err := f.Get(context.Background(), fileURI)
	require.NoError(t, err)
	assert.Equal(t, "x", readAll(t, res))
	assert.False(t, f.Allowed("file:///etc/passwd"))
}
