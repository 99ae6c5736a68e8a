// Package fetch retrieves resources named by absolute URIs: http(s), file,
// data, classpath and jar archive members. Redirects are followed across
// schemes and every URI is checked against an access policy before any I/O.
package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	xcerrors "github.com/jacoelho/xmlcatalog/errors"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// Resource is the result of a fetch.
type Resource struct {
	// Body is nil for header-only requests.
	Body         io.ReadCloser
	Headers      http.Header
	LastModified time.Time
	Date         time.Time
	// URI is the final URI after redirects.
	URI         string
	ContentType string
	// Encoding is the canonical charset name, or "" when unknown.
	Encoding string
	ETag     string
	Status   int
}

// Close closes the body if there is one.
func (r *Resource) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Config holds configuration for the fetcher.
type Config struct {
	Client    *http.Client
	Classpath fs.FS
	Logger    *slog.Logger
	Access    Access
	UserAgent string

	// Trusted lists URI prefixes that bypass the access policy, such as the
	// resource cache directory.
	Trusted []string
}

// Fetcher retrieves resources.
type Fetcher struct {
	client    *http.Client
	classpath fs.FS
	logger    *slog.Logger
	access    *accessPolicy
	userAgent string
	trusted   []string
}

// New creates a fetcher. It fails when an access pattern is malformed.
func New(cfg Config) (*Fetcher, error) {
	policy, err := newAccessPolicy(cfg.Access)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Client
	if base == nil {
		base = http.DefaultClient
	}
	client := *base
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Fetcher{
		client:    &client,
		classpath: cfg.Classpath,
		logger:    logger,
		access:    policy,
		userAgent: cfg.UserAgent,
		trusted:   slices.Clone(cfg.Trusted),
	}, nil
}

// Allowed reports whether target passes the access policy.
func (f *Fetcher) Allowed(target string) bool {
	for _, prefix := range f.trusted {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return f.access.allows(target)
}

// Get fetches target with its body. The caller must close the resource.
func (f *Fetcher) Get(ctx context.Context, target string) (*Resource, error) {
	return f.fetch(ctx, target, true)
}

// Head fetches the headers of target.
func (f *Fetcher) Head(ctx context.Context, target string) (*Resource, error) {
	return f.fetch(ctx, target, false)
}

// Open fetches target and returns its body.
func (f *Fetcher) Open(ctx context.Context, target string) (io.ReadCloser, error) {
	res, err := f.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (f *Fetcher) fetch(ctx context.Context, target string, withBody bool) (*Resource, error) {
	if !uri.IsAbsolute(target) {
		return nil, xcerrors.New(xcerrors.ErrMalformedIdentifier, target, "uri is not absolute")
	}
	visited := make(map[string]struct{})
	current := target
	for {
		if !f.Allowed(current) {
			return nil, xcerrors.New(xcerrors.ErrAccessDenied, current, "access denied by policy")
		}
		visited[current] = struct{}{}

		res, err := f.dispatch(ctx, current, withBody)
		if err != nil {
			return nil, err
		}
		location := redirectTarget(res)
		if location == "" {
			return res, nil
		}
		_ = res.Close()

		next, err := uri.Resolve(current, location)
		if err != nil {
			return nil, xcerrors.Wrap(xcerrors.ErrMalformedIdentifier, location, "resolve redirect", err)
		}
		if _, seen := visited[next]; seen {
			return nil, xcerrors.Newf(xcerrors.ErrFetchFailed, target, "redirect loop at %s", next)
		}
		f.logger.Debug("following redirect",
			slog.String("from", current),
			slog.String("to", next))
		current = next
	}
}

func (f *Fetcher) dispatch(ctx context.Context, target string, withBody bool) (*Resource, error) {
	switch uri.Scheme(target) {
	case "http", "https":
		return f.fetchHTTP(ctx, target, withBody)
	case "file":
		return fetchFile(target, withBody)
	case "data":
		return fetchData(target, withBody)
	case "classpath":
		return f.fetchClasspath(target, withBody)
	case "jar":
		return f.fetchJar(ctx, target, withBody)
	default:
		return nil, xcerrors.Newf(xcerrors.ErrFetchFailed, target, "unsupported scheme %q", uri.Scheme(target))
	}
}

func redirectTarget(res *Resource) string {
	switch res.Status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return strings.TrimSpace(res.Headers.Get("Location"))
	}
	return ""
}

// splitContentType returns the media type without parameters and the
// canonical name of its charset parameter.
func splitContentType(value string) (string, string) {
	if value == "" {
		return "", ""
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(value, ";", 2)[0]), ""
	}
	return mediaType, canonicalCharset(params["charset"])
}

func canonicalCharset(label string) string {
	if label == "" {
		return ""
	}
	if _, name := charset.Lookup(label); name != "" {
		return name
	}
	return strings.ToLower(label)
}

// notFound marks a missing resource so callers can test for fs.ErrNotExist.
func notFound(target string, cause error) error {
	err := fs.ErrNotExist
	if cause != nil {
		err = fmt.Errorf("%w: %w", fs.ErrNotExist, cause)
	}
	return xcerrors.Wrap(xcerrors.ErrFetchFailed, target, "resource not found", err)
}
