package xmlcatalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jacoelho/xmlcatalog/internal/cache"
	"github.com/jacoelho/xmlcatalog/internal/rddl"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// Resource is a resolved resource. The caller must close it.
type Resource struct {
	Body io.ReadCloser
	// URI is where the bytes were read from, after catalog mapping and
	// redirects.
	URI string
	// OriginalURI is the identifier that was resolved.
	OriginalURI string
	ContentType string
	Encoding    string
}

// Close closes the body.
func (r *Resource) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// ResolveSystem resolves an external identifier and opens the result. When
// no catalog entry matches, an absolute system identifier is cached (if the
// cache policy allows) or fetched directly. A nil resource and nil error
// mean nothing could be resolved.
func (r *Resolver) ResolveSystem(ctx context.Context, systemID, publicID string) (*Resource, error) {
	if resolved, ok := r.manager.LookupPublic(systemID, publicID); ok {
		return r.open(ctx, resolved, firstNonEmpty(systemID, publicID))
	}
	return r.fallback(ctx, uri.Normalize(systemID), func(ctx context.Context, target string) (*cache.Entry, error) {
		return r.cache.StoreSystem(ctx, target, uri.NormalizePublicID(publicID))
	})
}

// ResolveURI resolves a URI reference, such as an XInclude href or a
// stylesheet import, against the catalogs. A relative href that no entry
// matches literally is made absolute against base and looked up again.
func (r *Resolver) ResolveURI(ctx context.Context, href, base string) (*Resource, error) {
	if resolved, ok := r.manager.LookupURI(href); ok {
		return r.open(ctx, resolved, href)
	}
	abs, err := absolutize(href, base)
	if err != nil {
		return nil, err
	}
	if abs != href {
		if resolved, ok := r.manager.LookupURI(abs); ok {
			return r.open(ctx, resolved, abs)
		}
	}
	return r.fallback(ctx, abs, func(ctx context.Context, target string) (*cache.Entry, error) {
		return r.cache.StoreURI(ctx, target, "", "")
	})
}

// ResolveNamespace resolves a namespace name to a resource of the given
// RDDL nature and purpose. With RDDL parsing enabled, an unmatched namespace
// document is fetched and its rddl:resource links are consulted.
func (r *Resolver) ResolveNamespace(ctx context.Context, ns, nature, purpose string) (*Resource, error) {
	if resolved, ok := r.manager.LookupNamespaceURI(ns, nature, purpose); ok {
		return r.open(ctx, resolved, ns)
	}
	if nature == "" && purpose == "" {
		return r.ResolveURI(ctx, ns, "")
	}
	if !r.parseRDDL || !uri.IsAbsolute(ns) {
		return nil, nil
	}

	href, err := r.sniffRDDL(ctx, ns, nature, purpose)
	if err != nil || href == "" {
		return nil, err
	}
	if resolved, ok := r.manager.LookupURI(href); ok {
		return r.open(ctx, resolved, ns)
	}
	return r.fallback(ctx, href, func(ctx context.Context, target string) (*cache.Entry, error) {
		return r.cache.StoreURI(ctx, target, nature, purpose)
	})
}

// ResolveEntity resolves an external entity. name may be empty. A relative
// system identifier that no entry matches literally is made absolute against
// base and looked up again.
func (r *Resolver) ResolveEntity(ctx context.Context, name, publicID, systemID, base string) (*Resource, error) {
	if resolved, ok := r.manager.LookupEntity(name, systemID, publicID); ok {
		return r.open(ctx, resolved, firstNonEmpty(systemID, publicID, name))
	}
	if systemID == "" {
		return nil, nil
	}
	abs, err := absolutize(uri.Normalize(systemID), base)
	if err != nil {
		return nil, err
	}
	if abs != systemID {
		if resolved, ok := r.manager.LookupEntity(name, abs, publicID); ok {
			return r.open(ctx, resolved, abs)
		}
	}
	return r.fallback(ctx, abs, func(ctx context.Context, target string) (*cache.Entry, error) {
		return r.cache.StoreSystem(ctx, target, uri.NormalizePublicID(publicID))
	})
}

type storeFunc func(ctx context.Context, target string) (*cache.Entry, error)

// fallback handles an identifier no catalog entry matched: cache it when
// the policy allows, otherwise fetch it directly. A failed cache store falls
// through to the direct fetch.
func (r *Resolver) fallback(ctx context.Context, target string, store storeFunc) (*Resource, error) {
	if target == "" || !uri.IsAbsolute(target) || strings.EqualFold(uri.Scheme(target), "urn") {
		return nil, nil
	}
	if r.cache != nil && r.cache.Cacheable(target) && r.fetcher.Allowed(target) {
		rec, err := store(ctx, target)
		if err == nil {
			return r.open(ctx, rec.LocalURI, target)
		}
		r.logger.Warn("cache store failed",
			slog.String("uri", target),
			slog.String("error", err.Error()))
	}
	if !r.alwaysResolve {
		return nil, nil
	}
	return r.open(ctx, target, target)
}

func (r *Resolver) open(ctx context.Context, resolved, original string) (*Resource, error) {
	res, err := r.fetcher.Get(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", original, err)
	}
	return &Resource{
		Body:        res.Body,
		URI:         res.URI,
		OriginalURI: original,
		ContentType: res.ContentType,
		Encoding:    res.Encoding,
	}, nil
}

func (r *Resolver) sniffRDDL(ctx context.Context, ns, nature, purpose string) (href string, err error) {
	res, err := r.fetcher.Get(ctx, ns)
	if err != nil {
		r.logger.Debug("rddl document unavailable",
			slog.String("namespace", ns),
			slog.String("error", err.Error()))
		return "", nil
	}
	defer func() {
		if closeErr := res.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rddl document %s: %w", ns, closeErr)
		}
	}()
	resources, err := rddl.Parse(res.Body, res.URI)
	if err != nil {
		r.logger.Debug("rddl document unreadable",
			slog.String("namespace", ns),
			slog.String("error", err.Error()))
		return "", nil
	}
	href, _ = rddl.Find(resources, nature, purpose)
	return href, nil
}

func absolutize(ref, base string) (string, error) {
	if ref == "" || uri.IsAbsolute(ref) || base == "" {
		return ref, nil
	}
	abs, err := uri.Resolve(base, ref)
	if err != nil {
		return "", fmt.Errorf("resolve %s against %s: %w", ref, base, err)
	}
	return abs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
