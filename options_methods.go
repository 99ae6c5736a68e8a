package xmlcatalog

import (
	"io/fs"
	"log/slog"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacoelho/xmlcatalog/config"
)

// NewOptions returns a default, valid options value: no catalogs, prefer
// public, http and https merged, system identifiers retried as URIs, no
// cache.
func NewOptions() Options {
	return Options{}
}

// Validate validates option values.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithCatalogFiles sets the catalog search path. Entries are file paths or
// absolute URIs; relative paths are made absolute against the working
// directory.
func (o Options) WithCatalogFiles(files ...string) Options {
	o.catalogFiles = slices.Clone(files)
	return o
}

// WithPreferPublic sets the prefer value used by catalogs that do not
// declare one (default true).
func (o Options) WithPreferPublic(value bool) Options {
	o.preferPublic = boolOption{value: value, set: true}
	return o
}

// WithCacheDir sets the resource cache directory and enables the cache.
func (o Options) WithCacheDir(dir string) Options {
	o.cacheDir = dir
	if !o.cacheEnabled.set {
		o.cacheEnabled = boolOption{value: dir != "", set: true}
	}
	return o
}

// WithCacheEnabled turns the resource cache on or off.
func (o Options) WithCacheEnabled(value bool) Options {
	o.cacheEnabled = boolOption{value: value, set: true}
	return o
}

// WithMergeHTTPS controls whether http: and https: identifiers compare equal
// (default true).
func (o Options) WithMergeHTTPS(value bool) Options {
	o.mergeHTTPS = boolOption{value: value, set: true}
	return o
}

// WithURIForSystem controls whether unmatched system identifiers are retried
// against uri entries (default true).
func (o Options) WithURIForSystem(value bool) Options {
	o.uriForSystem = boolOption{value: value, set: true}
	return o
}

// WithCaseInsensitiveFS overrides the host filesystem case heuristic used
// when comparing file: identifiers.
func (o Options) WithCaseInsensitiveFS(value bool) Options {
	o.caseInsensitive = boolOption{value: value, set: true}
	return o
}

// WithAlwaysResolve controls whether Resolve operations fetch the original
// identifier when no catalog entry matches (default true).
func (o Options) WithAlwaysResolve(value bool) Options {
	o.alwaysResolve = boolOption{value: value, set: true}
	return o
}

// WithAccess sets the allow and deny URI patterns checked before every
// fetch. Deny wins; an empty allow list allows everything not denied.
func (o Options) WithAccess(allow, deny []string) Options {
	o.accessAllow = slices.Clone(allow)
	o.accessDeny = slices.Clone(deny)
	return o
}

// WithOffline disables cache staleness probes.
func (o Options) WithOffline(value bool) Options {
	o.offline = value
	return o
}

// WithParseRDDL enables RDDL sniffing of namespace documents in
// ResolveNamespace.
func (o Options) WithParseRDDL(value bool) Options {
	o.parseRDDL = value
	return o
}

// WithClasspath sets the filesystem serving classpath: URIs.
func (o Options) WithClasspath(fsys fs.FS) Options {
	o.classpath = fsys
	return o
}

// WithHTTPClient sets the client used for http and https fetches.
func (o Options) WithHTTPClient(client *http.Client) Options {
	o.httpClient = client
	return o
}

// WithUserAgent sets the User-Agent header of http requests.
func (o Options) WithUserAgent(value string) Options {
	o.userAgent = value
	return o
}

// WithLogger sets the structured logger (default slog.Default()).
func (o Options) WithLogger(logger *slog.Logger) Options {
	o.logger = logger
	return o
}

// WithMetricsRegisterer registers lookup and cache counters on reg.
func (o Options) WithMetricsRegisterer(reg prometheus.Registerer) Options {
	o.registerer = reg
	return o
}

// WithConfig applies a loaded configuration file.
func (o Options) WithConfig(cfg *config.Config) Options {
	if cfg == nil {
		return o
	}
	o = o.WithCatalogFiles(cfg.Catalogs...).
		WithPreferPublic(cfg.Prefer != config.PreferSystem).
		WithMergeHTTPS(cfg.MergeHTTPS).
		WithURIForSystem(cfg.URIForSystem).
		WithAlwaysResolve(cfg.AlwaysResolve).
		WithAccess(cfg.Access.Allow, cfg.Access.Deny).
		WithOffline(cfg.Offline).
		WithParseRDDL(cfg.ParseRDDL)
	o.cacheDir = cfg.Cache.Dir
	o.cacheEnabled = boolOption{value: cfg.Cache.Enabled, set: true}
	return o
}
