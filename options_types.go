package xmlcatalog

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacoelho/xmlcatalog/internal/fetch"
	"github.com/jacoelho/xmlcatalog/internal/query"
)

type boolOption struct {
	value bool
	set   bool
}

func (o boolOption) resolved(def bool) bool {
	if !o.set {
		return def
	}
	return o.value
}

// Options configures a Resolver. The zero value is not meant to be used;
// start from NewOptions. Options values are immutable: every With method
// returns a modified copy.
type Options struct {
	classpath  fs.FS
	httpClient *http.Client
	logger     *slog.Logger
	registerer prometheus.Registerer

	catalogFiles []string
	accessAllow  []string
	accessDeny   []string
	cacheDir     string
	userAgent    string

	preferPublic    boolOption
	cacheEnabled    boolOption
	mergeHTTPS      boolOption
	uriForSystem    boolOption
	caseInsensitive boolOption
	alwaysResolve   boolOption
	offline         bool
	parseRDDL       bool
}

type resolvedOptions struct {
	classpath     fs.FS
	httpClient    *http.Client
	logger        *slog.Logger
	registerer    prometheus.Registerer
	catalogs      []string
	access        fetch.Access
	cacheDir      string
	userAgent     string
	policy        query.Policy
	preferPublic  bool
	cacheEnabled  bool
	alwaysResolve bool
	offline       bool
	parseRDDL     bool
}
