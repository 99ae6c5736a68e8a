package xmlcatalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jacoelho/xmlcatalog/internal/fetch"
	"github.com/jacoelho/xmlcatalog/internal/query"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

func (o Options) withDefaults() (resolvedOptions, error) {
	catalogs := make([]string, 0, len(o.catalogFiles))
	for i, file := range o.catalogFiles {
		file = strings.TrimSpace(file)
		if file == "" {
			return resolvedOptions{}, fmt.Errorf("catalog file %d is empty", i)
		}
		catalogURI, err := catalogURI(file)
		if err != nil {
			return resolvedOptions{}, err
		}
		catalogs = append(catalogs, catalogURI)
	}

	cacheEnabled := o.cacheEnabled.resolved(false)
	if cacheEnabled && o.cacheDir == "" {
		return resolvedOptions{}, fmt.Errorf("cache enabled without a cache directory")
	}
	for _, pattern := range append(append([]string(nil), o.accessAllow...), o.accessDeny...) {
		if !doublestar.ValidatePattern(pattern) {
			return resolvedOptions{}, fmt.Errorf("invalid access pattern %q", pattern)
		}
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	return resolvedOptions{
		classpath:  o.classpath,
		httpClient: o.httpClient,
		logger:     logger,
		registerer: o.registerer,
		catalogs:   catalogs,
		access:     fetch.Access{Allow: o.accessAllow, Deny: o.accessDeny},
		cacheDir:   o.cacheDir,
		userAgent:  o.userAgent,
		policy: query.Policy{
			MergeHTTPS:   o.mergeHTTPS.resolved(true),
			FoldCase:     o.caseInsensitive.resolved(uri.CaseInsensitiveFS()),
			URIForSystem: o.uriForSystem.resolved(true),
		},
		preferPublic:  o.preferPublic.resolved(true),
		cacheEnabled:  cacheEnabled,
		alwaysResolve: o.alwaysResolve.resolved(true),
		offline:       o.offline,
		parseRDDL:     o.parseRDDL,
	}, nil
}

// catalogURI turns a catalog file path into an absolute URI. Values that
// already carry a scheme are kept; a Windows drive letter is not a scheme.
func catalogURI(file string) (string, error) {
	if uri.IsAbsolute(file) && !isDrivePath(file) {
		return file, nil
	}
	u, err := uri.FileURI(file)
	if err != nil {
		return "", fmt.Errorf("catalog file %s: %w", file, err)
	}
	return u, nil
}

func isDrivePath(s string) bool {
	return len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') &&
		(s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z')
}
