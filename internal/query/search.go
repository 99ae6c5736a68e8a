package query

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/jacoelho/xmlcatalog/internal/catalog"
	"github.com/jacoelho/xmlcatalog/internal/entry"
)

// Source supplies parsed catalog documents by absolute URI. A catalog that
// cannot be loaded is returned as an empty document.
type Source interface {
	Load(catalogURI string) *catalog.Document
}

// Searcher drives a query across a list of catalogs.
type Searcher struct {
	source  Source
	matcher *Matcher
	logger  *slog.Logger
}

// NewSearcher returns a searcher reading documents from source.
func NewSearcher(source Source, matcher *Matcher, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{source: source, matcher: matcher, logger: logger}
}

// Search runs q over catalogs in order and returns the first resolved URI.
//
// A document without a match schedules its nextCatalog entries ahead of the
// catalogs still pending. A delegation discards the pending list and restarts
// q against the delegated catalogs. Each catalog is consulted at most once per
// search, which also bounds nextCatalog and delegation cycles.
func (s *Searcher) Search(catalogs []string, q Query) (string, bool) {
	pending := slices.Clone(catalogs)
	visited := make(map[string]struct{}, len(pending))
	for len(pending) > 0 {
		catalogURI := pending[0]
		pending = pending[1:]
		if _, seen := visited[catalogURI]; seen {
			continue
		}
		visited[catalogURI] = struct{}{}

		doc := s.source.Load(catalogURI)
		switch r := s.matcher.Match(doc, q).(type) {
		case Found:
			return r.URI, true
		case Delegate:
			s.logger.Debug("delegating lookup",
				slog.String("kind", q.Kind()),
				slog.String("catalog", catalogURI),
				slog.String("delegates", strings.Join(r.Catalogs, " ")))
			pending = slices.Clone(r.Catalogs)
		default:
			var next []string
			for e := range catalog.Typed[*entry.NextCatalog](doc, entry.KindNextCatalog) {
				next = append(next, e.CatalogURI)
			}
			if len(next) > 0 {
				pending = append(next, pending...)
			}
		}
	}
	return "", false
}
