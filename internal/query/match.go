package query

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jacoelho/xmlcatalog/internal/catalog"
	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// Policy holds the comparison rules shared by every matcher.
type Policy struct {
	// MergeHTTPS compares http: and https: identifiers as equal.
	MergeHTTPS bool
	// FoldCase compares system identifiers case-insensitively.
	FoldCase bool
	// URIForSystem retries an unmatched system identifier as a uri lookup.
	URIForSystem bool
}

// Acceptor lets a catalog source veto an exact match. The resource cache
// uses it to reject entries whose cached copy has gone stale.
type Acceptor interface {
	Accept(doc *catalog.Document, e entry.Entry) bool
}

// Matcher runs single-document matches under a Policy.
type Matcher struct {
	policy   Policy
	acceptor Acceptor
}

// NewMatcher returns a matcher. acceptor may be nil.
func NewMatcher(policy Policy, acceptor Acceptor) *Matcher {
	return &Matcher{policy: policy, acceptor: acceptor}
}

// Match runs q against the single document doc.
func (m *Matcher) Match(doc *catalog.Document, q Query) Result {
	if doc == nil || q == nil {
		return NotFound{}
	}
	return q.match(m, doc)
}

func (m *Matcher) accept(doc *catalog.Document, e entry.Entry) bool {
	return m.acceptor == nil || m.acceptor.Accept(doc, e)
}

func (m *Matcher) compareSystem(s string) string {
	s = uri.ForComparison(s, m.policy.MergeHTTPS)
	if m.policy.FoldCase {
		s = strings.ToLower(s)
	}
	return s
}

func (m *Matcher) compareURI(s string) string {
	return uri.ForComparison(s, m.policy.MergeHTTPS)
}

func (m *Matcher) system(doc *catalog.Document, systemID string) Result {
	if systemID == "" {
		return NotFound{}
	}
	id := m.compareSystem(systemID)
	for e := range catalog.Typed[*entry.System](doc, entry.KindSystem) {
		if m.compareSystem(e.SystemID) == id && m.accept(doc, e) {
			return Found{URI: e.URI}
		}
	}
	if r, ok := m.rewrite(doc, entry.KindRewriteSystem, systemID, id, m.compareSystem); ok {
		return r
	}
	if r, ok := m.suffix(doc, entry.KindSystemSuffix, id, m.compareSystem); ok {
		return r
	}
	if r, ok := delegates(doc, entry.KindDelegateSystem, id, m.compareSystem, nil); ok {
		return r
	}
	if m.policy.URIForSystem {
		return m.uri(doc, systemID, "", "")
	}
	return NotFound{}
}

func (m *Matcher) uri(doc *catalog.Document, ref, nature, purpose string) Result {
	if ref == "" {
		return NotFound{}
	}
	id := m.compareURI(ref)
	for e := range catalog.Typed[*entry.URI](doc, entry.KindURI) {
		if m.compareURI(e.Name) != id {
			continue
		}
		if !qualifierMatches(e.Nature, nature) || !qualifierMatches(e.Purpose, purpose) {
			continue
		}
		if m.accept(doc, e) {
			return Found{URI: e.URI}
		}
	}
	if r, ok := m.rewrite(doc, entry.KindRewriteURI, ref, id, m.compareURI); ok {
		return r
	}
	if r, ok := m.suffix(doc, entry.KindURISuffix, id, m.compareURI); ok {
		return r
	}
	if r, ok := delegates(doc, entry.KindDelegateURI, id, m.compareURI, nil); ok {
		return r
	}
	return NotFound{}
}

func (m *Matcher) public(doc *catalog.Document, systemID, publicID string) Result {
	if systemID != "" {
		if r := m.system(doc, systemID); !isNotFound(r) {
			return r
		}
	}
	if publicID == "" {
		return NotFound{}
	}
	eligible := func(preferPublic bool) bool { return preferPublic || systemID == "" }
	for e := range catalog.Typed[*entry.Public](doc, entry.KindPublic) {
		if e.PublicID == publicID && eligible(e.PreferPublic) && m.accept(doc, e) {
			return Found{URI: e.URI}
		}
	}
	gate := func(e *entry.Delegate) bool { return eligible(e.PreferPublic) }
	if r, ok := delegates(doc, entry.KindDelegatePublic, publicID, identity, gate); ok {
		return r
	}
	return NotFound{}
}

func (m *Matcher) named(doc *catalog.Document, kind entry.Kind, name, systemID, publicID string) Result {
	if systemID != "" || publicID != "" {
		if r := m.public(doc, systemID, publicID); !isNotFound(r) {
			return r
		}
	}
	if name == "" {
		return NotFound{}
	}
	for e := range catalog.Typed[*entry.Named](doc, kind) {
		if e.Name == name && (e.PreferPublic || systemID == "") {
			return Found{URI: e.URI}
		}
	}
	return NotFound{}
}

func (m *Matcher) document(doc *catalog.Document) Result {
	for e := range catalog.Typed[*entry.Named](doc, entry.KindDocument) {
		return Found{URI: e.URI}
	}
	return NotFound{}
}

// rewrite applies the rewrite entry with the longest start string that
// prefixes id. original is the identifier before comparison folding; the
// unmatched tail is taken from it so the rewritten URI keeps its case.
func (m *Matcher) rewrite(doc *catalog.Document, kind entry.Kind, original, id string, fold func(string) string) (Result, bool) {
	var (
		best      *entry.Rewrite
		bestStart string
	)
	for e := range catalog.Typed[*entry.Rewrite](doc, kind) {
		start := fold(e.StartString)
		if start == "" || !strings.HasPrefix(id, start) {
			continue
		}
		if best == nil || len(start) > len(bestStart) {
			best, bestStart = e, start
		}
	}
	if best == nil {
		return nil, false
	}
	return Found{URI: best.RewritePrefix + tail(original, utf8.RuneCountInString(id[len(bestStart):]))}, true
}

// tail returns the last n runes of s. Case folding maps rune to rune but not
// byte to byte, so the unmatched part is measured in runes.
func tail(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

func (m *Matcher) suffix(doc *catalog.Document, kind entry.Kind, id string, fold func(string) string) (Result, bool) {
	var (
		best       *entry.Suffix
		bestSuffix string
	)
	for e := range catalog.Typed[*entry.Suffix](doc, kind) {
		suffix := fold(e.Suffix)
		if suffix == "" || !strings.HasSuffix(id, suffix) {
			continue
		}
		if best == nil || len(suffix) > len(bestSuffix) {
			best, bestSuffix = e, suffix
		}
	}
	if best == nil {
		return nil, false
	}
	return Found{URI: best.URI}, true
}

// delegates collects the delegate entries whose start string prefixes id and
// orders their catalogs longest prefix first. Duplicate catalogs keep their
// first (longest) position.
func delegates(doc *catalog.Document, kind entry.Kind, id string, fold func(string) string, eligible func(*entry.Delegate) bool) (Result, bool) {
	type candidate struct {
		start   string
		catalog string
	}
	var candidates []candidate
	for e := range catalog.Typed[*entry.Delegate](doc, kind) {
		start := fold(e.StartString)
		if start == "" || !strings.HasPrefix(id, start) {
			continue
		}
		if eligible != nil && !eligible(e) {
			continue
		}
		candidates = append(candidates, candidate{start: start, catalog: e.CatalogURI})
	}
	if len(candidates) == 0 {
		return nil, false
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(len(b.start), len(a.start))
	})
	catalogs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !slices.Contains(catalogs, c.catalog) {
			catalogs = append(catalogs, c.catalog)
		}
	}
	return Delegate{Catalogs: catalogs}, true
}

// qualifierMatches compares a uri entry's nature or purpose with the query's.
// An unset value on either side matches anything.
func qualifierMatches(entryValue, queryValue string) bool {
	return entryValue == "" || queryValue == "" || entryValue == queryValue
}

func isNotFound(r Result) bool {
	_, ok := r.(NotFound)
	return ok
}

func identity(s string) string { return s }
