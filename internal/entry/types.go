package entry

import (
	"fmt"

	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// System maps a system identifier to a URI.
type System struct {
	header
	SystemID string
	URI      string
}

// Kind implements Entry.
func (*System) Kind() Kind { return KindSystem }

// NewSystem builds a system entry; uri is resolved against baseURI.
func NewSystem(baseURI, id, systemID, ref string) (*System, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("system %q: %w", systemID, err)
	}
	return &System{header: h, SystemID: uri.Normalize(systemID), URI: resolved}, nil
}

// Public maps a public identifier to a URI.
type Public struct {
	header
	PublicID     string
	URI          string
	PreferPublic bool
}

// Kind implements Entry.
func (*Public) Kind() Kind { return KindPublic }

// NewPublic builds a public entry. The public identifier is normalized.
func NewPublic(baseURI, id, publicID, ref string, preferPublic bool) (*Public, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("public %q: %w", publicID, err)
	}
	return &Public{header: h, PublicID: uri.NormalizePublicID(publicID), URI: resolved, PreferPublic: preferPublic}, nil
}

// URI maps a URI reference, optionally qualified by nature and purpose, to a URI.
type URI struct {
	header
	Name    string
	URI     string
	Nature  string
	Purpose string
}

// Kind implements Entry.
func (*URI) Kind() Kind { return KindURI }

// NewURI builds a uri entry. Empty nature and purpose match any query.
func NewURI(baseURI, id, name, ref, nature, purpose string) (*URI, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("uri %q: %w", name, err)
	}
	return &URI{header: h, Name: uri.Normalize(name), URI: resolved, Nature: nature, Purpose: purpose}, nil
}

// Rewrite replaces a matching identifier prefix with RewritePrefix.
type Rewrite struct {
	header
	kind          Kind
	StartString   string
	RewritePrefix string
}

// Kind implements Entry.
func (r *Rewrite) Kind() Kind { return r.kind }

// NewRewriteSystem builds a rewriteSystem entry.
func NewRewriteSystem(baseURI, id, startString, rewritePrefix string) (*Rewrite, error) {
	return newRewrite(KindRewriteSystem, baseURI, id, startString, rewritePrefix)
}

// NewRewriteURI builds a rewriteURI entry.
func NewRewriteURI(baseURI, id, startString, rewritePrefix string) (*Rewrite, error) {
	return newRewrite(KindRewriteURI, baseURI, id, startString, rewritePrefix)
}

func newRewrite(kind Kind, baseURI, id, startString, rewritePrefix string) (*Rewrite, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(rewritePrefix)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, startString, err)
	}
	return &Rewrite{header: h, kind: kind, StartString: uri.Normalize(startString), RewritePrefix: resolved}, nil
}

// Suffix maps identifiers ending in Suffix to URI.
type Suffix struct {
	header
	kind   Kind
	Suffix string
	URI    string
}

// Kind implements Entry.
func (s *Suffix) Kind() Kind { return s.kind }

// NewSystemSuffix builds a systemSuffix entry.
func NewSystemSuffix(baseURI, id, suffix, ref string) (*Suffix, error) {
	return newSuffix(KindSystemSuffix, baseURI, id, suffix, ref)
}

// NewURISuffix builds a uriSuffix entry.
func NewURISuffix(baseURI, id, suffix, ref string) (*Suffix, error) {
	return newSuffix(KindURISuffix, baseURI, id, suffix, ref)
}

func newSuffix(kind Kind, baseURI, id, suffix, ref string) (*Suffix, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, suffix, err)
	}
	return &Suffix{header: h, kind: kind, Suffix: uri.Normalize(suffix), URI: resolved}, nil
}

// Delegate sends matching lookups to another catalog.
type Delegate struct {
	header
	kind         Kind
	StartString  string
	CatalogURI   string
	PreferPublic bool
}

// Kind implements Entry.
func (d *Delegate) Kind() Kind { return d.kind }

// NewDelegateSystem builds a delegateSystem entry.
func NewDelegateSystem(baseURI, id, startString, catalog string) (*Delegate, error) {
	return newDelegate(KindDelegateSystem, baseURI, id, uri.Normalize(startString), catalog, false)
}

// NewDelegatePublic builds a delegatePublic entry.
func NewDelegatePublic(baseURI, id, startString, catalog string, preferPublic bool) (*Delegate, error) {
	return newDelegate(KindDelegatePublic, baseURI, id, uri.NormalizePublicID(startString), catalog, preferPublic)
}

// NewDelegateURI builds a delegateURI entry.
func NewDelegateURI(baseURI, id, startString, catalog string) (*Delegate, error) {
	return newDelegate(KindDelegateURI, baseURI, id, uri.Normalize(startString), catalog, false)
}

func newDelegate(kind Kind, baseURI, id, startString, catalog string, preferPublic bool) (*Delegate, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(catalog)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, startString, err)
	}
	return &Delegate{header: h, kind: kind, StartString: startString, CatalogURI: resolved, PreferPublic: preferPublic}, nil
}

// NextCatalog chains another catalog after the current one.
type NextCatalog struct {
	header
	CatalogURI string
}

// Kind implements Entry.
func (*NextCatalog) Kind() Kind { return KindNextCatalog }

// NewNextCatalog builds a nextCatalog entry.
func NewNextCatalog(baseURI, id, catalog string) (*NextCatalog, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(catalog)
	if err != nil {
		return nil, fmt.Errorf("nextCatalog: %w", err)
	}
	return &NextCatalog{header: h, CatalogURI: resolved}, nil
}

// Named covers the TR9401 entries keyed by a name or public identifier:
// doctype, document, entity, notation, linktype, sgmldecl and dtddecl.
type Named struct {
	header
	kind         Kind
	Name         string
	URI          string
	PreferPublic bool
}

// Kind implements Entry.
func (n *Named) Kind() Kind { return n.kind }

// NewNamed builds one of the name keyed TR9401 entries. For dtddecl the name
// is a public identifier and is normalized as such.
func NewNamed(kind Kind, baseURI, id, name, ref string, preferPublic bool) (*Named, error) {
	switch kind {
	case KindDoctype, KindDocument, KindEntity, KindNotation, KindLinktype, KindSGMLDecl:
	case KindDTDDecl:
		name = uri.NormalizePublicID(name)
	default:
		return nil, fmt.Errorf("kind %s is not a named entry", kind)
	}
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, name, err)
	}
	return &Named{header: h, kind: kind, Name: name, URI: resolved, PreferPublic: preferPublic}, nil
}

// Scope is a structural catalog or group element.
type Scope struct {
	header
	kind         Kind
	PreferPublic bool
}

// Kind implements Entry.
func (s *Scope) Kind() Kind { return s.kind }

// NewCatalog builds the document root entry.
func NewCatalog(baseURI, id string, preferPublic bool) (*Scope, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	return &Scope{header: h, kind: KindCatalog, PreferPublic: preferPublic}, nil
}

// NewGroup builds a group entry.
func NewGroup(baseURI, id string, preferPublic bool) (*Scope, error) {
	h, err := newHeader(baseURI, id)
	if err != nil {
		return nil, err
	}
	return &Scope{header: h, kind: KindGroup, PreferPublic: preferPublic}, nil
}

// Null stands in for unrecognized or invalid markup. Queries ignore it.
type Null struct {
	header
	Element string
}

// Kind implements Entry.
func (*Null) Kind() Kind { return KindNull }

// NewNull builds a null entry recording the offending element name.
func NewNull(baseURI, element string) (*Null, error) {
	h, err := newHeader(baseURI, "")
	if err != nil {
		return nil, err
	}
	return &Null{header: h, Element: element}, nil
}
