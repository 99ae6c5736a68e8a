package query

import (
	"github.com/jacoelho/xmlcatalog/internal/catalog"
	"github.com/jacoelho/xmlcatalog/internal/entry"
)

// Query is one lookup kind. Identifiers are expected to be normalized by the
// caller: system identifiers and URIs with uri.Normalize, public identifiers
// with uri.NormalizePublicID and decoded from urn:publicid: form.
type Query interface {
	// Kind names the lookup for logs and metrics.
	Kind() string
	match(m *Matcher, doc *catalog.Document) Result
}

// System looks up a system identifier.
type System struct {
	SystemID string
}

// Kind implements Query.
func (System) Kind() string { return "system" }

func (q System) match(m *Matcher, doc *catalog.Document) Result {
	return m.system(doc, q.SystemID)
}

// Public looks up a public identifier, with an optional system identifier
// tried first.
type Public struct {
	SystemID string
	PublicID string
}

// Kind implements Query.
func (Public) Kind() string { return "public" }

func (q Public) match(m *Matcher, doc *catalog.Document) Result {
	return m.public(doc, q.SystemID, q.PublicID)
}

// URI looks up a URI reference. Nature and Purpose are optional.
type URI struct {
	URI     string
	Nature  string
	Purpose string
}

// Kind implements Query.
func (URI) Kind() string { return "uri" }

func (q URI) match(m *Matcher, doc *catalog.Document) Result {
	return m.uri(doc, q.URI, q.Nature, q.Purpose)
}

// Doctype looks up a document type by name after its external identifiers.
type Doctype struct {
	Name     string
	SystemID string
	PublicID string
}

// Kind implements Query.
func (Doctype) Kind() string { return "doctype" }

func (q Doctype) match(m *Matcher, doc *catalog.Document) Result {
	return m.named(doc, entry.KindDoctype, q.Name, q.SystemID, q.PublicID)
}

// Entity looks up an entity. Name may be empty.
type Entity struct {
	Name     string
	SystemID string
	PublicID string
}

// Kind implements Query.
func (Entity) Kind() string { return "entity" }

func (q Entity) match(m *Matcher, doc *catalog.Document) Result {
	return m.named(doc, entry.KindEntity, q.Name, q.SystemID, q.PublicID)
}

// Notation looks up a notation by name after its external identifiers.
type Notation struct {
	Name     string
	SystemID string
	PublicID string
}

// Kind implements Query.
func (Notation) Kind() string { return "notation" }

func (q Notation) match(m *Matcher, doc *catalog.Document) Result {
	return m.named(doc, entry.KindNotation, q.Name, q.SystemID, q.PublicID)
}

// Document looks up the default document.
type Document struct{}

// Kind implements Query.
func (Document) Kind() string { return "document" }

func (Document) match(m *Matcher, doc *catalog.Document) Result {
	return m.document(doc)
}
