package manager

import (
	"log/slog"

	"github.com/jacoelho/xmlcatalog/internal/query"
	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// externalID holds a normalized system/public identifier pair.
type externalID struct {
	systemID string
	publicID string
}

// normalizeExternal normalizes both identifiers and unwraps urn:publicid:
// forms. A urn:publicid: system identifier becomes the public identifier
// unless a different public identifier was supplied, in which case the
// supplied one wins.
func (m *Manager) normalizeExternal(systemID, publicID string) externalID {
	id := externalID{
		systemID: uri.Normalize(systemID),
		publicID: uri.NormalizePublicID(publicID),
	}
	if decoded, ok := uri.DecodeURN(id.systemID); ok {
		if id.publicID != "" && id.publicID != decoded {
			m.logger.Warn("urn:publicid system identifier differs from public identifier",
				slog.String("systemId", systemID),
				slog.String("publicId", publicID))
		} else {
			id.publicID = decoded
		}
		id.systemID = ""
	}
	if decoded, ok := uri.DecodeURN(id.publicID); ok {
		id.publicID = decoded
	}
	return id
}

// LookupSystem resolves a system identifier.
func (m *Manager) LookupSystem(systemID string) (string, bool) {
	id := m.normalizeExternal(systemID, "")
	if id.systemID == "" {
		if id.publicID == "" {
			return "", false
		}
		return m.Search(query.Public{PublicID: id.publicID})
	}
	return m.Search(query.System{SystemID: id.systemID})
}

// LookupPublic resolves a public identifier, trying systemID first when given.
func (m *Manager) LookupPublic(systemID, publicID string) (string, bool) {
	id := m.normalizeExternal(systemID, publicID)
	if id.systemID == "" && id.publicID == "" {
		return "", false
	}
	return m.Search(query.Public{SystemID: id.systemID, PublicID: id.publicID})
}

// LookupURI resolves a URI reference. A urn:publicid: URI is looked up as a
// public identifier.
func (m *Manager) LookupURI(ref string) (string, bool) {
	return m.LookupNamespaceURI(ref, "", "")
}

// LookupNamespaceURI resolves a namespace URI qualified by RDDL nature and
// purpose. Empty nature or purpose match any entry.
func (m *Manager) LookupNamespaceURI(ref, nature, purpose string) (string, bool) {
	if decoded, ok := uri.DecodeURN(ref); ok {
		return m.Search(query.Public{PublicID: decoded})
	}
	ref = uri.Normalize(ref)
	if ref == "" {
		return "", false
	}
	return m.Search(query.URI{URI: ref, Nature: nature, Purpose: purpose})
}

// LookupDoctype resolves a document type declaration.
func (m *Manager) LookupDoctype(name, systemID, publicID string) (string, bool) {
	id := m.normalizeExternal(systemID, publicID)
	return m.Search(query.Doctype{Name: name, SystemID: id.systemID, PublicID: id.publicID})
}

// LookupEntity resolves an external entity. name may be empty.
func (m *Manager) LookupEntity(name, systemID, publicID string) (string, bool) {
	id := m.normalizeExternal(systemID, publicID)
	if name == "" && id.systemID == "" && id.publicID == "" {
		return "", false
	}
	return m.Search(query.Entity{Name: name, SystemID: id.systemID, PublicID: id.publicID})
}

// LookupNotation resolves a notation declaration.
func (m *Manager) LookupNotation(name, systemID, publicID string) (string, bool) {
	id := m.normalizeExternal(systemID, publicID)
	return m.Search(query.Notation{Name: name, SystemID: id.systemID, PublicID: id.publicID})
}

// LookupDocument returns the default document URI.
func (m *Manager) LookupDocument() (string, bool) {
	return m.Search(query.Document{})
}
