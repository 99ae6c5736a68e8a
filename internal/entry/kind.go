package entry

// Kind discriminates catalog entry types.
type Kind uint8

const (
	KindNull Kind = iota
	KindCatalog
	KindGroup
	KindSystem
	KindPublic
	KindURI
	KindRewriteSystem
	KindRewriteURI
	KindSystemSuffix
	KindURISuffix
	KindDelegateSystem
	KindDelegatePublic
	KindDelegateURI
	KindNextCatalog
	KindDoctype
	KindDocument
	KindEntity
	KindNotation
	KindLinktype
	KindSGMLDecl
	KindDTDDecl

	// KindCount is the number of defined kinds.
	KindCount int = iota
)

var kindNames = [...]string{
	KindNull:           "null",
	KindCatalog:        "catalog",
	KindGroup:          "group",
	KindSystem:         "system",
	KindPublic:         "public",
	KindURI:            "uri",
	KindRewriteSystem:  "rewriteSystem",
	KindRewriteURI:     "rewriteURI",
	KindSystemSuffix:   "systemSuffix",
	KindURISuffix:      "uriSuffix",
	KindDelegateSystem: "delegateSystem",
	KindDelegatePublic: "delegatePublic",
	KindDelegateURI:    "delegateURI",
	KindNextCatalog:    "nextCatalog",
	KindDoctype:        "doctype",
	KindDocument:       "document",
	KindEntity:         "entity",
	KindNotation:       "notation",
	KindLinktype:       "linktype",
	KindSGMLDecl:       "sgmldecl",
	KindDTDDecl:        "dtddecl",
}

// String returns the element name used for the kind in catalog markup.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindByName maps a catalog element local name to its kind.
func KindByName(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return KindNull, false
}
