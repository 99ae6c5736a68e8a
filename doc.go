// Package xmlcatalog resolves XML external identifiers, URI references and
// namespace names through OASIS XML Catalogs, backed by an optional on-disk
// cache of fetched resources.
//
// A Resolver is built from Options:
//
//	r, err := xmlcatalog.New(xmlcatalog.NewOptions().
//		WithCatalogFiles("/etc/xml/catalog.xml").
//		WithCacheDir("/var/cache/xmlcatalog"))
//
// Lookup methods only consult catalogs and return the mapped URI. Resolve
// methods also open the resource, populating the cache for identifiers no
// catalog maps.
package xmlcatalog
