// Package xml provides the minimal element tree used to read and write
// catalog, cache descriptor and cache control documents.
package xml

// XMLNamespace is the namespace bound to the xml prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// Document exposes the root element of a parsed document.
type Document interface {
	DocumentElement() Element
}

// Element is the read-only element view consumed by the loaders.
type Element interface {
	NamespaceURI() string
	LocalName() string
	GetAttribute(name string) string
	GetAttributeNS(ns, local string) string
	HasAttribute(name string) bool
	Attributes() []Attr
	Children() []Element
	Parent() Element // Parent returns the parent element; nil for the root.
	TextContent() string
}

// Attr exposes attribute name, namespace, and value.
type Attr interface {
	NamespaceURI() string
	LocalName() string
	Value() string
}
