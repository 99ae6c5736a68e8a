// Package query implements the per-kind catalog matchers and the search
// driver that walks a catalog list following nextCatalog and delegation.
package query

// Result is the outcome of matching one query against one catalog document.
// It is one of Found, NotFound or Delegate.
type Result interface {
	isResult()
}

// Found carries the resolved absolute URI.
type Found struct {
	URI string
}

func (Found) isResult() {}

// NotFound means the document had no matching entry.
type NotFound struct{}

func (NotFound) isResult() {}

// Delegate replaces the remaining search path with Catalogs, ordered longest
// matching prefix first.
type Delegate struct {
	Catalogs []string
}

func (Delegate) isResult() {}
