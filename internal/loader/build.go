package loader

import (
	"fmt"
	"log/slog"

	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/xml"
)

func (w *walker) build(el xml.Element, base string, prefer bool) (entry.Entry, error) {
	kind, ok := entry.KindByName(el.LocalName())
	if !ok || !allowedIn(el.NamespaceURI(), kind) {
		return nil, fmt.Errorf("unknown element {%s}%s", el.NamespaceURI(), el.LocalName())
	}
	a := attrs{el: el}
	id := el.GetAttribute("id")

	var (
		e   entry.Entry
		err error
	)
	switch kind {
	case entry.KindSystem:
		e, err = entry.NewSystem(base, id, a.req("systemId"), a.req("uri"))
	case entry.KindPublic:
		e, err = entry.NewPublic(base, id, a.req("publicId"), a.req("uri"), w.prefer(el, prefer))
	case entry.KindURI:
		e, err = entry.NewURI(base, id, a.req("name"), a.req("uri"),
			el.GetAttributeNS(RDDLNamespace, "nature"), el.GetAttributeNS(RDDLNamespace, "purpose"))
	case entry.KindRewriteSystem:
		e, err = entry.NewRewriteSystem(base, id, a.req("systemIdStartString"), a.req("rewritePrefix"))
	case entry.KindRewriteURI:
		e, err = entry.NewRewriteURI(base, id, a.req("uriStartString"), a.req("rewritePrefix"))
	case entry.KindSystemSuffix:
		e, err = entry.NewSystemSuffix(base, id, a.req("systemIdSuffix"), a.req("uri"))
	case entry.KindURISuffix:
		e, err = entry.NewURISuffix(base, id, a.req("uriSuffix"), a.req("uri"))
	case entry.KindDelegateSystem:
		e, err = entry.NewDelegateSystem(base, id, a.req("systemIdStartString"), a.req("catalog"))
	case entry.KindDelegatePublic:
		e, err = entry.NewDelegatePublic(base, id, a.req("publicIdStartString"), a.req("catalog"), w.prefer(el, prefer))
	case entry.KindDelegateURI:
		e, err = entry.NewDelegateURI(base, id, a.req("uriStartString"), a.req("catalog"))
	case entry.KindNextCatalog:
		e, err = entry.NewNextCatalog(base, id, a.req("catalog"))
	case entry.KindDoctype, entry.KindEntity, entry.KindNotation, entry.KindLinktype:
		e, err = entry.NewNamed(kind, base, id, a.req("name"), a.req("uri"), prefer)
	case entry.KindDocument, entry.KindSGMLDecl:
		e, err = entry.NewNamed(kind, base, id, "", a.req("uri"), prefer)
	case entry.KindDTDDecl:
		e, err = entry.NewNamed(kind, base, id, a.req("publicId"), a.req("uri"), prefer)
	default:
		return nil, fmt.Errorf("element %s is not an entry", el.LocalName())
	}
	if a.missing != "" {
		return nil, fmt.Errorf("%s: missing required attribute %s", el.LocalName(), a.missing)
	}
	if err != nil {
		return nil, err
	}
	w.copyProperties(el, e)
	return e, nil
}

func allowedIn(ns string, kind entry.Kind) bool {
	switch kind {
	case entry.KindDoctype, entry.KindDocument, entry.KindEntity, entry.KindNotation,
		entry.KindLinktype, entry.KindSGMLDecl, entry.KindDTDDecl:
		return ns == TR9401Namespace || ns == CatalogNamespace
	case entry.KindNull, entry.KindCatalog, entry.KindGroup:
		return false
	default:
		return ns == CatalogNamespace
	}
}

// copyProperties stores extension-namespace attributes in the property bag.
// Attributes whose name is not a valid property key are logged and skipped.
func (w *walker) copyProperties(el xml.Element, e entry.Entry) {
	for _, attr := range el.Attributes() {
		switch attr.NamespaceURI() {
		case "", xml.XMLNamespace, RDDLNamespace, CatalogNamespace, TR9401Namespace:
			continue
		}
		if !e.Properties().Set(attr.LocalName(), attr.Value()) {
			w.loader.logger.Warn("ignoring catalog entry property",
				slog.String("catalog", w.source),
				slog.String("element", el.LocalName()),
				slog.String("attribute", attr.LocalName()))
		}
	}
}

type attrs struct {
	el      xml.Element
	missing string
}

// req returns the named attribute, remembering the first one that is absent.
func (a *attrs) req(name string) string {
	if !a.el.HasAttribute(name) && a.missing == "" {
		a.missing = name
	}
	return a.el.GetAttribute(name)
}
