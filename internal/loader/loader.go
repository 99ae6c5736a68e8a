// Package loader turns catalog markup into the entry model.
package loader

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jacoelho/xmlcatalog/internal/catalog"
	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/uri"
	"github.com/jacoelho/xmlcatalog/internal/xml"
)

const (
	// CatalogNamespace is the OASIS XML Catalogs namespace.
	CatalogNamespace = "urn:oasis:names:tc:entity:xmlns:xml:catalog"
	// TR9401Namespace holds the SGML heritage extension elements.
	TR9401Namespace = "urn:oasis:names:tc:entity:xmlns:tr9401:catalog"
	// RDDLNamespace qualifies the nature and purpose attributes of uri entries.
	RDDLNamespace = "http://www.rddl.org/"
)

// Config holds configuration for the catalog loader.
type Config struct {
	Logger *slog.Logger
	// PreferPublic is the prefer value in effect when the catalog root has no
	// prefer attribute.
	PreferPublic bool
}

// Loader parses catalog documents.
type Loader struct {
	logger       *slog.Logger
	preferPublic bool
}

// NewLoader creates a loader.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, preferPublic: cfg.PreferPublic}
}

// Load parses the catalog read from r. catalogURI must be absolute; it is the
// initial base URI and the identity of the returned document.
func (l *Loader) Load(r io.Reader, catalogURI string) (*catalog.Document, error) {
	if !uri.IsAbsolute(catalogURI) {
		return nil, fmt.Errorf("load catalog %q: uri is not absolute", catalogURI)
	}
	parsed, err := xml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogURI, err)
	}
	root := parsed.DocumentElement()
	if root.NamespaceURI() != CatalogNamespace || root.LocalName() != "catalog" {
		return nil, fmt.Errorf("parse catalog %s: root element {%s}%s is not a catalog",
			catalogURI, root.NamespaceURI(), root.LocalName())
	}

	doc := catalog.New(catalogURI)
	w := walker{loader: l, doc: doc, source: catalogURI}
	base, err := w.base(catalogURI, root)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogURI, err)
	}
	prefer := w.prefer(root, l.preferPublic)
	scope, err := entry.NewCatalog(base, root.GetAttribute("id"), prefer)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogURI, err)
	}
	doc.Add(scope)
	for _, child := range root.Children() {
		w.element(child, base, prefer)
	}
	return doc, nil
}

// LoadEntry parses a single-entry document such as a cache descriptor. The
// root must be a system, public or uri element in the catalog namespace.
func (l *Loader) LoadEntry(r io.Reader, baseURI string) (entry.Entry, error) {
	parsed, err := xml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse entry %s: %w", baseURI, err)
	}
	root := parsed.DocumentElement()
	if root.NamespaceURI() != CatalogNamespace {
		return nil, fmt.Errorf("parse entry %s: root element is not in the catalog namespace", baseURI)
	}
	switch root.LocalName() {
	case "system", "public", "uri":
	default:
		return nil, fmt.Errorf("parse entry %s: unexpected root element %s", baseURI, root.LocalName())
	}
	w := walker{loader: l, source: baseURI}
	base, err := w.base(baseURI, root)
	if err != nil {
		return nil, fmt.Errorf("parse entry %s: %w", baseURI, err)
	}
	e, err := w.build(root, base, l.preferPublic)
	if err != nil {
		return nil, fmt.Errorf("parse entry %s: %w", baseURI, err)
	}
	return e, nil
}

type walker struct {
	loader *Loader
	doc    *catalog.Document
	source string
}

func (w *walker) element(el xml.Element, parentBase string, prefer bool) {
	ns := el.NamespaceURI()
	if ns != CatalogNamespace && ns != TR9401Namespace {
		return
	}
	base, err := w.base(parentBase, el)
	if err != nil {
		w.invalid(el, parentBase, err)
		return
	}
	if ns == CatalogNamespace && el.LocalName() == "group" {
		prefer = w.prefer(el, prefer)
		group, err := entry.NewGroup(base, el.GetAttribute("id"), prefer)
		if err != nil {
			w.invalid(el, parentBase, err)
			return
		}
		w.doc.Add(group)
		for _, child := range el.Children() {
			w.element(child, base, prefer)
		}
		return
	}
	e, err := w.build(el, base, prefer)
	if err != nil {
		w.invalid(el, base, err)
		return
	}
	w.doc.Add(e)
}

func (w *walker) invalid(el xml.Element, base string, cause error) {
	w.loader.logger.Warn("ignoring catalog entry",
		slog.String("catalog", w.source),
		slog.String("element", el.LocalName()),
		slog.String("error", cause.Error()))
	if null, err := entry.NewNull(base, el.LocalName()); err == nil {
		w.doc.Add(null)
	}
}

func (w *walker) base(parentBase string, el xml.Element) (string, error) {
	xmlBase := strings.TrimSpace(el.GetAttributeNS(xml.XMLNamespace, "base"))
	if xmlBase == "" {
		return parentBase, nil
	}
	return uri.Resolve(parentBase, xmlBase)
}

func (w *walker) prefer(el xml.Element, inherited bool) bool {
	switch strings.TrimSpace(el.GetAttribute("prefer")) {
	case "":
		return inherited
	case "public":
		return true
	case "system":
		return false
	default:
		w.loader.logger.Warn("ignoring invalid prefer value",
			slog.String("catalog", w.source),
			slog.String("prefer", el.GetAttribute("prefer")))
		return inherited
	}
}
