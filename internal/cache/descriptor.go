package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jacoelho/xmlcatalog/internal/entry"
	"github.com/jacoelho/xmlcatalog/internal/loader"
	"github.com/jacoelho/xmlcatalog/internal/uri"
	"github.com/jacoelho/xmlcatalog/internal/xml"
)

// Descriptor properties, stored as attributes in Namespace.
const (
	propTime         = "time"
	propETag         = "etag"
	propContentType  = "contentType"
	propRedirect     = "redir"
	propFileSize     = "filesize"
	propFileModified = "filemodified"
)

const (
	descriptorExt  = ".xml"
	publicSuffix   = "-public"
	propertyPrefix = "r"
	rddlPrefix     = "rddl"
	dataRefPrefix  = "../data/"
)

func isDescriptor(f fs.DirEntry) bool {
	name := f.Name()
	return f.Type().IsRegular() && !strings.HasPrefix(name, ".") && filepath.Ext(name) == descriptorExt
}

// readDescriptor parses the descriptor at path into a record.
func (c *Cache) readDescriptor(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor %s: %w", path, err)
	}
	defer f.Close()

	base, err := uri.FileURI(path)
	if err != nil {
		return nil, err
	}
	e, err := c.loader.LoadEntry(f, base)
	if err != nil {
		return nil, err
	}
	rec := &Entry{Catalog: e, Descriptor: filepath.Base(path)}
	switch v := e.(type) {
	case *entry.System:
		rec.Source, rec.LocalURI = v.SystemID, v.URI
	case *entry.URI:
		rec.Source, rec.LocalURI = v.Name, v.URI
	case *entry.Public:
		rec.Source, rec.LocalURI = v.PublicID, v.URI
	default:
		return nil, fmt.Errorf("descriptor %s: unexpected %s entry", path, e.Kind())
	}
	if rec.DataPath, err = uri.FilePath(rec.LocalURI); err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}

	props := e.Properties()
	if v, ok := props.Get(propTime); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("descriptor %s: time %q: %w", path, v, err)
		}
		rec.Time = time.UnixMilli(ms)
	}
	if v, ok := props.Get(propFileModified); ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.Modified = time.UnixMilli(ms)
		}
	}
	if v, ok := props.Get(propFileSize); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.Size = n
		}
	}
	rec.ETag, _ = props.Get(propETag)
	rec.ContentType, _ = props.Get(propContentType)
	rec.Redirect, _ = props.Get(propRedirect)
	return rec, nil
}

// descriptorMeta is the bookkeeping written alongside every descriptor.
type descriptorMeta struct {
	time        time.Time
	modified    time.Time
	etag        string
	contentType string
	redirect    string
	size        int64
}

func (m descriptorMeta) apply(n *xml.Node) *xml.Node {
	n.Set(propertyPrefix, propTime, strconv.FormatInt(m.time.UnixMilli(), 10)).
		Set(propertyPrefix, propETag, m.etag).
		Set(propertyPrefix, propContentType, m.contentType).
		Set(propertyPrefix, propRedirect, m.redirect).
		Set(propertyPrefix, propFileSize, strconv.FormatInt(m.size, 10))
	if !m.modified.IsZero() {
		n.Set(propertyPrefix, propFileModified, strconv.FormatInt(m.modified.UnixMilli(), 10))
	}
	return n
}

func descriptorRoot(local string) *xml.Node {
	return xml.NewNode("", local).
		Declare("", loader.CatalogNamespace).
		Declare(propertyPrefix, Namespace)
}

// systemDescriptor describes a cached system identifier.
func systemDescriptor(systemID, dataFile string, meta descriptorMeta) *xml.Node {
	n := descriptorRoot("system").
		Set("", "systemId", systemID).
		Set("", "uri", dataRefPrefix+dataFile)
	return meta.apply(n)
}

// publicDescriptor describes a public identifier sharing a system entry's data.
func publicDescriptor(publicID, dataFile string, meta descriptorMeta) *xml.Node {
	n := descriptorRoot("public").
		Set("", "publicId", publicID).
		Set("", "uri", dataRefPrefix+dataFile)
	return meta.apply(n)
}

// uriDescriptor describes a cached URI with its optional RDDL qualifiers.
func uriDescriptor(name, nature, purpose, dataFile string, meta descriptorMeta) *xml.Node {
	n := descriptorRoot("uri")
	if nature != "" || purpose != "" {
		n.Declare(rddlPrefix, loader.RDDLNamespace)
	}
	n.Set("", "name", name).
		Set("", "uri", dataRefPrefix+dataFile).
		Set(rddlPrefix, "nature", nature).
		Set(rddlPrefix, "purpose", purpose)
	return meta.apply(n)
}

func writeDescriptor(path string, n *xml.Node) error {
	return writeFileAtomic(path, func(f *os.File) error { return xml.Encode(f, n) })
}
