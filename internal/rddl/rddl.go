// Package rddl reads the resource directory of an RDDL namespace document.
package rddl

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/jacoelho/xmlcatalog/internal/uri"
)

// Resource is one rddl:resource of a namespace document.
type Resource struct {
	// Href is absolute.
	Href    string
	Nature  string
	Purpose string
}

// Parse returns the resources described by the RDDL document read from r.
// Relative hrefs are resolved against baseURI, or against the document's
// base element when it has one. Resources without an href are skipped.
func Parse(r io.Reader, baseURI string) ([]Resource, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse rddl %s: %w", baseURI, err)
	}
	base := baseURI
	if href, ok := baseHref(doc); ok {
		if resolved, err := uri.Resolve(baseURI, href); err == nil {
			base = resolved
		}
	}

	var out []Resource
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "rddl:resource" {
			if res, ok := resource(n, base); ok {
				out = append(out, res)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

// Find returns the href of the first resource with the given nature and
// purpose. An empty nature or purpose matches any value.
func Find(resources []Resource, nature, purpose string) (string, bool) {
	for _, r := range resources {
		if nature != "" && r.Nature != nature {
			continue
		}
		if purpose != "" && r.Purpose != purpose {
			continue
		}
		return r.Href, true
	}
	return "", false
}

func resource(n *html.Node, base string) (Resource, bool) {
	href := xlinkAttr(n, "href")
	if href == "" {
		return Resource{}, false
	}
	if b := attr(n, "xml:base"); b != "" {
		if resolved, err := uri.Resolve(base, b); err == nil {
			base = resolved
		}
	}
	abs, err := uri.Resolve(base, href)
	if err != nil {
		return Resource{}, false
	}
	return Resource{
		Href:    abs,
		Nature:  xlinkAttr(n, "role"),
		Purpose: xlinkAttr(n, "arcrole"),
	}, true
}

// xlinkAttr reads an xlink attribute whether the parser kept the prefix in
// the key or split it into the namespace field.
func xlinkAttr(n *html.Node, local string) string {
	for _, a := range n.Attr {
		if (a.Namespace == "xlink" && a.Key == local) || a.Key == "xlink:"+local {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func baseHref(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "base" {
		if href := attr(n, "href"); href != "" {
			return href, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href, ok := baseHref(c); ok {
			return href, true
		}
	}
	return "", false
}
