package xml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html/charset"
)

// MaxDepth bounds element nesting accepted by Parse.
const MaxDepth = 256

// Parse builds the element tree for a catalog-shaped document.
func Parse(r io.Reader) (Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true
	decoder.CharsetReader = charset.NewReaderLabel

	var stack []*element
	var root *element
	rootClosed := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return nil, fmt.Errorf("unexpected element %s after document end", t.Name.Local)
			}
			if len(stack) >= MaxDepth {
				return nil, fmt.Errorf("element %s exceeds max depth %d", t.Name.Local, MaxDepth)
			}
			elem := &element{
				namespace: t.Name.Space,
				local:     t.Name.Local,
				attrs:     convertAttrs(t.Attr),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, elem)
				elem.parent = parent
			} else {
				root = elem
			}
			stack = append(stack, elem)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 && root != nil {
					rootClosed = true
				}
			}

		case xml.CharData:
			if len(stack) == 0 {
				if !isIgnorableOutsideRoot(string(t)) {
					return nil, fmt.Errorf("unexpected character data outside root element")
				}
				continue
			}
			stack[len(stack)-1].text += string(t)
		}
	}

	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}

	return &document{root: root}, nil
}

func isIgnorableOutsideRoot(data string) bool {
	for _, r := range data {
		if r == '\uFEFF' {
			continue
		}
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

type document struct {
	root *element
}

func (d *document) DocumentElement() Element {
	return d.root
}

type element struct {
	namespace string
	local     string
	attrs     []attr
	children  []*element
	parent    *element
	text      string
}

func (e *element) NamespaceURI() string {
	return e.namespace
}

func (e *element) LocalName() string {
	return e.local
}

// GetAttribute returns the value of the unqualified attribute name.
func (e *element) GetAttribute(name string) string {
	return e.GetAttributeNS("", name)
}

func (e *element) GetAttributeNS(ns, local string) string {
	for _, a := range e.attrs {
		if a.namespace == ns && a.local == local {
			return a.value
		}
	}
	return ""
}

func (e *element) HasAttribute(name string) bool {
	for _, a := range e.attrs {
		if a.namespace == "" && a.local == name {
			return true
		}
	}
	return false
}

// Attributes returns a copy of the element attributes, namespace
// declarations excluded.
func (e *element) Attributes() []Attr {
	result := make([]Attr, 0, len(e.attrs))
	for i := range e.attrs {
		if e.attrs[i].namespace == xmlnsNamespace {
			continue
		}
		result = append(result, e.attrs[i])
	}
	return result
}

// Children returns a copy of the child element slice.
func (e *element) Children() []Element {
	result := make([]Element, len(e.children))
	for i, child := range e.children {
		result[i] = child
	}
	return result
}

func (e *element) Parent() Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// TextContent returns the concatenated text content of the element subtree.
func (e *element) TextContent() string {
	var sb strings.Builder
	e.collectText(&sb)
	return sb.String()
}

func (e *element) collectText(sb *strings.Builder) {
	sb.WriteString(e.text)
	for _, child := range e.children {
		child.collectText(sb)
	}
}

const xmlnsNamespace = "http://www.w3.org/2000/xmlns/"

type attr struct {
	namespace string
	local     string
	value     string
}

func (a attr) NamespaceURI() string {
	return a.namespace
}

func (a attr) LocalName() string {
	return a.local
}

func (a attr) Value() string {
	return a.value
}

func convertAttrs(xmlAttrs []xml.Attr) []attr {
	attrs := make([]attr, 0, len(xmlAttrs))
	for _, a := range xmlAttrs {
		namespace := a.Name.Space
		if namespace == "xmlns" || (namespace == "" && a.Name.Local == "xmlns") {
			namespace = xmlnsNamespace
		}
		attrs = append(attrs, attr{
			namespace: namespace,
			local:     a.Name.Local,
			value:     a.Value,
		})
	}
	return attrs
}
