package xml

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Node is a writable element. Names carry an optional prefix which must be
// declared with Declare on the node or one of its ancestors.
type Node struct {
	Prefix   string
	Local    string
	Attrs    []NodeAttr
	Children []*Node
	decls    []NodeAttr
}

// NodeAttr is one attribute of a Node.
type NodeAttr struct {
	Prefix string
	Local  string
	Value  string
}

// NewNode returns an empty element named prefix:local (or local when prefix is empty).
func NewNode(prefix, local string) *Node {
	return &Node{Prefix: prefix, Local: local}
}

// Declare binds prefix to ns on n. An empty prefix sets the default namespace.
func (n *Node) Declare(prefix, ns string) *Node {
	if prefix == "" {
		n.decls = append(n.decls, NodeAttr{Local: "xmlns", Value: ns})
	} else {
		n.decls = append(n.decls, NodeAttr{Prefix: "xmlns", Local: prefix, Value: ns})
	}
	return n
}

// Set adds an attribute when value is not empty.
func (n *Node) Set(prefix, local, value string) *Node {
	if value == "" {
		return n
	}
	n.Attrs = append(n.Attrs, NodeAttr{Prefix: prefix, Local: local, Value: value})
	return n
}

// Append adds child elements.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Encode writes n as a standalone document with an XML declaration.
func Encode(w io.Writer, n *Node) error {
	if n == nil {
		return fmt.Errorf("encode: nil node")
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("encode %s: %w", n.Local, err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeNode(enc, n); err != nil {
		return fmt.Errorf("encode %s: %w", n.Local, err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("encode %s: %w", n.Local, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("encode %s: %w", n.Local, err)
	}
	return nil
}

func encodeNode(enc *xml.Encoder, n *Node) error {
	start := xml.StartElement{Name: xml.Name{Local: qualified(n.Prefix, n.Local)}}
	for _, d := range n.decls {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: qualified(d.Prefix, d.Local)}, Value: d.Value})
	}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: qualified(a.Prefix, a.Local)}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := encodeNode(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
