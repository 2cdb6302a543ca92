package tei

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// xmlNode decodes an arbitrary XML element and its subtree.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

type xmlElement struct {
	node *xmlNode
}

func (e xmlElement) Name() string {
	return strings.ToLower(e.node.XMLName.Local)
}

// Attr matches on the attribute's local name, so namespaced forms like
// xml:id resolve the same as a plain id.
func (e xmlElement) Attr(name string) (string, bool) {
	for _, a := range e.node.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (e xmlElement) Children() []Element {
	children := make([]Element, len(e.node.Children))
	for i := range e.node.Children {
		children[i] = xmlElement{node: &e.node.Children[i]}
	}
	return children
}

// ParseXML decodes an XML document into the Element tree rooted at its
// document element.
func ParseXML(doc []byte) (Element, error) {
	var root xmlNode
	if err := xml.Unmarshal(trimBOM(doc), &root); err != nil {
		return nil, fmt.Errorf("parsing annotation document: %w", err)
	}
	if root.XMLName.Local == "" {
		return nil, fmt.Errorf("annotation document has no root element")
	}
	return xmlElement{node: &root}, nil
}

// encoding/xml rejects a leading UTF-8 BOM, which some annotation
// exporters emit.
func trimBOM(doc []byte) []byte {
	return bytes.TrimPrefix(doc, []byte{0xEF, 0xBB, 0xBF})
}
