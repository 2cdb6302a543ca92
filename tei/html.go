package tei

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

type htmlElement struct {
	node *html.Node
}

func (e htmlElement) Name() string {
	return strings.ToLower(e.node.Data)
}

func (e htmlElement) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		key := a.Key
		if i := strings.IndexByte(key, ':'); i >= 0 {
			key = key[i+1:]
		}
		if strings.EqualFold(key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e htmlElement) Children() []Element {
	var children []Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, htmlElement{node: c})
		}
	}
	return children
}

// ParseHTML decodes an HTML annotation document into the Element tree.
// The html package always synthesizes html/head/body wrappers, so the
// returned root is the <html> element.
func ParseHTML(doc []byte) (Element, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing annotation document: %w", err)
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return htmlElement{node: c}, nil
		}
	}
	return nil, fmt.Errorf("annotation document has no root element")
}

// LocateHTML is Locate for documents serialized as HTML rather than
// XML, using the same default selector.
func LocateHTML(doc []byte) ([]Figure, []Warning, error) {
	root, err := ParseHTML(doc)
	if err != nil {
		return nil, nil, err
	}
	figures, warnings := Collect(root, TEISelector{})
	return figures, warnings, nil
}
