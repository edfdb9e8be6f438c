// Package selector evaluates CSS and XPath selectors against a parsed DOM
// snapshot. The snapshot is parsed once and shared between both engines.
package selector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/reviewlens/reviewlens/internal/plan"
)

// Document is a parsed DOM snapshot queryable by CSS or XPath.
type Document struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse builds a Document from a rendered HTML snapshot.
func Parse(snapshot string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Node is a single matched element. Queries on a Node are scoped to its
// subtree.
type Node struct {
	node *html.Node
}

// All returns every element matched by the selector, in document order.
func (d *Document) All(kind plan.SelectorKind, sel string) ([]*Node, error) {
	switch kind {
	case plan.KindCSS:
		m, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("invalid CSS selector %q: %w", sel, err)
		}
		var nodes []*Node
		d.doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				nodes = append(nodes, &Node{node: n})
			}
		})
		return nodes, nil

	case plan.KindXPath:
		found, err := htmlquery.QueryAll(d.root, sel)
		if err != nil {
			return nil, fmt.Errorf("invalid XPath expression %q: %w", sel, err)
		}
		nodes := make([]*Node, 0, len(found))
		for _, n := range found {
			nodes = append(nodes, &Node{node: n})
		}
		return nodes, nil
	}
	return nil, fmt.Errorf("unknown selector kind %q", kind)
}

// First returns the first match, or nil when the selector matches nothing.
func (d *Document) First(kind plan.SelectorKind, sel string) (*Node, error) {
	nodes, err := d.All(kind, sel)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

// Find returns the first descendant of n matched by the selector, or nil.
func (n *Node) Find(kind plan.SelectorKind, sel string) (*Node, error) {
	switch kind {
	case plan.KindCSS:
		m, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("invalid CSS selector %q: %w", sel, err)
		}
		scoped := goquery.NewDocumentFromNode(n.node).FindMatcher(m)
		if scoped.Length() == 0 {
			return nil, nil
		}
		return &Node{node: scoped.Nodes[0]}, nil

	case plan.KindXPath:
		found, err := htmlquery.Query(n.node, sel)
		if err != nil {
			return nil, fmt.Errorf("invalid XPath expression %q: %w", sel, err)
		}
		if found == nil {
			return nil, nil
		}
		return &Node{node: found}, nil
	}
	return nil, fmt.Errorf("unknown selector kind %q", kind)
}

// Text returns the node's text content with runs of whitespace collapsed.
func (n *Node) Text() string {
	return strings.Join(strings.Fields(htmlquery.InnerText(n.node)), " ")
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present, regardless of value.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// HasClass reports whether the node's class list contains the given class.
func (n *Node) HasClass(class string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// TagName returns the element's tag name, lowercase.
func (n *Node) TagName() string {
	if n.node.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.node.Data)
}
