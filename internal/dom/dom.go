// Package dom is the narrow tree boundary used by the extractors and patch
// appliers: parse a document, query elements in document order, read and
// write attributes and text, and serialize the tree back to markup.
package dom

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed snapshot. Documents that do not look like a full page
// are parsed as body fragments so that rendering does not add an
// <html><head><body> wrapper.
type Document struct {
	root     *html.Node
	fragment bool
	sel      *goquery.Document
}

var fullDocRe = regexp.MustCompile(`(?i)<!doctype|<html[\s>]|<head[\s>]|<body[\s>]`)

// Parse builds a Document from source markup. Template markers are kept in
// place: a loop between <table> and <tr> or a block inside <head> renders
// where it was written.
func Parse(src string) (*Document, error) {
	protected, saved := protect(src)
	if fullDocRe.MatchString(src) {
		root, err := html.Parse(strings.NewReader(protected))
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		restore(root, saved, false)
		return &Document{root: root, sel: goquery.NewDocumentFromNode(root)}, nil
	}
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(protected), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	restore(root, saved, true)
	return &Document{root: root, fragment: true, sel: goquery.NewDocumentFromNode(root)}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Fragment reports whether the source was parsed as a body fragment.
func (d *Document) Fragment() bool { return d.fragment }

// Render serializes the tree.
func (d *Document) Render() (string, error) {
	var b strings.Builder
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Query returns the elements matching a CSS selector in document order.
func (d *Document) Query(selector string) []*html.Node {
	return d.sel.Find(selector).Nodes
}

// Elements returns every element whose tag is one of tags, in document order.
func (d *Document) Elements(tags ...string) []*html.Node {
	return d.Query(strings.Join(tags, ", "))
}

// WithAttr returns every element carrying the attribute key, in document order.
func (d *Document) WithAttr(key string) []*html.Node {
	return d.Query("[" + key + "]")
}

// First returns the first element matching selector, or nil.
func (d *Document) First(selector string) *html.Node {
	s := d.sel.Find(selector).First()
	if s.Length() == 0 {
		return nil
	}
	return s.Nodes[0]
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr overwrites key on n, appending it when missing.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Classes returns the class list of n in attribute order.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether class is in the class list of n.
func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// LoneText returns the data of the single text child of n. ok is false when n
// has any other children or none at all.
func LoneText(n *html.Node) (string, bool) {
	c := n.FirstChild
	if c == nil || c != n.LastChild || c.Type != html.TextNode {
		return "", false
	}
	return c.Data, true
}

// Text concatenates all descendant text of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SetText replaces all children of n with a single text node.
func SetText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// SetInnerHTML parses markup in the context of n and replaces its children.
func SetInnerHTML(n *html.Node, markup string) error {
	if n.Type != html.ElementNode {
		return errors.New("set inner html: not an element")
	}
	protected, saved := protect(markup)
	nodes, err := html.ParseFragment(strings.NewReader(protected), n)
	if err != nil {
		return fmt.Errorf("parse inner html: %w", err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	restore(n, saved, false)
	return nil
}

// FragmentText parses markup as a body fragment and returns its text pieces
// joined by single spaces. Used to flatten small markup bodies for display.
func FragmentText(markup string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			if s := strings.TrimSpace(cur.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(parts, " "), nil
}

// Walk visits n and its descendants depth first in document order. When
// visit returns false the children of the visited node are skipped.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, visit)
	}
}
