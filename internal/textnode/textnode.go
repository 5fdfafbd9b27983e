// Package textnode finds the editable plain-text nodes of a templated HTML
// document, addresses them, and applies edit sets keyed by those addresses.
//
// Extraction and patching share one traversal (collect), so an address
// produced by Extract always resolves to the same node in Apply for the same
// source document.
package textnode

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/htmledit/internal/address"
	"github.com/hyperifyio/htmledit/internal/conditional"
	"github.com/hyperifyio/htmledit/internal/dom"
	"github.com/hyperifyio/htmledit/internal/normalize"
)

// Kind tells plain nodes from conditional branches.
type Kind string

const (
	KindPlain  Kind = "text"
	KindStatus Kind = "status"
)

// Ref describes one editable text unit.
type Ref struct {
	Address    string
	Display    string
	Kind       Kind
	Tag        string
	Class      string
	Occurrence int
	Original   string
}

// Where renders a short location label, e.g. `<p class=lead> (#2)`.
func (r Ref) Where() string {
	if r.Kind == KindStatus {
		return "<" + r.Tag + " class=" + r.Class + "> (if/elif branch)"
	}
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(r.Tag)
	if r.Class != "" {
		b.WriteString(" class=")
		b.WriteString(r.Class)
	}
	b.WriteString("> (#")
	b.WriteString(strconv.Itoa(r.Occurrence))
	b.WriteString(")")
	return b.String()
}

// EditSet maps address strings to replacement text.
type EditSet map[string]string

var (
	skipTags = map[string]bool{"style": true, "script": true, "svg": true, "head": true}

	candidateTags = map[string]bool{"h1": true, "h2": true, "h3": true, "p": true, "span": true, "div": true}
)

// node is one addressable text holder found by collect.
type node struct {
	el    *html.Node
	tag   string
	class string
	raw   string
	label string
	// split of raw around its single marker; marker is empty when raw has none
	before, marker, after string
}

type groupKey struct{ tag, class string }

// collect walks the tree depth first and returns the addressable nodes in
// document order.
func collect(root *html.Node) []node {
	var out []node
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if skipTags[n.Data] || n.Namespace == "svg" {
			return false
		}
		if n.Namespace != "" || !candidateTags[n.Data] {
			return true
		}
		raw, ok := dom.LoneText(n)
		if !ok {
			return true
		}
		if nd, ok := classify(raw); ok {
			nd.el = n
			nd.tag = n.Data
			nd.class = strings.Join(dom.Classes(n), " ")
			out = append(out, nd)
		}
		return true
	})
	return out
}

// classify decides whether raw text is addressable and derives its label.
// Raw text with one marker qualifies only when the marker sits at the start
// or the end, so the label is one contiguous run; more markers or a marker in
// the middle make the node non-addressable.
func classify(raw string) (node, bool) {
	text := normalize.Normalize(raw)
	if text == "" {
		return node{}, false
	}
	spans := normalize.MarkerSpans(raw)
	switch len(spans) {
	case 0:
		return node{raw: raw, label: text}, true
	case 1:
		before, marker, after := raw[:spans[0][0]], raw[spans[0][0]:spans[0][1]], raw[spans[0][1]:]
		if strings.TrimSpace(before) != "" && strings.TrimSpace(after) != "" {
			return node{}, false
		}
		label := normalize.StripTemplateMarkers(raw)
		if label == "" {
			return node{}, false
		}
		return node{raw: raw, label: label, before: before, marker: marker, after: after}, true
	}
	return node{}, false
}

// patched returns the raw text of nd with its label replaced by text.
// Whitespace around the label and the marker are kept as they were.
func (nd node) patched(text string) string {
	if nd.marker == "" {
		return text
	}
	if strings.TrimSpace(nd.after) == "" {
		lead, trail := splitSpace(nd.before)
		return lead + text + trail + nd.marker + nd.after
	}
	lead, trail := splitSpace(nd.after)
	return nd.before + nd.marker + lead + text + trail
}

// splitSpace returns the leading and trailing whitespace of s.
func splitSpace(s string) (string, string) {
	const ws = " \t\r\n\f"
	core := strings.TrimLeft(s, ws)
	lead := s[:len(s)-len(core)]
	trimmed := strings.TrimRight(core, ws)
	return lead, core[len(trimmed):]
}

// statusRefs turns conditional branches into refs.
func statusRefs(block conditional.Block, branches []conditional.Branch) []Ref {
	tag, class := block.Tag, block.Class
	if tag == "" {
		tag = conditional.Default.Tag
	}
	if class == "" {
		class = conditional.Default.Class
	}
	out := make([]Ref, 0, len(branches))
	for _, br := range branches {
		out = append(out, Ref{
			Address:    address.Status(br.Status).String(),
			Display:    br.Text,
			Kind:       KindStatus,
			Tag:        tag,
			Class:      class,
			Occurrence: 1,
			Original:   br.Text,
		})
	}
	return out
}
