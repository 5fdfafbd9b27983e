package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/htmledit/internal/normalize"
)

// Template markers are not markup, but the tree builder treats them as
// character data: text inside a table is moved in front of it and text in
// <head> ends the head. Before parsing, markers that start in character data
// are swapped for comments, which the tree builder inserts in place in every
// insertion mode, and swapped back afterwards.

const placeholderPrefix = "htmledit:tpl:"

// rawTextTags switch the tokenizer to raw text; markers inside them stay
// ordinary element text.
var rawTextTags = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true, "plaintext": true,
	"script": true, "style": true, "textarea": true, "title": true, "xmp": true,
}

// noTextParents are elements whose content model has no room for text. A
// restored marker under one of them is kept as a raw node.
var noTextParents = map[string]bool{
	"html": true, "head": true, "table": true, "tbody": true, "thead": true,
	"tfoot": true, "tr": true, "colgroup": true, "frameset": true,
}

type region struct {
	start, end int
	tt         html.TokenType
	raw        bool
}

// regions tokenizes src and returns the byte range of every token.
func regions(src string) []region {
	var out []region
	z := html.NewTokenizer(strings.NewReader(src))
	off, raw := 0, false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		n := len(z.Raw())
		out = append(out, region{start: off, end: off + n, tt: tt, raw: raw && tt == html.TextToken})
		raw = false
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, _ := z.TagName()
			raw = rawTextTags[string(name)]
		}
		off += n
	}
}

// protect replaces the markers of src that start in character data with
// numbered comment placeholders and returns the marker texts by number.
// A marker may run into the tag the tokenizer saw in it, as in
// {% if a<b %}, but never past that tag.
func protect(src string) (string, []string) {
	if !strings.Contains(src, "{") || strings.Contains(src, placeholderPrefix) {
		return src, nil
	}
	return protectFrom(src, nil)
}

func protectFrom(src string, saved []string) (string, []string) {
	regs := regions(src)
	var (
		b    strings.Builder
		last int
		i    int
	)
	for _, sp := range normalize.MarkerSpans(src) {
		for i < len(regs) && regs[i].end <= sp[0] {
			i++
		}
		if i == len(regs) {
			break
		}
		r := regs[i]
		if r.tt != html.TextToken || r.raw || sp[0] < r.start {
			continue
		}
		crossed := sp[1] > r.end
		if crossed {
			if i+1 == len(regs) {
				continue
			}
			next := regs[i+1]
			switch next.tt {
			case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			default:
				continue
			}
			if sp[1] >= next.end {
				continue
			}
		}
		b.WriteString(src[last:sp[0]])
		b.WriteString("<!--" + placeholderPrefix + strconv.Itoa(len(saved)) + "-->")
		saved = append(saved, src[sp[0]:sp[1]])
		last = sp[1]
		if crossed {
			// the tokens after the marker were read through it; start over
			rest, more := protectFrom(src[last:], saved)
			b.WriteString(rest)
			return b.String(), more
		}
	}
	b.WriteString(src[last:])
	return b.String(), saved
}

// restore turns the placeholders under n back into markers. A marker becomes
// text, merged with its neighbours, where text is allowed and a raw node
// elsewhere. fragment reports that a document node stands in for <body>.
func restore(n *html.Node, saved []string, fragment bool) {
	if len(saved) == 0 {
		return
	}
	var found []*html.Node
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.CommentNode && strings.HasPrefix(c.Data, placeholderPrefix) {
			found = append(found, c)
		}
		return true
	})
	for _, c := range found {
		i, err := strconv.Atoi(strings.TrimPrefix(c.Data, placeholderPrefix))
		if err != nil || i < 0 || i >= len(saved) {
			continue
		}
		c.Data = saved[i]
		if !allowsText(c.Parent, fragment) {
			c.Type = html.RawNode
			continue
		}
		c.Type = html.TextNode
		mergeText(c)
	}
}

func allowsText(p *html.Node, fragment bool) bool {
	switch {
	case p == nil:
		return false
	case p.Type == html.DocumentNode:
		return fragment
	case p.Type != html.ElementNode || p.Namespace != "":
		return true
	}
	return !noTextParents[p.Data]
}

// mergeText joins c with adjacent text siblings.
func mergeText(c *html.Node) {
	p := c.Parent
	if prev := c.PrevSibling; prev != nil && prev.Type == html.TextNode {
		prev.Data += c.Data
		p.RemoveChild(c)
		c = prev
	}
	for next := c.NextSibling; next != nil && next.Type == html.TextNode; next = c.NextSibling {
		c.Data += next.Data
		p.RemoveChild(next)
	}
}
