package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/htmledit/internal/normalize"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;")

// EscapeText escapes s for use as element text.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// writeText escapes text outside template markers. Marker spans are written
// as they are so comparisons such as {% if score > 90 %} stay intact.
func writeText(b *strings.Builder, s string) {
	last := 0
	for _, m := range normalize.MarkerSpans(s) {
		b.WriteString(textEscaper.Replace(s[last:m[0]]))
		b.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(textEscaper.Replace(s[last:]))
}

// writeAttr writes a quoted attribute value. Values holding a double quote
// and no single quote are single quoted, as template authors write
// title='{{ "hi" | upper }}'. Inside markers only the quote character is
// escaped.
func writeAttr(b *strings.Builder, s string) {
	q, qEsc := `"`, "&quot;"
	if strings.Contains(s, `"`) && !strings.Contains(s, "'") {
		q, qEsc = "'", "&#39;"
	}
	outer := strings.NewReplacer("&", "&amp;", q, qEsc)
	inner := strings.NewReplacer(q, qEsc)
	b.WriteString(q)
	last := 0
	for _, m := range normalize.MarkerSpans(s) {
		b.WriteString(outer.Replace(s[last:m[0]]))
		b.WriteString(inner.Replace(s[m[0]:m[1]]))
		last = m[1]
	}
	b.WriteString(outer.Replace(s[last:]))
	b.WriteString(q)
}

// render writes n the way html.Render does, with these differences: text is
// escaped minimally (& and <) and template markers in text are written
// verbatim, so {% if status == "Gold" %} and {% if score > 90 %} survive a
// parse/render round trip unchanged. Attribute values pick their quote
// character from the value and escape & outside markers only.
func render(b *strings.Builder, n *html.Node) error {
	switch n.Type {
	case html.ErrorNode:
		return fmt.Errorf("render: unexpected error node")
	case html.TextNode:
		writeText(b, n.Data)
		return nil
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := render(b, c); err != nil {
				return err
			}
		}
		return nil
	case html.CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
		return nil
	case html.DoctypeNode:
		renderDoctype(b, n)
		return nil
	case html.RawNode:
		b.WriteString(n.Data)
		return nil
	case html.ElementNode:
	default:
		return fmt.Errorf("render: unknown node type %d", n.Type)
	}

	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		if a.Namespace != "" {
			b.WriteString(a.Namespace)
			b.WriteByte(':')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		writeAttr(b, a.Val)
	}
	if n.Namespace == "" && voidElements[n.Data] {
		if n.FirstChild != nil {
			return fmt.Errorf("render: void element <%s> has child nodes", n.Data)
		}
		b.WriteString("/>")
		return nil
	}
	b.WriteByte('>')

	// The parser drops a single leading newline in these elements.
	if c := n.FirstChild; c != nil && c.Type == html.TextNode && strings.HasPrefix(c.Data, "\n") {
		switch n.Data {
		case "pre", "listing", "textarea":
			b.WriteByte('\n')
		}
	}

	literal := childTextIsLiteral(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if literal && c.Type == html.TextNode {
			b.WriteString(c.Data)
			continue
		}
		if err := render(b, c); err != nil {
			return err
		}
	}

	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
	return nil
}

func childTextIsLiteral(n *html.Node) bool {
	if n.Namespace != "" {
		return false
	}
	switch n.Data {
	case "iframe", "noembed", "noframes", "noscript", "plaintext", "script", "style", "xmp":
		return true
	}
	return false
}

func renderDoctype(b *strings.Builder, n *html.Node) {
	b.WriteString("<!DOCTYPE ")
	b.WriteString(n.Data)
	var public, system string
	for _, a := range n.Attr {
		switch a.Key {
		case "public":
			public = a.Val
		case "system":
			system = a.Val
		}
	}
	if public != "" {
		b.WriteString(" PUBLIC ")
		writeQuoted(b, public)
		if system != "" {
			b.WriteByte(' ')
			writeQuoted(b, system)
		}
	} else if system != "" {
		b.WriteString(" SYSTEM ")
		writeQuoted(b, system)
	}
	b.WriteByte('>')
}

func writeQuoted(b *strings.Builder, s string) {
	q := byte('"')
	if strings.Contains(s, `"`) {
		q = '\''
	}
	b.WriteByte(q)
	b.WriteString(s)
	b.WriteByte(q)
}
