package dom

import (
	"strings"
	"testing"
)

func TestParseRender_FragmentRoundTrip(t *testing.T) {
	src := `<p class="x">Hello</p><div><span>A</span><img src="a.png"/></div>`
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Fragment() {
		t.Fatalf("expected fragment parse")
	}
	out, err := d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != src {
		t.Fatalf("round trip changed markup:\n got: %s\nwant: %s", out, src)
	}
}

func TestRender_KeepsTemplateQuotes(t *testing.T) {
	src := `<p class="status">{% if status == "Gold" %} Great job {% elif status == 'Silver' %} Good job {% endif %}</p>`
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != src {
		t.Fatalf("template directives were altered:\n got: %s\nwant: %s", out, src)
	}
}

func TestParseRender_FullDocument(t *testing.T) {
	src := "<!DOCTYPE html><html><head><title>T</title><style>.a{background:url(x.png)}</style></head><body><h1>Title &amp; more</h1></body></html>"
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Fragment() {
		t.Fatalf("expected full document parse")
	}
	out, err := d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != src {
		t.Fatalf("full document round trip changed markup:\n got: %s\nwant: %s", out, src)
	}
}

func TestQuery_DocumentOrder(t *testing.T) {
	d, err := Parse(`<div style="a"><p>1</p><h1>2</h1></div><span style="b">3</span><p>4</p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got []string
	for _, n := range d.Elements("h1", "p", "span") {
		got = append(got, Text(n))
	}
	if strings.Join(got, ",") != "1,2,3,4" {
		t.Fatalf("unexpected order: %v", got)
	}
	styled := d.WithAttr("style")
	if len(styled) != 2 || styled[0].Data != "div" || styled[1].Data != "span" {
		t.Fatalf("unexpected styled elements: %d", len(styled))
	}
}

func TestAttrHelpers(t *testing.T) {
	d, err := Parse(`<p class=" a  b ">x</p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := d.First("p")
	if p == nil {
		t.Fatalf("expected p")
	}
	if got := strings.Join(Classes(p), " "); got != "a b" {
		t.Fatalf("unexpected classes %q", got)
	}
	if !HasClass(p, "b") || HasClass(p, "c") {
		t.Fatalf("HasClass mismatch")
	}
	SetAttr(p, "id", "main")
	if v, ok := Attr(p, "id"); !ok || v != "main" {
		t.Fatalf("SetAttr did not add attribute")
	}
	SetAttr(p, "id", "other")
	if v, _ := Attr(p, "id"); v != "other" {
		t.Fatalf("SetAttr did not overwrite attribute")
	}
}

func TestLoneText(t *testing.T) {
	d, err := Parse(`<p>only</p><p>mixed <b>x</b></p><p></p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ps := d.Elements("p")
	if s, ok := LoneText(ps[0]); !ok || s != "only" {
		t.Fatalf("expected lone text, got %q %v", s, ok)
	}
	if _, ok := LoneText(ps[1]); ok {
		t.Fatalf("mixed content must not count as lone text")
	}
	if _, ok := LoneText(ps[2]); ok {
		t.Fatalf("empty element must not count as lone text")
	}
}

func TestSetTextAndInnerHTML(t *testing.T) {
	d, err := Parse(`<p class="s">a <b>b</b></p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := d.First("p.s")
	inner, err := InnerHTML(p)
	if err != nil || inner != "a <b>b</b>" {
		t.Fatalf("unexpected inner html %q (%v)", inner, err)
	}
	if err := SetInnerHTML(p, `x <i>"y"</i>`); err != nil {
		t.Fatalf("set inner: %v", err)
	}
	out, _ := d.Render()
	if out != `<p class="s">x <i>"y"</i></p>` {
		t.Fatalf("unexpected render after SetInnerHTML: %s", out)
	}
	SetText(p, "1 < 2")
	out, _ = d.Render()
	if out != `<p class="s">1 &lt; 2</p>` {
		t.Fatalf("unexpected render after SetText: %s", out)
	}
}

func TestFragmentText(t *testing.T) {
	got, err := FragmentText("\n  Great <b>job</b>\n  ")
	if err != nil {
		t.Fatalf("fragment text: %v", err)
	}
	if got != "Great job" {
		t.Fatalf("unexpected fragment text %q", got)
	}
}

func roundTrip(t *testing.T, src string) string {
	t.Helper()
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func TestRender_KeepsComparisonsInMarkers(t *testing.T) {
	for _, src := range []string{
		`<p class="x">Hello</p><div>{% if score > 90 %}<b>top</b>{% endif %}</div>`,
		`<p>{% if a < b %}x{% endif %}</p>`,
		`<p>{% if a<b %}x{% endif %}</p>`,
		`<p>{{ x }} &amp; 1 &lt; 2 > 0</p>`,
	} {
		if out := roundTrip(t, src); out != src {
			t.Fatalf("markers were altered:\n got: %s\nwant: %s", out, src)
		}
	}
}

func TestRender_SingleQuotedAttribute(t *testing.T) {
	src := `<a title='{{ "hi" | upper }}' href="/x?a=1&amp;b=2">x</a>`
	if out := roundTrip(t, src); out != src {
		t.Fatalf("attribute quoting changed:\n got: %s\nwant: %s", out, src)
	}
	both := `<a title="{{ &quot;it's&quot; }}">x</a>`
	if out := roundTrip(t, both); out != both {
		t.Fatalf("mixed quotes changed:\n got: %s\nwant: %s", out, both)
	}
}

func TestParse_TableLoopStaysInPlace(t *testing.T) {
	src := `<table><tbody>{% for r in rows %}<tr><td>{{ r }}</td></tr>{% endfor %}</tbody></table><p class="x">Hello</p>`
	if out := roundTrip(t, src); out != src {
		t.Fatalf("table loop moved:\n got: %s\nwant: %s", out, src)
	}
	out := roundTrip(t, `<table>{% for r in rows %}<tr><td>{{ r }}</td></tr>{% endfor %}</table>`)
	if !strings.HasPrefix(out, `<table>{% for r in rows %}<tbody><tr><td>{{ r }}</td></tr>{% endfor %}`) {
		t.Fatalf("loop directives left the table: %s", out)
	}
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s, ok := LoneText(d.First("td")); !ok || s != "{{ r }}" {
		t.Fatalf("cell text = %q %v", s, ok)
	}
}

func TestParse_HeadBlockStaysInHead(t *testing.T) {
	src := `{% extends "base.html" %}<!DOCTYPE html><html><head>{% block head %}{% endblock %}<style>p{color:red}</style></head>` +
		`<body><p class="x">Hi {{ name }}</p></body>{% endblock %}</html>`
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Fragment() {
		t.Fatalf("expected full document parse")
	}
	out, err := d.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != src {
		t.Fatalf("head block moved:\n got: %s\nwant: %s", out, src)
	}
	if s, ok := LoneText(d.First("p.x")); !ok || s != "Hi {{ name }}" {
		t.Fatalf("paragraph text = %q %v", s, ok)
	}
}

func TestSetInnerHTML_KeepsMarkers(t *testing.T) {
	d, err := Parse(`<table class="t"><tbody><tr><td>a</td></tr></tbody></table>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tb := d.First("tbody")
	if err := SetInnerHTML(tb, `{% for r in rows %}<tr><td>{{ r }}</td></tr>{% endfor %}`); err != nil {
		t.Fatalf("set inner: %v", err)
	}
	out, _ := d.Render()
	if out != `<table class="t"><tbody>{% for r in rows %}<tr><td>{{ r }}</td></tr>{% endfor %}</tbody></table>` {
		t.Fatalf("unexpected render: %s", out)
	}
}
