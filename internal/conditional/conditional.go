// Package conditional reads and rewrites the branch bodies of the single
// if/elif/endif chain kept inside the status container of a document.
//
// The container is located through the parsed tree, but its inner markup is
// handled as raw text: the directive tokens are not markup and would be lost
// or re-nested by an HTML parser. Branch bodies are parsed as fragments only
// to produce display text; patches splice the raw string and the patched
// string is put back into the container.
package conditional

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/htmledit/internal/dom"
	"github.com/hyperifyio/htmledit/internal/normalize"
)

// Block describes where the chain lives and which branch names exist.
type Block struct {
	// Tag and Class identify the container: the first Tag element whose class
	// list contains Class.
	Tag   string
	Class string
	// Variable is the template variable compared in each directive.
	Variable string
	// Statuses is the fixed vocabulary, in emission order.
	Statuses []string
}

// Default is the diploma template layout: <p class="status"> with four tiers.
var Default = Block{
	Tag:      "p",
	Class:    "status",
	Variable: "status",
	Statuses: []string{"Platinum", "Gold", "Silver", "Bronze"},
}

// Branch is the display text of one matched branch.
type Branch struct {
	Status string
	Text   string
}

func (b Block) withDefaults() Block {
	if b.Tag == "" {
		b.Tag = Default.Tag
	}
	if b.Class == "" {
		b.Class = Default.Class
	}
	if b.Variable == "" {
		b.Variable = Default.Variable
	}
	if len(b.Statuses) == 0 {
		b.Statuses = Default.Statuses
	}
	return b
}

// Known reports whether name is part of the vocabulary.
func (b Block) Known(name string) bool {
	for _, s := range b.withDefaults().Statuses {
		if s == name {
			return true
		}
	}
	return false
}

// branchRe matches the directive opening the branch for name (group 1, with
// its trailing whitespace) and the body up to the next elif/else/endif
// directive (group 2). The terminating directive is consumed by the match but
// never rewritten.
func (b Block) branchRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(\{%-?\s*(?:if|elif)\s+` + regexp.QuoteMeta(b.Variable) +
		`\s*==\s*["']` + regexp.QuoteMeta(name) + `["']\s*-?%\}\s*)([\s\S]*?)\{%-?\s*(?:elif|else|endif)\b`)
}

// ExtractInner scans raw container markup and returns one branch per
// vocabulary name whose body has non-empty text, in vocabulary order.
func (b Block) ExtractInner(inner string) []Branch {
	b = b.withDefaults()
	var out []Branch
	for _, name := range b.Statuses {
		m := b.branchRe(name).FindStringSubmatchIndex(inner)
		if m == nil {
			continue
		}
		text, err := dom.FragmentText(inner[m[4]:m[5]])
		if err != nil {
			continue
		}
		if text = normalize.Normalize(text); text != "" {
			out = append(out, Branch{Status: name, Text: text})
		}
	}
	return out
}

// PatchInner replaces the body of the first branch matching each name in
// edits. Directive tokens and everything from the next directive onward are
// kept byte for byte. Names outside the vocabulary, names without a matching
// directive and empty texts are skipped.
func (b Block) PatchInner(inner string, edits map[string]string) string {
	b = b.withDefaults()
	for _, name := range b.order(edits) {
		text := normalize.CleanEdit(edits[name])
		if text == "" {
			continue
		}
		m := b.branchRe(name).FindStringSubmatchIndex(inner)
		if m == nil {
			continue
		}
		body := inner[m[4]:m[5]]
		tail := body[len(strings.TrimRight(body, " \t\r\n\f")):]
		if tail == "" {
			tail = " "
		}
		inner = inner[:m[4]] + dom.EscapeText(text) + tail + inner[m[5]:]
	}
	return inner
}

// order returns the edit names that are part of the vocabulary, in
// vocabulary order. Other names are ignored.
func (b Block) order(edits map[string]string) []string {
	out := make([]string, 0, len(edits))
	for _, s := range b.Statuses {
		if _, ok := edits[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (b Block) container(d *dom.Document) *html.Node {
	for _, n := range d.Elements(b.Tag) {
		if dom.HasClass(n, b.Class) {
			return n
		}
	}
	return nil
}

// Extract returns the branch texts of the status container in doc. A
// document without the container yields no branches.
func (b Block) Extract(doc string) ([]Branch, error) {
	b = b.withDefaults()
	d, err := dom.Parse(doc)
	if err != nil {
		return nil, err
	}
	c := b.container(d)
	if c == nil {
		return nil, nil
	}
	inner, err := dom.InnerHTML(c)
	if err != nil {
		return nil, fmt.Errorf("render status container: %w", err)
	}
	return b.ExtractInner(inner), nil
}

// Patch applies edits (status name to new text) to the status container of
// doc. When the container is missing or nothing matched, doc is returned
// unchanged.
func (b Block) Patch(doc string, edits map[string]string) (string, error) {
	b = b.withDefaults()
	if len(edits) == 0 {
		return doc, nil
	}
	d, err := dom.Parse(doc)
	if err != nil {
		return "", err
	}
	c := b.container(d)
	if c == nil {
		return doc, nil
	}
	inner, err := dom.InnerHTML(c)
	if err != nil {
		return "", fmt.Errorf("render status container: %w", err)
	}
	patched := b.PatchInner(inner, edits)
	if patched == inner {
		return doc, nil
	}
	if err := dom.SetInnerHTML(c, patched); err != nil {
		return "", fmt.Errorf("replace status container: %w", err)
	}
	return d.Render()
}
