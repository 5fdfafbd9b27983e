// Package images locates the images of an HTML document (img tags, inline
// style backgrounds and style block backgrounds) and replaces them with data
// URLs.
//
// A Locator is positional: it is only valid against the document snapshot it
// was extracted from.
package images

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperifyio/htmledit/internal/dom"
	"github.com/hyperifyio/htmledit/internal/imageprobe"
)

// Kind names the three places an image can come from.
type Kind string

const (
	KindImg         Kind = "img"
	KindInlineStyle Kind = "inline_style"
	KindStyleBlock  Kind = "style_block"
)

// Source is the coarse origin shown to users.
type Source string

const (
	SourceImgTag     Source = "img-tag"
	SourceBackground Source = "background-image"
)

var (
	// ErrOutOfRange reports a locator that no longer points at a candidate.
	ErrOutOfRange = errors.New("image locator out of range")
	// ErrUnknownLocatorKind reports a locator kind other than img, inline_style or style_block.
	ErrUnknownLocatorKind = errors.New("unknown image locator kind")
)

// Locator addresses one image: Primary is the rank of the carrying element
// (or style block) within its kind, Secondary the rank of the url() within it.
type Locator struct {
	Kind      Kind
	Primary   int
	Secondary int
}

func (l Locator) String() string {
	return string(l.Kind) + ":" + strconv.Itoa(l.Primary) + ":" + strconv.Itoa(l.Secondary)
}

// ParseLocator parses the form produced by Locator.String.
func ParseLocator(s string) (Locator, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Locator{}, fmt.Errorf("%w: %q", ErrUnknownLocatorKind, s)
	}
	k := Kind(parts[0])
	switch k {
	case KindImg, KindInlineStyle, KindStyleBlock:
	default:
		return Locator{}, fmt.Errorf("%w: %q", ErrUnknownLocatorKind, parts[0])
	}
	p, err1 := strconv.Atoi(parts[1])
	q, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || p < 0 || q < 0 {
		return Locator{}, &LocatorError{Locator: Locator{Kind: k}, Err: fmt.Errorf("%w: bad index in %q", ErrOutOfRange, s)}
	}
	return Locator{Kind: k, Primary: p, Secondary: q}, nil
}

// LocatorError is returned by Replace when a locator cannot be resolved.
type LocatorError struct {
	Locator Locator
	Count   int
	Err     error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locate image %s (have %d): %v", e.Locator, e.Count, e.Err)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// Entry describes one located image.
type Entry struct {
	ID      string
	Source  Source
	MIME    string
	Format  string
	Width   int
	Height  int
	HasSize bool
	// Data holds the decoded payload of a data URL; nil for external sources.
	Data    []byte
	Hint    string
	Locator Locator
}

// Size renders "WxH" or "?" when the size is unknown.
func (e Entry) Size() string {
	if !e.HasSize {
		return "?"
	}
	return strconv.Itoa(e.Width) + "x" + strconv.Itoa(e.Height)
}

// Inline reports whether the image is embedded as a data URL.
func (e Entry) Inline() bool { return e.Hint == dataURLHint }

const dataURLHint = "(data-url)"

var backgroundURLRe = regexp.MustCompile(`(?i)(?:background-image|background)\s*:\s*[^;]*?url\(\s*["']?([^"')]+)["']?\s*\)`)

// backgroundURLs returns the url() values of background declarations in css.
func backgroundURLs(css string) []string {
	var out []string
	for _, m := range backgroundURLRe.FindAllStringSubmatch(css, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// Extractor builds entries. Probe reads image dimensions; nil means
// imageprobe.Probe.
type Extractor struct {
	Probe func([]byte) (int, int, bool)
}

// Extract lists the images of doc in pass order: img tags, inline style
// backgrounds, then style block backgrounds.
func Extract(doc string) ([]Entry, error) { return Extractor{}.Extract(doc) }

// Extract lists the images of doc. IDs are IMG001, IMG002, ... across all
// three passes.
func (x Extractor) Extract(doc string) ([]Entry, error) {
	d, err := dom.Parse(doc)
	if err != nil {
		return nil, err
	}
	probe := x.Probe
	if probe == nil {
		probe = imageprobe.Probe
	}
	var out []Entry
	add := func(src string, source Source, loc Locator) {
		e := Entry{
			ID:      fmt.Sprintf("IMG%03d", len(out)+1),
			Source:  source,
			MIME:    "image/unknown",
			Format:  "?",
			Hint:    src,
			Locator: loc,
		}
		if dec, ok := decodeDataURL(src); ok {
			e.MIME, e.Format, e.Data, e.Hint = dec.mime, dec.format, dec.data, dataURLHint
			e.Width, e.Height, e.HasSize = probe(dec.data)
		}
		out = append(out, e)
	}

	for i, n := range d.Elements("img") {
		src, _ := dom.Attr(n, "src")
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		add(src, SourceImgTag, Locator{Kind: KindImg, Primary: i})
	}
	for i, n := range d.WithAttr("style") {
		style, _ := dom.Attr(n, "style")
		for j, u := range backgroundURLs(style) {
			add(u, SourceBackground, Locator{Kind: KindInlineStyle, Primary: i, Secondary: j})
		}
	}
	for i, n := range d.Elements("style") {
		for j, u := range backgroundURLs(dom.Text(n)) {
			add(u, SourceBackground, Locator{Kind: KindStyleBlock, Primary: i, Secondary: j})
		}
	}
	return out, nil
}

// Find returns the entry with the given ID.
func Find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.ID, id) {
			return e, true
		}
	}
	return Entry{}, false
}

// Replace swaps the image at loc for dataURL and returns the new document.
// dataURL is validated before doc is parsed, so a rejected replacement never
// produces output. doc itself is never modified.
func Replace(doc string, loc Locator, dataURL string) (string, error) {
	dataURL = strings.TrimSpace(dataURL)
	if err := ValidateDataURL(dataURL); err != nil {
		return "", err
	}
	d, err := dom.Parse(doc)
	if err != nil {
		return "", err
	}

	var (
		candidates []*html.Node
		read       func(*html.Node) string
		write      func(*html.Node, string)
	)
	switch loc.Kind {
	case KindImg:
		candidates = d.Elements("img")
	case KindInlineStyle:
		candidates = d.WithAttr("style")
		read = func(n *html.Node) string { s, _ := dom.Attr(n, "style"); return s }
		write = func(n *html.Node, s string) { dom.SetAttr(n, "style", s) }
	case KindStyleBlock:
		candidates = d.Elements("style")
		read = dom.Text
		write = dom.SetText
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLocatorKind, loc.Kind)
	}
	if loc.Primary < 0 || loc.Primary >= len(candidates) {
		return "", &LocatorError{Locator: loc, Count: len(candidates), Err: ErrOutOfRange}
	}
	n := candidates[loc.Primary]

	if loc.Kind == KindImg {
		dom.SetAttr(n, "src", dataURL)
	} else {
		css := read(n)
		urls := backgroundURLs(css)
		if loc.Secondary < 0 || loc.Secondary >= len(urls) {
			return "", &LocatorError{Locator: loc, Count: len(urls), Err: ErrOutOfRange}
		}
		write(n, strings.Replace(css, urls[loc.Secondary], dataURL, 1))
	}
	out, err := d.Render()
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return out, nil
}
