// Package report builds an inspection report of a templated HTML document:
// the template fields it references, the hard-coded texts it contains, the
// editable refs and the images. Reports render to HTML or PDF and can dump
// embedded images to a directory.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/htmledit/internal/cache"
	"github.com/hyperifyio/htmledit/internal/conditional"
	"github.com/hyperifyio/htmledit/internal/dom"
	"github.com/hyperifyio/htmledit/internal/imageprobe"
	"github.com/hyperifyio/htmledit/internal/images"
	"github.com/hyperifyio/htmledit/internal/normalize"
	"github.com/hyperifyio/htmledit/internal/textnode"
)

// MaxTextLen is the length above which a text run is treated as CSS or
// payload noise rather than content.
const MaxTextLen = 400

var fieldRe = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

var hardTextSkip = map[string]bool{"style": true, "script": true, "head": true, "title": true, "meta": true, "link": true}

// Options configures Build.
type Options struct {
	Title  string
	Status conditional.Block
	// Thumbnail box for previews; imageprobe defaults when zero.
	ThumbWidth, ThumbHeight int
	// Thumbs caches rendered previews when set.
	Thumbs *cache.Store
}

// Report is the inspection result for one document.
type Report struct {
	Title     string
	Fields    []string
	HardTexts []string
	Refs      []textnode.Ref
	Images    []images.Entry
	// Files maps image IDs to paths written by ExtractImages.
	Files map[string]string

	opts Options
}

// Build inspects doc.
func Build(doc string, opts Options) (*Report, error) {
	r := &Report{Title: opts.Title, Files: map[string]string{}, opts: opts}
	if r.Title == "" {
		r.Title = "Template inspection report"
	}
	r.Fields = templateFields(doc)

	d, err := dom.Parse(doc)
	if err != nil {
		return nil, err
	}
	r.HardTexts = hardTexts(d)

	if r.Refs, err = (textnode.Scanner{Status: opts.Status}).Extract(doc); err != nil {
		return nil, fmt.Errorf("extract texts: %w", err)
	}
	if r.Images, err = images.Extract(doc); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}
	return r, nil
}

// templateFields lists distinct {{ name }} expressions in first-seen order.
func templateFields(doc string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range fieldRe.FindAllStringSubmatch(doc, -1) {
		f := strings.TrimSpace(m[1])
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// hardTexts lists distinct visible text runs of the body.
func hardTexts(d *dom.Document) []string {
	start := d.First("body")
	if start == nil {
		start = d.Root()
	}
	var out []string
	seen := map[string]bool{}
	dom.Walk(start, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hardTextSkip[n.Data] {
			return false
		}
		if n.Type != html.TextNode {
			return true
		}
		s := normalize.Normalize(n.Data)
		if serviceText(s) || utf8.RuneCountInString(s) < 2 || seen[s] {
			return true
		}
		seen[s] = true
		out = append(out, s)
		return true
	})
	return out
}

// serviceText reports text that is markup plumbing rather than content:
// directives, CSS leaking into text, or inline payloads.
func serviceText(s string) bool {
	switch {
	case s == "":
		return true
	case utf8.RuneCountInString(s) > MaxTextLen:
		return true
	case strings.Contains(s, "{% ") || strings.Contains(s, "%}"):
		return true
	case strings.HasPrefix(s, ":root") || strings.Contains(s, "font-family:") || strings.Contains(s, "box-sizing:"):
		return true
	case strings.Contains(s, "data:image") && strings.Contains(s, "base64"):
		return true
	}
	return false
}

// ExtractImages writes every embedded image to dir as <id>.<format> and
// records the paths in r.Files. External references are skipped.
func (r *Report) ExtractImages(dir string) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, errors.New("empty images dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create images dir: %w", err)
	}
	n := 0
	for _, e := range r.Images {
		if !e.Inline() || len(e.Data) == 0 {
			continue
		}
		p := filepath.Join(dir, strings.ToLower(e.ID)+"."+e.Format)
		if err := os.WriteFile(p, e.Data, 0o644); err != nil {
			return n, fmt.Errorf("write %s: %w", p, err)
		}
		r.Files[e.ID] = p
		n++
	}
	return n, nil
}

// payloadSize formats the size of an embedded payload, or "" for linked images.
func payloadSize(e images.Entry) string {
	if len(e.Data) == 0 {
		return ""
	}
	return humanize.Bytes(uint64(len(e.Data)))
}

// thumbnail renders the preview for e, or nil when e has no decodable data.
func (r *Report) thumbnail(ctx context.Context, e images.Entry) []byte {
	if len(e.Data) == 0 || !e.HasSize {
		return nil
	}
	w, h := r.opts.ThumbWidth, r.opts.ThumbHeight
	if w <= 0 {
		w = imageprobe.DefaultThumbWidth
	}
	if h <= 0 {
		h = imageprobe.DefaultThumbHeight
	}
	key := cache.KeyFromBytes(strconv.Itoa(w)+"x"+strconv.Itoa(h), e.Data)
	if r.opts.Thumbs != nil {
		if b, ok, _ := r.opts.Thumbs.Get(ctx, key); ok {
			return b
		}
	}
	b, err := imageprobe.Thumbnail(e.Data, w, h)
	if err != nil {
		log.Debug().Err(err).Str("id", e.ID).Msg("thumbnail failed")
		return nil
	}
	if r.opts.Thumbs != nil {
		_ = r.opts.Thumbs.Save(ctx, key, b)
	}
	return b
}
