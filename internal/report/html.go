package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"

	"github.com/hyperifyio/htmledit/internal/textnode"
)

var page = template.Must(template.New("report").Parse(`<!doctype html>
<html><head><meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Arial, sans-serif; margin: 24px; }
  h2 { margin-top: 28px; }
  ul { line-height: 1.6; }
  table { border-collapse: collapse; }
  td, th { border: 1px solid #ddd; padding: 4px 8px; text-align: left; vertical-align: top; }
  .grid { display: grid; grid-template-columns: 1fr; gap: 12px; }
  .card { border: 1px solid #ddd; border-radius: 12px; padding: 12px; }
  .path { margin-top: 6px; color: #555; }
  img { display: block; margin-top: 10px; border: 1px solid #eee; }
  code { background: #f6f6f6; padding: 2px 5px; border-radius: 6px; }
</style>
</head><body>
<h1>{{.Title}}</h1>
<h2>Template fields ({{"{{ ... }}"}})</h2>
<ul>
{{- range .Fields}}
<li><code>{{.}}</code></li>
{{- end}}
</ul>
<h2>Hard-coded text</h2>
<ul>
{{- range .HardTexts}}
<li>{{.}}</li>
{{- end}}
</ul>
<h2>Editable fields</h2>
<table>
<tr><th>Address</th><th>Location</th><th>Text</th></tr>
{{- range .Refs}}
<tr><td><code>{{.Address}}</code></td><td>{{.Where}}</td><td>{{.Display}}</td></tr>
{{- end}}
</table>
<h2>Images</h2>
<div class="grid">
{{- range .Images}}
<div class="card">
<div><b>{{.ID}}</b> · {{.Source}} · <code>{{.MIME}}</code> · {{.Size}}{{if .Bytes}} · {{.Bytes}}{{end}} · <code>{{.Locator}}</code></div>
<div class="path"><code>{{if .File}}{{.File}}{{else}}{{.Hint}}{{end}}</code></div>
{{- if .Preview}}
<img src="{{.Preview}}" alt="{{.ID}}"/>
{{- end}}
</div>
{{- end}}
</div>
</body></html>
`))

type imageView struct {
	ID      string
	Source  string
	MIME    string
	Size    string
	Bytes   string
	Locator string
	Hint    string
	File    string
	Preview template.URL
}

type pageView struct {
	Title     string
	Fields    []string
	HardTexts []string
	Refs      []textnode.Ref
	Images    []imageView
}

// WriteHTML renders the report as a standalone HTML page. Embedded images get
// an inline PNG preview.
func (r *Report) WriteHTML(ctx context.Context, w io.Writer) error {
	v := pageView{Title: r.Title, Fields: r.Fields, HardTexts: r.HardTexts, Refs: r.Refs}
	for _, e := range r.Images {
		iv := imageView{
			ID:      e.ID,
			Source:  string(e.Source),
			MIME:    e.MIME,
			Size:    e.Size(),
			Bytes:   payloadSize(e),
			Locator: e.Locator.String(),
			Hint:    e.Hint,
			File:    r.Files[e.ID],
		}
		if thumb := r.thumbnail(ctx, e); thumb != nil {
			iv.Preview = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(thumb))
		}
		v.Images = append(v.Images, iv)
	}
	if err := page.Execute(w, v); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
