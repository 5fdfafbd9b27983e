package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders the report as a simple A4 PDF. Text goes through the
// cp1252 translator of the core fonts, so characters outside that code page
// are replaced.
func (r *Report) WritePDF(ctx context.Context, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	heading := func(text string, size float64) {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", size)
		pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	line := func(text string) {
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}

	heading(r.Title, 16)

	heading("Template fields", 13)
	for _, f := range r.Fields {
		line("- {{ " + f + " }}")
	}

	heading("Hard-coded text", 13)
	for _, t := range r.HardTexts {
		line("- " + t)
	}

	heading("Editable fields", 13)
	for _, ref := range r.Refs {
		pdf.SetFont("Courier", "", 9)
		pdf.CellFormat(0, 5, tr(ref.Address+"  "+ref.Where()), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		line(ref.Display)
	}

	heading("Images", 13)
	for _, e := range r.Images {
		desc := fmt.Sprintf("%s  %s  %s  %s  %s", e.ID, e.Source, e.MIME, e.Size(), e.Locator)
		if b := payloadSize(e); b != "" {
			desc += "  " + b
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(desc), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		where := e.Hint
		if f := r.Files[e.ID]; f != "" {
			where = f
		}
		if len(where) > 120 {
			where = where[:117] + "..."
		}
		line(where)
		if thumb := r.thumbnail(ctx, e); thumb != nil {
			name := "thumb-" + e.ID
			opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
			pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(thumb))
			// 264x200 px at 96 dpi is roughly 70x53 mm
			pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 70, 0, true, opt, 0, "")
			pdf.Ln(2)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
