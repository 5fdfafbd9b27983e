package textnode

import (
	"strconv"
	"strings"
	"testing"
)

// Benchmark Extract and Apply on documents of increasing size.
func BenchmarkExtract(b *testing.B) {
	small := makeDoc(5)
	large := makeDoc(400)

	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Extract(small)
		}
	})
	b.Run("large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Extract(large)
		}
	})
}

func BenchmarkApply(b *testing.B) {
	doc := makeDoc(400)
	edits := EditSet{"TEXT|p|body|200": "Replaced", "STATUS|Gold": "Top"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Apply(doc, edits)
	}
}

func makeDoc(sections int) string {
	builder := new(strings.Builder)
	builder.WriteString("<!DOCTYPE html><html><head><style>p{margin:0}</style></head><body>")
	for i := 0; i < sections; i++ {
		builder.WriteString(`<h2 class="title">Section `)
		builder.WriteString(strconv.Itoa(i))
		builder.WriteString(`</h2><p class="body">Paragraph text for {{ name }}</p><span>Plain</span>`)
	}
	builder.WriteString(`<p class="status">{% if status == "Gold" %} Great job {% elif status == "Silver" %} Good job {% endif %}</p>`)
	builder.WriteString("</body></html>")
	return builder.String()
}
