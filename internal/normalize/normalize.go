// Package normalize holds the text rules shared by extraction and patching:
// whitespace collapsing and detection of template markers ({{ … }} and
// {% … %} spans).
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	wsRe     = regexp.MustCompile(`\s+`)
	markerRe = regexp.MustCompile(`(?s)(\{\{.*?\}\}|\{%.+?%\})`)
)

// Normalize collapses every whitespace run to a single space and trims both ends.
func Normalize(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// HasTemplateMarker reports whether s contains a template expression or statement.
func HasTemplateMarker(s string) bool {
	return markerRe.MatchString(s)
}

// StripTemplateMarkers removes all marker spans and normalizes the remainder.
func StripTemplateMarkers(s string) string {
	return Normalize(markerRe.ReplaceAllString(s, ""))
}

// CountTemplateMarkers returns the number of marker spans in s.
func CountTemplateMarkers(s string) int {
	return len(markerRe.FindAllStringIndex(s, -1))
}

// MarkerSpans returns the [start, end) byte offsets of every marker in s.
func MarkerSpans(s string) [][]int {
	return markerRe.FindAllStringIndex(s, -1)
}

// CleanEdit prepares caller supplied replacement text: NFC composition,
// then Normalize.
func CleanEdit(s string) string {
	return Normalize(norm.NFC.String(s))
}
