// Package sanitize strips markup from free-text fields before storage.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes tags, decodes entities, and strips again so that encoded
// tags cannot survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes user-provided text such as notes, reasons and activity
// descriptions. Runs of blank lines collapse to one blank line.
func Text(s string) string {
	result := strings.ReplaceAll(StripHTML(s), "\r\n", "\n")
	return blankLinesRegex.ReplaceAllString(result, "\n\n")
}
