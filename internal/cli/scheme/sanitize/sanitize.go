// Package sanitize turns user-submitted strings into plain terminal text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips every tag, decodes entities and collapses whitespace.
func Text(s string) string {
	cleaned := html.UnescapeString(strict.Sanitize(s))
	cleaned = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
