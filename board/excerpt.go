package board

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// ExcerptLength bounds card previews in runes.
const ExcerptLength = 160

// Excerpt renders content as a short plain-text preview. Stored content is left untouched.
func Excerpt(content string) string {
	text := html.UnescapeString(plainText.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:ExcerptLength])) + "…"
}
