// Package htmlsanitize cleans user-supplied content before it is stored.
//
// Rich content (document bodies, study guide sections) keeps a safe subset of
// HTML. Short text (messages, titles, flashcards) is reduced to plain text.
package htmlsanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich  = newRichPolicy()
	plain = bluemonday.StrictPolicy()

	tagRe = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("table", "th", "td", "code", "pre", "span")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Sanitize keeps safe rich-text HTML and strips scripts, event handlers,
// javascript: URLs, iframes, forms, and styles.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return rich.Sanitize(s)
}

// PlainText removes every tag and trims surrounding whitespace. HTML entities
// produced by the policy are left escaped.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(plain.Sanitize(s))
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !tagRe.MatchString(s)
}
