// Package papers searches academic metadata providers and merges the results.
package papers

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Provider names, also the values accepted by ?sources=.
const (
	SourceCrossRef        = "crossref"
	SourceArXiv           = "arxiv"
	SourceOpenAlex        = "openalex"
	SourceSemanticScholar = "semantic_scholar"
)

// AllSources lists every provider in default query order.
var AllSources = []string{SourceCrossRef, SourceArXiv, SourceOpenAlex, SourceSemanticScholar}

type Paper struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	Abstract   string   `json:"abstract,omitempty"`
	Year       int      `json:"year,omitempty"`
	Venue      string   `json:"venue,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	URL        string   `json:"url,omitempty"`
	PDFURL     string   `json:"pdf_url,omitempty"`
	Citations  int      `json:"citations"`
	OpenAccess bool     `json:"open_access"`
	Sources    []string `json:"sources"`
}

// Query is one search.
type Query struct {
	Text           string
	Limit          int
	YearFrom       int
	YearTo         int
	OpenAccessOnly bool
}

// Matches reports whether p passes the year and open-access filters.
// Papers without a year are dropped only when a year bound is set.
func (q Query) Matches(p Paper) bool {
	if q.YearFrom > 0 && (p.Year == 0 || p.Year < q.YearFrom) {
		return false
	}
	if q.YearTo > 0 && (p.Year == 0 || p.Year > q.YearTo) {
		return false
	}
	if q.OpenAccessOnly && !p.OpenAccess {
		return false
	}
	return true
}

// NormalizeDOI strips resolver prefixes and lower-cases a DOI.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(strings.ToLower(doi))
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, p)
	}
	return strings.TrimSpace(d)
}

var nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// TitleKey folds a title for duplicate detection.
func TitleKey(title string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(text.Fold(title), " "))
}

var tags = regexp.MustCompile(`<[^>]+>`)

// cleanText removes markup (CrossRef abstracts are JATS) and collapses space.
func cleanText(s string) string {
	return strings.Join(strings.Fields(tags.ReplaceAllString(s, " ")), " ")
}
