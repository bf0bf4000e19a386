package papers

import (
	"sort"
	"strings"
)

// Merge deduplicates papers by DOI, falling back to the folded title.
// Merged entries union their sources and keep the highest citation count;
// missing fields are filled from later duplicates.
func Merge(lists ...[]Paper) []Paper {
	var out []Paper
	byDOI := map[string]int{}
	byTitle := map[string]int{}

	for _, list := range lists {
		for _, p := range list {
			p.DOI = NormalizeDOI(p.DOI)
			tk := TitleKey(p.Title)
			if tk == "" && p.DOI == "" {
				continue
			}
			idx, ok := -1, false
			if p.DOI != "" {
				idx, ok = byDOI[p.DOI]
			}
			if !ok && tk != "" {
				idx, ok = byTitle[tk]
				// Two different DOIs with the same title are different works.
				if ok && p.DOI != "" && out[idx].DOI != "" && out[idx].DOI != p.DOI {
					ok = false
				}
			}
			if !ok {
				p.Sources = uniqueSorted(p.Sources)
				out = append(out, p)
				idx = len(out) - 1
			} else {
				mergeInto(&out[idx], p)
			}
			if out[idx].DOI != "" {
				byDOI[out[idx].DOI] = idx
			}
			if tk != "" {
				if _, seen := byTitle[tk]; !seen {
					byTitle[tk] = idx
				}
			}
		}
	}
	return out
}

func mergeInto(dst *Paper, src Paper) {
	if src.Citations > dst.Citations {
		dst.Citations = src.Citations
	}
	dst.OpenAccess = dst.OpenAccess || src.OpenAccess
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.Venue == "" {
		dst.Venue = src.Venue
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	dst.Sources = uniqueSorted(append(dst.Sources, src.Sources...))
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Rank filters by q, sorts by citations (then year, then title) and truncates
// to q.Limit.
func Rank(papers []Paper, q Query) []Paper {
	out := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Citations != b.Citations {
			return a.Citations > b.Citations
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
