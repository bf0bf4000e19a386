package papers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type CrossRef struct{ c *client }

// NewCrossRef queries api.crossref.org. mailto opts into the polite pool.
func NewCrossRef(base string, hc *http.Client, mailto string) *CrossRef {
	if base == "" {
		base = "https://api.crossref.org"
	}
	ua := "thesisai/1.0"
	if mailto != "" {
		ua += " (mailto:" + mailto + ")"
	}
	return &CrossRef{c: newClient(SourceCrossRef, base, hc, 10, ua)}
}

func (p *CrossRef) Name() string { return SourceCrossRef }

type crossrefResponse struct {
	Message struct {
		Items []struct {
			DOI            string   `json:"DOI"`
			Title          []string `json:"title"`
			URL            string   `json:"URL"`
			Abstract       string   `json:"abstract"`
			ContainerTitle []string `json:"container-title"`
			ReferencedBy   int      `json:"is-referenced-by-count"`
			Author         []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
				Name   string `json:"name"`
			} `json:"author"`
			Issued struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"issued"`
			License []crossrefLicense `json:"license"`
			Link    []struct {
				URL         string `json:"URL"`
				ContentType string `json:"content-type"`
			} `json:"link"`
		} `json:"items"`
	} `json:"message"`
}

func (p *CrossRef) Search(ctx context.Context, q Query) ([]Paper, error) {
	params := url.Values{
		"query": {q.Text},
		"rows":  {strconv.Itoa(rows(q))},
	}
	var filters []string
	if q.YearFrom > 0 {
		filters = append(filters, "from-pub-date:"+strconv.Itoa(q.YearFrom))
	}
	if q.YearTo > 0 {
		filters = append(filters, "until-pub-date:"+strconv.Itoa(q.YearTo))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	var resp crossrefResponse
	if err := p.c.getJSON(ctx, "/works", params, &resp); err != nil {
		return nil, err
	}
	out := make([]Paper, 0, len(resp.Message.Items))
	for _, it := range resp.Message.Items {
		if len(it.Title) == 0 {
			continue
		}
		paper := Paper{
			Title:      cleanText(it.Title[0]),
			Abstract:   cleanText(it.Abstract),
			DOI:        it.DOI,
			URL:        it.URL,
			Citations:  it.ReferencedBy,
			OpenAccess: openLicense(it.License),
			Sources:    []string{SourceCrossRef},
		}
		if len(it.ContainerTitle) > 0 {
			paper.Venue = it.ContainerTitle[0]
		}
		if len(it.Issued.DateParts) > 0 && len(it.Issued.DateParts[0]) > 0 {
			paper.Year = it.Issued.DateParts[0][0]
		}
		for _, a := range it.Author {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name == "" {
				name = a.Name
			}
			if name != "" {
				paper.Authors = append(paper.Authors, name)
			}
		}
		for _, l := range it.Link {
			if l.ContentType == "application/pdf" {
				paper.PDFURL = l.URL
				break
			}
		}
		out = append(out, paper)
	}
	return out, nil
}

type crossrefLicense struct {
	URL string `json:"URL"`
}

// openLicense treats Creative Commons licenses as open access.
func openLicense(ls []crossrefLicense) bool {
	for _, l := range ls {
		if strings.Contains(l.URL, "creativecommons.org") {
			return true
		}
	}
	return false
}
