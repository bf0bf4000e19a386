package papers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type SemanticScholar struct{ c *client }

// NewSemanticScholar queries the Graph API. Without an API key the shared
// pool allows roughly one request per second.
func NewSemanticScholar(base string, hc *http.Client, apiKey string) *SemanticScholar {
	if base == "" {
		base = "https://api.semanticscholar.org"
	}
	perSecond := 1.0
	if apiKey != "" {
		perSecond = 10
	}
	c := newClient(SourceSemanticScholar, base, hc, perSecond, "thesisai/1.0")
	if apiKey != "" {
		c.header.Set("x-api-key", apiKey)
	}
	return &SemanticScholar{c: c}
}

func (p *SemanticScholar) Name() string { return SourceSemanticScholar }

const s2Fields = "title,abstract,year,authors,venue,citationCount,externalIds,url,isOpenAccess,openAccessPdf"

type s2Response struct {
	Data []struct {
		PaperID       string `json:"paperId"`
		Title         string `json:"title"`
		Abstract      string `json:"abstract"`
		Year          int    `json:"year"`
		Venue         string `json:"venue"`
		CitationCount int    `json:"citationCount"`
		URL           string `json:"url"`
		IsOpenAccess  bool   `json:"isOpenAccess"`
		ExternalIDs   struct {
			DOI string `json:"DOI"`
		} `json:"externalIds"`
		OpenAccessPDF *struct {
			URL string `json:"url"`
		} `json:"openAccessPdf"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

func (p *SemanticScholar) Search(ctx context.Context, q Query) ([]Paper, error) {
	params := url.Values{
		"query":  {q.Text},
		"limit":  {strconv.Itoa(rows(q))},
		"fields": {s2Fields},
	}
	switch {
	case q.YearFrom > 0 && q.YearTo > 0:
		params.Set("year", strconv.Itoa(q.YearFrom)+"-"+strconv.Itoa(q.YearTo))
	case q.YearFrom > 0:
		params.Set("year", strconv.Itoa(q.YearFrom)+"-")
	case q.YearTo > 0:
		params.Set("year", "-"+strconv.Itoa(q.YearTo))
	}
	if q.OpenAccessOnly {
		params.Set("openAccessPdf", "")
	}
	var resp s2Response
	if err := p.c.getJSON(ctx, "/graph/v1/paper/search", params, &resp); err != nil {
		return nil, err
	}
	out := make([]Paper, 0, len(resp.Data))
	for _, d := range resp.Data {
		title := cleanText(d.Title)
		if title == "" {
			continue
		}
		paper := Paper{
			Title:      title,
			Abstract:   cleanText(d.Abstract),
			Year:       d.Year,
			Venue:      d.Venue,
			DOI:        d.ExternalIDs.DOI,
			URL:        d.URL,
			Citations:  d.CitationCount,
			OpenAccess: d.IsOpenAccess,
			Sources:    []string{SourceSemanticScholar},
		}
		if paper.URL == "" && d.PaperID != "" {
			paper.URL = "https://www.semanticscholar.org/paper/" + d.PaperID
		}
		if d.OpenAccessPDF != nil {
			paper.PDFURL = d.OpenAccessPDF.URL
		}
		for _, a := range d.Authors {
			if a.Name != "" {
				paper.Authors = append(paper.Authors, a.Name)
			}
		}
		out = append(out, paper)
	}
	return out, nil
}
