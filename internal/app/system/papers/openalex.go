package papers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type OpenAlex struct {
	c      *client
	mailto string
}

func NewOpenAlex(base string, hc *http.Client, mailto string) *OpenAlex {
	if base == "" {
		base = "https://api.openalex.org"
	}
	return &OpenAlex{c: newClient(SourceOpenAlex, base, hc, 10, "thesisai/1.0"), mailto: mailto}
}

func (p *OpenAlex) Name() string { return SourceOpenAlex }

type openAlexResponse struct {
	Results []struct {
		ID              string           `json:"id"`
		DOI             string           `json:"doi"`
		Title           string           `json:"title"`
		DisplayName     string           `json:"display_name"`
		PublicationYear int              `json:"publication_year"`
		CitedByCount    int              `json:"cited_by_count"`
		AbstractIndex   map[string][]int `json:"abstract_inverted_index"`
		Authorships     []struct {
			Author struct {
				DisplayName string `json:"display_name"`
			} `json:"author"`
		} `json:"authorships"`
		PrimaryLocation *struct {
			LandingPageURL string `json:"landing_page_url"`
			PDFURL         string `json:"pdf_url"`
			Source         *struct {
				DisplayName string `json:"display_name"`
			} `json:"source"`
		} `json:"primary_location"`
		OpenAccess struct {
			IsOA  bool   `json:"is_oa"`
			OAURL string `json:"oa_url"`
		} `json:"open_access"`
	} `json:"results"`
}

func (p *OpenAlex) Search(ctx context.Context, q Query) ([]Paper, error) {
	params := url.Values{
		"search":   {q.Text},
		"per-page": {strconv.Itoa(rows(q))},
	}
	if p.mailto != "" {
		params.Set("mailto", p.mailto)
	}
	var filters []string
	if q.YearFrom > 0 {
		filters = append(filters, "from_publication_date:"+strconv.Itoa(q.YearFrom)+"-01-01")
	}
	if q.YearTo > 0 {
		filters = append(filters, "to_publication_date:"+strconv.Itoa(q.YearTo)+"-12-31")
	}
	if q.OpenAccessOnly {
		filters = append(filters, "is_oa:true")
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	var resp openAlexResponse
	if err := p.c.getJSON(ctx, "/works", params, &resp); err != nil {
		return nil, err
	}
	out := make([]Paper, 0, len(resp.Results))
	for _, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.DisplayName
		}
		if title = cleanText(title); title == "" {
			continue
		}
		paper := Paper{
			Title:      title,
			Abstract:   invertedAbstract(r.AbstractIndex),
			Year:       r.PublicationYear,
			DOI:        r.DOI,
			URL:        r.ID,
			Citations:  r.CitedByCount,
			OpenAccess: r.OpenAccess.IsOA,
			Sources:    []string{SourceOpenAlex},
		}
		if loc := r.PrimaryLocation; loc != nil {
			if loc.LandingPageURL != "" {
				paper.URL = loc.LandingPageURL
			}
			paper.PDFURL = loc.PDFURL
			if loc.Source != nil {
				paper.Venue = loc.Source.DisplayName
			}
		}
		if paper.PDFURL == "" && r.OpenAccess.OAURL != "" {
			paper.PDFURL = r.OpenAccess.OAURL
		}
		for _, a := range r.Authorships {
			if a.Author.DisplayName != "" {
				paper.Authors = append(paper.Authors, a.Author.DisplayName)
			}
		}
		out = append(out, paper)
	}
	return out, nil
}

// invertedAbstract rebuilds text from OpenAlex's word -> positions index.
func invertedAbstract(idx map[string][]int) string {
	if len(idx) == 0 {
		return ""
	}
	type wp struct {
		pos  int
		word string
	}
	var words []wp
	for w, ps := range idx {
		for _, p := range ps {
			words = append(words, wp{p, w})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })
	parts := make([]string, 0, len(words))
	last := -1
	for _, w := range words {
		if w.pos == last {
			continue
		}
		parts = append(parts, w.word)
		last = w.pos
	}
	return strings.Join(parts, " ")
}
