package papers

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type ArXiv struct{ c *client }

// NewArXiv queries the arXiv Atom API. arXiv asks for at most one request
// every three seconds.
func NewArXiv(base string, hc *http.Client) *ArXiv {
	if base == "" {
		base = "https://export.arxiv.org"
	}
	return &ArXiv{c: newClient(SourceArXiv, base, hc, 1.0/3, "thesisai/1.0")}
}

func (p *ArXiv) Name() string { return SourceArXiv }

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	ID        string `xml:"http://www.w3.org/2005/Atom id"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Summary   string `xml:"http://www.w3.org/2005/Atom summary"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Authors   []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"http://www.w3.org/2005/Atom link"`
	DOI        string `xml:"http://arxiv.org/schemas/atom doi"`
	JournalRef string `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

func (p *ArXiv) Search(ctx context.Context, q Query) ([]Paper, error) {
	params := url.Values{
		"search_query": {"all:" + q.Text},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(rows(q))},
		"sortBy":       {"relevance"},
	}
	var feed atomFeed
	if err := p.c.getXML(ctx, "/api/query", params, &feed); err != nil {
		return nil, err
	}
	out := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := cleanText(e.Title)
		if title == "" {
			continue
		}
		paper := Paper{
			Title:      title,
			Abstract:   cleanText(e.Summary),
			DOI:        strings.TrimSpace(e.DOI),
			URL:        strings.TrimSpace(e.ID),
			Venue:      cleanText(e.JournalRef),
			OpenAccess: true,
			Sources:    []string{SourceArXiv},
		}
		if paper.Venue == "" {
			paper.Venue = "arXiv"
		}
		if len(e.Published) >= 4 {
			paper.Year, _ = strconv.Atoi(e.Published[:4])
		}
		for _, a := range e.Authors {
			if n := strings.TrimSpace(a.Name); n != "" {
				paper.Authors = append(paper.Authors, n)
			}
		}
		for _, l := range e.Links {
			switch {
			case l.Title == "pdf" || l.Type == "application/pdf":
				paper.PDFURL = l.Href
			case l.Rel == "alternate" && paper.URL == "":
				paper.URL = l.Href
			}
		}
		out = append(out, paper)
	}
	return out, nil
}
