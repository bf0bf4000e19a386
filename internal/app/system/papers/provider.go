package papers

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Provider searches one metadata source.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Paper, error)
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
}

const maxBody = 8 << 20

// client is the HTTP plumbing shared by the providers. Each provider owns its
// limiter so a slow source cannot starve the others.
type client struct {
	name      string
	base      string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	header    http.Header
}

func newClient(name, base string, hc *http.Client, perSecond float64, userAgent string) *client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &client{
		name:      name,
		base:      base,
		http:      hc,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		userAgent: userAgent,
		header:    http.Header{},
	}
}

func (c *client) get(ctx context.Context, path string, params url.Values) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Provider: c.name, Code: resp.StatusCode}
	}
	return resp.Body, nil
}

func (c *client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(io.LimitReader(body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", c.name, err)
	}
	return nil
}

func (c *client) getXML(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := xml.NewDecoder(io.LimitReader(body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", c.name, err)
	}
	return nil
}

func rows(q Query) int {
	n := q.Limit
	if n <= 0 {
		n = 20
	}
	if n > 100 {
		n = 100
	}
	return n
}
