package papers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAllFailed means every selected provider failed.
	ErrAllFailed = errors.New("papers: all providers failed")
	// ErrUnknownSource is returned for a source name with no provider.
	ErrUnknownSource = errors.New("papers: unknown source")
)

// SourceStatus reports how one provider did.
type SourceStatus struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
	Elapsed int64  `json:"elapsed_ms"`
}

type Result struct {
	Papers  []Paper        `json:"papers"`
	Sources []SourceStatus `json:"sources"`
}

type Config struct {
	HTTPClient         *http.Client
	Timeout            time.Duration // per provider
	Mailto             string
	SemanticScholarKey string
}

type Searcher struct {
	providers map[string]Provider
	timeout   time.Duration
	log       *zap.Logger
}

// New builds a Searcher over the four public providers.
func New(cfg Config, logger *zap.Logger) *Searcher {
	return NewWithProviders(cfg.Timeout, logger,
		NewCrossRef("", cfg.HTTPClient, cfg.Mailto),
		NewArXiv("", cfg.HTTPClient),
		NewOpenAlex("", cfg.HTTPClient, cfg.Mailto),
		NewSemanticScholar("", cfg.HTTPClient, cfg.SemanticScholarKey),
	)
}

func NewWithProviders(timeout time.Duration, logger *zap.Logger, ps ...Provider) *Searcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Searcher{providers: make(map[string]Provider, len(ps)), timeout: timeout, log: logger}
	for _, p := range ps {
		s.providers[p.Name()] = p
	}
	return s
}

// Search queries the named sources concurrently (every configured provider
// when sources is empty)
// and returns merged, ranked results. Failing providers are skipped; only
// when all of them fail is an error returned.
func (s *Searcher) Search(ctx context.Context, q Query, sources []string) (Result, error) {
	if len(sources) == 0 {
		sources = s.Sources()
	}
	selected := make([]Provider, 0, len(sources))
	seen := map[string]bool{}
	for _, name := range sources {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := s.providers[name]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
		selected = append(selected, p)
	}

	lists := make([][]Paper, len(selected))
	status := make([]SourceStatus, len(selected))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range selected {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			start := time.Now()
			papers, err := p.Search(pctx, q)
			st := SourceStatus{Name: p.Name(), Count: len(papers), Elapsed: time.Since(start).Milliseconds()}
			if err != nil {
				s.log.Warn("paper provider failed", zap.String("provider", p.Name()), zap.Error(err))
				st.Error = "unavailable"
				st.Count = 0
				mu.Lock()
				failed++
				mu.Unlock()
			} else {
				lists[i] = papers
			}
			status[i] = st
			// Provider failures never cancel the siblings.
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(selected) {
		return Result{Sources: status}, ErrAllFailed
	}
	return Result{Papers: Rank(Merge(lists...), q), Sources: status}, nil
}

// Sources lists the configured provider names.
func (s *Searcher) Sources() []string {
	out := make([]string, 0, len(s.providers))
	for _, name := range AllSources {
		if _, ok := s.providers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
