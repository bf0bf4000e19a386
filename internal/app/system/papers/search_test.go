package papers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubProvider struct {
	name   string
	papers []Paper
	err    error
	wait   time.Duration
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Search(ctx context.Context, _ Query) ([]Paper, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.papers, s.err
}

func TestSearchPartialFailure(t *testing.T) {
	s := NewWithProviders(time.Second, zaptest.NewLogger(t),
		stubProvider{name: SourceCrossRef, papers: []Paper{
			{Title: "Low", Citations: 1, DOI: "10.1/low", Sources: []string{SourceCrossRef}},
			{Title: "High", Citations: 10, DOI: "10.1/high", Sources: []string{SourceCrossRef}},
		}},
		stubProvider{name: SourceArXiv, err: errors.New("boom")},
		stubProvider{name: SourceOpenAlex, papers: []Paper{
			{Title: "high", Citations: 12, DOI: "https://doi.org/10.1/HIGH", Sources: []string{SourceOpenAlex}},
		}},
	)

	res, err := s.Search(context.Background(), Query{Text: "x", Limit: 10}, []string{SourceCrossRef, SourceArXiv, SourceOpenAlex})
	require.NoError(t, err)
	require.Len(t, res.Papers, 2)
	assert.Equal(t, "High", res.Papers[0].Title)
	assert.Equal(t, 12, res.Papers[0].Citations)
	assert.Equal(t, []string{SourceCrossRef, SourceOpenAlex}, res.Papers[0].Sources)

	require.Len(t, res.Sources, 3)
	assert.Equal(t, "unavailable", res.Sources[1].Error)
	assert.Equal(t, 2, res.Sources[0].Count)
}

func TestSearchAllFail(t *testing.T) {
	s := NewWithProviders(20*time.Millisecond, zaptest.NewLogger(t),
		stubProvider{name: SourceCrossRef, err: errors.New("down")},
		stubProvider{name: SourceArXiv, wait: time.Second},
	)
	_, err := s.Search(context.Background(), Query{Text: "x"}, nil)
	assert.ErrorIs(t, err, ErrAllFailed)
}

func TestSearchUnknownSource(t *testing.T) {
	s := NewWithProviders(time.Second, nil, stubProvider{name: SourceCrossRef})
	_, err := s.Search(context.Background(), Query{Text: "x"}, []string{"scopus"})
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.Equal(t, []string{SourceCrossRef}, s.Sources())
}
