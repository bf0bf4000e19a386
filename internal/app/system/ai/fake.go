package ai

import (
	"context"
	"sync"
)

// Fake is a Generator returning canned text. It records every request.
type Fake struct {
	Text  string
	Err   error
	Model string

	mu       sync.Mutex
	requests []Request
}

func (f *Fake) Generate(_ context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Err != nil {
		return Result{}, f.Err
	}
	model := f.Model
	if model == "" {
		model = "fake"
	}
	return Result{Text: f.Text, Model: model}, nil
}

// Requests returns a copy of the requests seen so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
