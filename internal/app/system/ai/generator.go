// Package ai wraps the text-generation model behind a small interface and
// holds the catalog of writing tools that render prompts for it.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrUnavailable means no model is configured.
var ErrUnavailable = errors.New("ai: generator unavailable")

// ErrEmptyOutput is returned when the model answered with no text.
var ErrEmptyOutput = errors.New("ai: empty model output")

// Request is one prompt sent to a Generator.
type Request struct {
	System          string
	Prompt          string
	JSON            bool
	Temperature     float32
	MaxOutputTokens int32
}

// Result is the model's answer.
type Result struct {
	Text  string
	Model string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

const DefaultModel = "gemini-2.5-flash"

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini generator. A blank apiKey returns (nil, nil) so
// callers can treat the feature as switched off.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, nil
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (Result, error) {
	if g == nil {
		return Result{}, ErrUnavailable
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return Result{}, fmt.Errorf("genai generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, ErrEmptyOutput
	}
	return Result{Text: text, Model: g.model}, nil
}

// Available reports whether gen can be called. It handles typed nil pointers
// stored in the interface.
func Available(gen Generator) bool {
	if gen == nil {
		return false
	}
	if g, ok := gen.(*Gemini); ok && g == nil {
		return false
	}
	return true
}
