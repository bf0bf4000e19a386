package ai

import (
	"context"
	"strings"

	"github.com/zerlake/thesisai/internal/domain/models"
)

// Material generates structured study material with the hidden catalog tools.
type Material struct {
	Gen     Generator
	Catalog *Catalog
}

func (m Material) run(ctx context.Context, toolID string, input map[string]string, out any) error {
	if !Available(m.Gen) {
		return ErrUnavailable
	}
	t, err := m.Catalog.Internal(toolID)
	if err != nil {
		return err
	}
	req, err := t.Request(input)
	if err != nil {
		return err
	}
	res, err := m.Gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(res.Text, out)
}

// StudyGuide returns generated sections, dropping empty ones.
func (m Material) StudyGuide(ctx context.Context, topic, sourceText string) ([]models.StudyGuideSection, error) {
	var raw []models.StudyGuideSection
	if err := m.run(ctx, "study-guide", map[string]string{"topic": topic, "source_text": sourceText}, &raw); err != nil {
		return nil, err
	}
	out := raw[:0]
	for _, s := range raw {
		s.Heading, s.Content = strings.TrimSpace(s.Heading), strings.TrimSpace(s.Content)
		if s.Heading != "" && s.Content != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrBadOutput
	}
	return out, nil
}

// Flashcards returns generated cards, dropping incomplete ones.
func (m Material) Flashcards(ctx context.Context, topic, sourceText, count string) ([]models.Flashcard, error) {
	var raw []models.Flashcard
	if err := m.run(ctx, "flashcards", map[string]string{"topic": topic, "source_text": sourceText, "count": count}, &raw); err != nil {
		return nil, err
	}
	out := raw[:0]
	for _, c := range raw {
		c.Front, c.Back = strings.TrimSpace(c.Front), strings.TrimSpace(c.Back)
		if c.Front != "" && c.Back != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrBadOutput
	}
	return out, nil
}

// DefenseQuestions returns generated panel questions.
func (m Material) DefenseQuestions(ctx context.Context, thesisTitle, abstract, count string) ([]models.DefenseQuestion, error) {
	var raw []models.DefenseQuestion
	if err := m.run(ctx, "defense-questions", map[string]string{"thesis_title": thesisTitle, "abstract": abstract, "count": count}, &raw); err != nil {
		return nil, err
	}
	out := raw[:0]
	for _, q := range raw {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, ErrBadOutput
	}
	return out, nil
}

// DefenseAnswer is a prepared answer to a panel question with its talking
// points.
type DefenseAnswer struct {
	Response  string   `json:"response"`
	KeyPoints []string `json:"key_points"`
	Citations []string `json:"citations"`
}

// DefenseResponse answers a question about a research instrument. Empty
// points and citations are dropped.
func (m Material) DefenseResponse(ctx context.Context, input map[string]string) (DefenseAnswer, error) {
	var a DefenseAnswer
	if err := m.run(ctx, "defense-response", input, &a); err != nil {
		return DefenseAnswer{}, err
	}
	a.Response = strings.TrimSpace(a.Response)
	if a.Response == "" {
		return DefenseAnswer{}, ErrBadOutput
	}
	a.KeyPoints = nonEmpty(a.KeyPoints)
	a.Citations = nonEmpty(a.Citations)
	return a, nil
}

func nonEmpty(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
