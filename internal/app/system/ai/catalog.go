package ai

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var toolsYAML []byte

// ErrToolNotFound is returned by Catalog.Get for unknown or hidden ids.
var ErrToolNotFound = errors.New("ai: tool not found")

// InputError lists missing or oversized inputs.
type InputError struct {
	Missing []string
	TooLong []string
}

func (e *InputError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.TooLong) > 0 {
		parts = append(parts, "too long "+strings.Join(e.TooLong, ", "))
	}
	return "ai: invalid input: " + strings.Join(parts, "; ")
}

// Fields maps each bad field to a short reason, for validation envelopes.
func (e *InputError) Fields() map[string]string {
	out := make(map[string]string, len(e.Missing)+len(e.TooLong))
	for _, f := range e.Missing {
		out[f] = "required"
	}
	for _, f := range e.TooLong {
		out[f] = "too long"
	}
	return out
}

type Input struct {
	Name      string `yaml:"name" json:"name"`
	Required  bool   `yaml:"required" json:"required"`
	MaxLength int    `yaml:"max_length" json:"max_length,omitempty"`
}

type Tool struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Inputs      []Input `yaml:"inputs" json:"inputs"`
	System      string  `yaml:"system" json:"-"`
	Prompt      string  `yaml:"prompt" json:"-"`
	JSON        bool    `yaml:"json" json:"-"`
	Hidden      bool    `yaml:"hidden" json:"-"`
	Temperature float32 `yaml:"temperature" json:"-"`

	tmpl *template.Template
}

type Catalog struct {
	tools map[string]*Tool
	order []string
}

// LoadCatalog parses the embedded tool definitions.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(toolsYAML)
}

// ParseCatalog parses tool definitions from YAML and compiles their prompts.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Tools []*Tool `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tool catalog: %w", err)
	}
	c := &Catalog{tools: make(map[string]*Tool, len(doc.Tools))}
	for _, t := range doc.Tools {
		if t.ID == "" {
			return nil, errors.New("tool catalog: tool without id")
		}
		if _, dup := c.tools[t.ID]; dup {
			return nil, fmt.Errorf("tool catalog: duplicate id %q", t.ID)
		}
		if strings.TrimSpace(t.Prompt) == "" {
			return nil, fmt.Errorf("tool catalog: %s has no prompt", t.ID)
		}
		tmpl, err := template.New(t.ID).Option("missingkey=zero").Parse(t.Prompt)
		if err != nil {
			return nil, fmt.Errorf("tool catalog: %s: %w", t.ID, err)
		}
		t.tmpl = tmpl
		c.tools[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

// Get returns a public tool.
func (c *Catalog) Get(id string) (*Tool, error) {
	t, ok := c.tools[id]
	if !ok || t.Hidden {
		return nil, ErrToolNotFound
	}
	return t, nil
}

// Internal returns any tool, hidden ones included.
func (c *Catalog) Internal(id string) (*Tool, error) {
	t, ok := c.tools[id]
	if !ok {
		return nil, ErrToolNotFound
	}
	return t, nil
}

// List returns the public tools sorted by id.
func (c *Catalog) List() []*Tool {
	out := make([]*Tool, 0, len(c.order))
	for _, id := range c.order {
		if t := c.tools[id]; !t.Hidden {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks input against the tool's declared fields. Unknown keys are
// ignored.
func (t *Tool) Validate(input map[string]string) error {
	var e InputError
	for _, in := range t.Inputs {
		v := strings.TrimSpace(input[in.Name])
		if in.Required && v == "" {
			e.Missing = append(e.Missing, in.Name)
			continue
		}
		if in.MaxLength > 0 && len([]rune(v)) > in.MaxLength {
			e.TooLong = append(e.TooLong, in.Name)
		}
	}
	if len(e.Missing) > 0 || len(e.TooLong) > 0 {
		return &e
	}
	return nil
}

// Request validates input and renders the tool's prompt.
func (t *Tool) Request(input map[string]string) (Request, error) {
	if err := t.Validate(input); err != nil {
		return Request{}, err
	}
	data := make(map[string]string, len(t.Inputs))
	for _, in := range t.Inputs {
		data[in.Name] = strings.TrimSpace(input[in.Name])
	}
	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return Request{}, fmt.Errorf("render %s: %w", t.ID, err)
	}
	return Request{
		System:      strings.TrimSpace(t.System),
		Prompt:      strings.TrimSpace(b.String()),
		JSON:        t.JSON,
		Temperature: t.Temperature,
	}, nil
}
