package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	var ids []string
	for _, tool := range c.List() {
		ids = append(ids, tool.ID)
		assert.NotEmpty(t, tool.Name, tool.ID)
		assert.NotEmpty(t, tool.Prompt, tool.ID)
		var required int
		for _, in := range tool.Inputs {
			if in.Required {
				required++
			}
		}
		assert.Positive(t, required, "%s declares no required input", tool.ID)
	}
	assert.Equal(t, []string{
		"citation-generator",
		"content-improver",
		"grammar-checker",
		"outline-generator",
		"research-gap-analyzer",
		"topic-ideation",
	}, ids)

	for _, hidden := range []string{"study-guide", "flashcards", "defense-questions", "defense-response"} {
		_, err := c.Get(hidden)
		assert.ErrorIs(t, err, ErrToolNotFound, hidden)
		tool, err := c.Internal(hidden)
		require.NoError(t, err, hidden)
		assert.True(t, tool.JSON, hidden)
	}
}

func TestToolRequest(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	tool, err := c.Get("topic-ideation")
	require.NoError(t, err)

	req, err := tool.Request(map[string]string{"field": " Marine biology ", "ignored": "x"})
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "Suggest 5 thesis topics in Marine biology.")
	assert.NotContains(t, req.Prompt, "interested in")
	assert.NotContains(t, req.Prompt, "<no value>")
	assert.NotEmpty(t, req.System)
	assert.False(t, req.JSON)

	req, err = tool.Request(map[string]string{"field": "CS", "interests": "compilers", "count": "3"})
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "Suggest 3 thesis topics in CS.")
	assert.Contains(t, req.Prompt, "interested in: compilers")
}

func TestToolRequestRejectsBadInput(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	tool, err := c.Get("citation-generator")
	require.NoError(t, err)

	_, err = tool.Request(map[string]string{"source": "   ", "style": strings.Repeat("x", 21)})
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []string{"source"}, ie.Missing)
	assert.Equal(t, []string{"style"}, ie.TooLong)
	assert.Equal(t, map[string]string{"source": "required", "style": "too long"}, ie.Fields())
}

func TestParseCatalogErrors(t *testing.T) {
	cases := map[string]string{
		"no id":     "tools:\n  - prompt: hi\n",
		"no prompt": "tools:\n  - id: a\n",
		"duplicate": "tools:\n  - id: a\n    prompt: x\n  - id: a\n    prompt: y\n",
		"template":  "tools:\n  - id: a\n    prompt: \"{{.x\"\n",
		"yaml":      "tools: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}
