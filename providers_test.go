package factextract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplePromptProvider_GetPrompt(t *testing.T) {
	provider := SimplePromptProvider{
		"test":  "Test prompt for {{ text }}",
		"basic": "Basic prompt",
	}

	t.Run("existing prompt", func(t *testing.T) {
		prompt, err := provider.GetPrompt("test", 1)
		require.NoError(t, err)
		assert.Equal(t, "Test prompt for {{ text }}", prompt)
	})

	t.Run("non-existing prompt", func(t *testing.T) {
		prompt, err := provider.GetPrompt("nonexistent", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.Empty(t, prompt)
	})
}

func TestWithTemplates(t *testing.T) {
	templates := map[string]string{
		"test":  "Test template",
		"basic": "Basic template",
	}

	provider, err := NewStickPromptProvider(WithTemplates(templates))
	require.NoError(t, err)

	prompt, err := provider.GetPrompt("test", 1)
	require.NoError(t, err)
	assert.Equal(t, "Test template", prompt)
}

func TestWithVar(t *testing.T) {
	templates := map[string]string{
		"test": "Test with {{customVar}}",
	}

	provider, err := NewStickPromptProvider(
		WithTemplates(templates),
		WithVar("customVar", "custom value"),
	)
	require.NoError(t, err)

	prompt, err := provider.GetPrompt("test", 1)
	require.NoError(t, err)
	assert.Equal(t, "Test with custom value", prompt)
}

func TestNewStickPromptProvider(t *testing.T) {
	t.Run("empty provider", func(t *testing.T) {
		provider, err := NewStickPromptProvider()
		require.NoError(t, err)
		assert.NotNil(t, provider)

		// Should return error for non-existent template
		_, err = provider.GetPrompt("nonexistent", 1)
		assert.Error(t, err)
	})

	t.Run("with templates", func(t *testing.T) {
		templates := map[string]string{
			"test": "Hello {{tag}}",
		}

		provider, err := NewStickPromptProvider(WithTemplates(templates))
		require.NoError(t, err)

		prompt, err := provider.GetPrompt("test", 1)
		require.NoError(t, err)
		assert.Equal(t, "Hello test", prompt)
	})
}

func TestStickPromptProvider_AddTemplate(t *testing.T) {
	provider, err := NewStickPromptProvider()
	require.NoError(t, err)

	provider.AddTemplate("new", "New template")

	prompt, err := provider.GetPrompt("new", 1)
	require.NoError(t, err)
	assert.Equal(t, "New template", prompt)
}

func TestStickPromptProvider_GetPrompt(t *testing.T) {
	templates := map[string]string{
		"basic":   "Basic template for {{tag}} version {{version}}",
		"complex": "Complex template with {{ tag }} and {{ version }}",
	}

	provider, err := NewStickPromptProvider(WithTemplates(templates))
	require.NoError(t, err)

	t.Run("basic template", func(t *testing.T) {
		prompt, err := provider.GetPrompt("basic", 2)
		require.NoError(t, err)
		assert.Equal(t, "Basic template for basic version 2", prompt)
	})

	t.Run("complex template", func(t *testing.T) {
		prompt, err := provider.GetPrompt("complex", 3)
		require.NoError(t, err)
		assert.Equal(t, "Complex template with complex and 3", prompt)
	})

	t.Run("non-existent template", func(t *testing.T) {
		_, err := provider.GetPrompt("nonexistent", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestStickPromptProvider_GetPromptWithVars(t *testing.T) {
	templates := map[string]string{
		"extract": "Agent {{ agent_name }} on {{ today }}:\n{{ text }}",
		"mode":    "{% if extract_opinions %}opinions{% else %}facts{% endif %}",
	}

	provider, err := NewStickPromptProvider(
		WithTemplates(templates),
		WithVar("agent_name", "default"),
	)
	require.NoError(t, err)

	t.Run("call vars override provider vars", func(t *testing.T) {
		prompt, err := provider.GetPromptWithVars("extract", 1, map[string]any{
			"agent_name": "Memora",
			"today":      "2024-03-14T00:00:00Z",
			"text":       "Alice met Bob.",
		})
		require.NoError(t, err)
		assert.Equal(t, "Agent Memora on 2024-03-14T00:00:00Z:\nAlice met Bob.", prompt)
	})

	t.Run("provider vars apply without call vars", func(t *testing.T) {
		prompt, err := provider.GetPrompt("extract", 1)
		require.NoError(t, err)
		assert.Contains(t, prompt, "Agent default")
	})

	t.Run("conditional on mode", func(t *testing.T) {
		prompt, err := provider.GetPromptWithVars("mode", 1, map[string]any{"extract_opinions": true})
		require.NoError(t, err)
		assert.Equal(t, "opinions", prompt)

		prompt, err = provider.GetPromptWithVars("mode", 1, map[string]any{"extract_opinions": false})
		require.NoError(t, err)
		assert.Equal(t, "facts", prompt)
	})

	t.Run("non-existent template", func(t *testing.T) {
		_, err := provider.GetPromptWithVars("nonexistent", 1, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestDefaultPromptProvider(t *testing.T) {
	provider, err := DefaultPromptProvider()
	require.NoError(t, err)

	for _, tag := range []string{PromptSystem, PromptExtract} {
		prompt, err := provider.GetPromptWithVars(tag, 1, promptVars(
			Document{Text: "x", EventTime: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)},
			newTopLevelUnit("Alice met Bob.", 0),
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		))
		require.NoError(t, err, tag)
		assert.NotEmpty(t, prompt, tag)
	}

	t.Run("override one template", func(t *testing.T) {
		p, err := DefaultPromptProvider(WithTemplates(map[string]string{PromptSystem: "custom system"}))
		require.NoError(t, err)

		system, err := p.GetPrompt(PromptSystem, 1)
		require.NoError(t, err)
		assert.Equal(t, "custom system", system)

		_, err = p.GetPrompt(PromptExtract, 1)
		assert.NoError(t, err)
	})
}
