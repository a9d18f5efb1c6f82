package cmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/vivaneiona/factextract"
	"github.com/vivaneiona/factextract/internal/config"
)

var errMissingAPIKey = errors.New("api key not configured")

// newInvoker builds the generation client selected by cfg.Provider.
func newInvoker(ctx context.Context, cfg *config.Config, log *slog.Logger) (factextract.Invoker, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY or gemini.api_key)", errMissingAPIKey)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: create client: %w", err)
		}
		return factextract.NewGeminiInvoker(client, log), nil

	case config.ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" && cfg.OpenAI.BaseURL == "" {
			return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY or openai.api_key)", errMissingAPIKey)
		}
		return factextract.NewOpenAIInvoker(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, log), nil

	case config.ProviderOllama:
		return factextract.NewOllamaInvoker(cfg.Ollama.URL, cfg.Ollama.Timeout, log)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
