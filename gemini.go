package factextract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// GenerateBytes generates bytes using the Gemini API via Google GenAI.
// System messages become the system instruction; a MAX_TOKENS finish is
// reported as *OutputTooLongError.
func GenerateBytes(ctx context.Context, client *genai.Client, log *slog.Logger, opts ...GenerateOption) ([]byte, error) {
	var cfg generateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if client == nil {
		return nil, fmt.Errorf("client not initialized")
	}
	if cfg.ModelName == "" {
		return nil, ErrModelMissing
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      cfg.Temperature,
	}
	if cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if len(cfg.Schema) > 0 {
		schema, err := toGenaiSchema(cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("convert response schema: %w", err)
		}
		config.ResponseSchema = schema
	}

	var (
		contents []*genai.Content
		system   []string
	)
	for _, msg := range cfg.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if len(contents) == 0 {
		log.Debug("No valid content from messages")
		return nil, fmt.Errorf("no valid content provided")
	}

	log.Debug("Generating content", "model", cfg.ModelName, "content_count", len(contents))

	resp, err := client.Models.GenerateContent(ctx, cfg.ModelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	log.Debug("Received response", "candidates_count", len(resp.Candidates))

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		return nil, NewOutputTooLongError(string(candidate.FinishReason))
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, NewValidationError(fmt.Errorf("no parts in candidate content (finish reason %q)", candidate.FinishReason))
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil, NewValidationError(fmt.Errorf("no text in response"))
	}

	log.Debug("Generated content successfully", "response_length", text.Len())
	return []byte(text.String()), nil
}

// GeminiInvoker implements Invoker using Google GenAI.
type GeminiInvoker struct {
	client *genai.Client
	log    *slog.Logger
}

func NewGeminiInvoker(client *genai.Client, log *slog.Logger) *GeminiInvoker {
	if log == nil {
		log = slog.Default()
	}
	return &GeminiInvoker{client: client, log: log}
}

func (g *GeminiInvoker) Generate(ctx context.Context, model Model, req *Request) ([]byte, error) {
	g.log.Debug("Starting generation", "model", string(model), "scope", req.Scope, "prompt_length", len(req.User()))
	return GenerateBytes(ctx, g.client, g.log, generateOptions(model, req)...)
}
