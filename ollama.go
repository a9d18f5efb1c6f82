package factextract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaInvoker implements Invoker with a local Ollama server. The response
// schema is passed as the structured output format.
type OllamaInvoker struct {
	client *olla.Client
	log    *slog.Logger
}

// NewOllamaInvoker connects to baseURL, or DefaultOllamaURL when empty.
func NewOllamaInvoker(baseURL string, timeout time.Duration, log *slog.Logger) (*OllamaInvoker, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	hc := &http.Client{Timeout: timeout}
	return &OllamaInvoker{client: olla.NewClient(parsedURL, hc), log: log}, nil
}

func (o *OllamaInvoker) Generate(ctx context.Context, model Model, req *Request) ([]byte, error) {
	creq := toOllamaRequest(model, req)
	o.log.Debug("Starting generation", "model", string(model), "scope", req.Scope, "message_count", len(creq.Messages))

	var (
		content    strings.Builder
		doneReason string
	)
	err := o.client.Chat(ctx, creq, func(resp olla.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			doneReason = resp.DoneReason
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to chat with ollama: %w", err)
	}

	if doneReason == "length" {
		return nil, NewOutputTooLongError(doneReason)
	}
	if strings.TrimSpace(content.String()) == "" {
		return nil, NewValidationError(fmt.Errorf("empty message content (done reason %q)", doneReason))
	}

	o.log.Debug("Generated content successfully", "response_length", content.Len())
	return []byte(content.String()), nil
}

func toOllamaRequest(model Model, req *Request) *olla.ChatRequest {
	messages := make([]olla.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, olla.Message{Role: m.Role, Content: m.Content})
	}

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxOutputTokens > 0 {
		options["num_predict"] = req.MaxOutputTokens
	}

	stream := false
	return &olla.ChatRequest{
		Model:    string(model),
		Messages: messages,
		Stream:   &stream,
		Format:   req.Schema,
		Options:  options,
	}
}
