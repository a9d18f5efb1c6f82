package factextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// codeJSONValidateFailed is the error code OpenAI-compatible providers return
// when their own output does not satisfy the requested JSON format.
const codeJSONValidateFailed = "json_validate_failed"

// OpenAIInvoker implements Invoker against any OpenAI-compatible chat
// completions endpoint.
type OpenAIInvoker struct {
	client *openai.Client
	log    *slog.Logger
}

// NewOpenAIInvoker returns an invoker for apiKey. An empty baseURL keeps the
// library default.
func NewOpenAIInvoker(apiKey, baseURL string, log *slog.Logger) *OpenAIInvoker {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return NewOpenAIInvokerWithClient(openai.NewClientWithConfig(config), log)
}

func NewOpenAIInvokerWithClient(client *openai.Client, log *slog.Logger) *OpenAIInvoker {
	if log == nil {
		log = slog.Default()
	}
	return &OpenAIInvoker{client: client, log: log}
}

func (o *OpenAIInvoker) Generate(ctx context.Context, model Model, req *Request) ([]byte, error) {
	creq := toOpenAIRequest(model, req)
	o.log.Debug("Starting generation", "model", string(model), "scope", req.Scope, "message_count", len(creq.Messages))

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		if isJSONValidateFailed(err) {
			return nil, NewValidationError(err)
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return nil, NewOutputTooLongError(string(choice.FinishReason))
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, NewValidationError(fmt.Errorf("empty message content (finish reason %q)", choice.FinishReason))
	}

	o.log.Debug("Generated content successfully", "response_length", len(choice.Message.Content))
	return []byte(choice.Message.Content), nil
}

func toOpenAIRequest(model Model, req *Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	temperature := req.Temperature
	return openai.ChatCompletionRequest{
		Model:       string(model),
		Messages:    messages,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: &temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		User: req.Scope,
	}
}

func isJSONValidateFailed(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprint(apiErr.Code) == codeJSONValidateFailed ||
			strings.Contains(apiErr.Message, codeJSONValidateFailed)
	}
	return strings.Contains(err.Error(), codeJSONValidateFailed)
}
