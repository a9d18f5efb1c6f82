package factextract

import "encoding/json"

// GenerateOption represents options for generation
type GenerateOption func(*generateConfig)

type generateConfig struct {
	ModelName       string
	Messages        []*Message
	Schema          json.RawMessage
	Temperature     *float32
	MaxOutputTokens int
}

// WithModelName sets the model name
func WithModelName(name string) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.ModelName = name
	}
}

// WithMessages sets the messages
func WithMessages(messages ...*Message) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.Messages = messages
	}
}

// WithResponseSchema constrains the response to a JSON Schema.
func WithResponseSchema(schema json.RawMessage) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.Schema = schema
	}
}

// WithSampling sets temperature and the output token budget. A zero budget
// leaves the provider default in place.
func WithSampling(temperature float32, maxOutputTokens int) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.Temperature = &temperature
		cfg.MaxOutputTokens = maxOutputTokens
	}
}

// generateOptions turns a Request into the equivalent GenerateOptions.
func generateOptions(model Model, req *Request) []GenerateOption {
	return []GenerateOption{
		WithModelName(string(model)),
		WithMessages(req.Messages...),
		WithResponseSchema(req.Schema),
		WithSampling(req.Temperature, req.MaxOutputTokens),
	}
}
