package factextract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// testInvoker answers every request with one world fact per sentence of the
// unit text.
type testInvoker struct{}

func (t *testInvoker) Generate(ctx context.Context, model Model, req *Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type fact struct {
		Fact          string   `json:"fact"`
		OccurredStart string   `json:"occurred_start"`
		OccurredEnd   string   `json:"occurred_end"`
		FactType      string   `json:"fact_type"`
		Entities      []string `json:"entities"`
	}
	facts := make([]fact, 0)
	for _, s := range strings.Split(DocumentText(req), ". ") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		facts = append(facts, fact{
			Fact:          s,
			OccurredStart: "2024-01-01T00:00:00Z",
			OccurredEnd:   "2024-01-01T00:00:00Z",
			FactType:      string(FactWorld),
			Entities:      []string{},
		})
	}
	return json.Marshal(map[string]any{"facts": facts})
}

// NewForTesting creates an Extractor that needs no real client. With a nil
// Invoker every sentence of the input becomes one fact.
func NewForTesting(inv Invoker, optFns ...func(*Options)) *Extractor {
	if inv == nil {
		inv = &testInvoker{}
	}
	return NewWithLogger(inv, slog.Default(), append([]func(*Options){WithModel("test-model")}, optFns...)...)
}
