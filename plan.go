package factextract

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"
)

// ExecutionStats describes the calls an extraction would make before any
// overflow splitting happens.
type ExecutionStats struct {
	Model             string           `json:"model"`
	Chunks            int              `json:"chunks"`            // Number of top-level units
	PromptCalls       int              `json:"promptCalls"`       // Calls made when nothing overflows or retries
	MaxPromptCalls    int              `json:"maxPromptCalls"`    // Calls made when every unit needs all attempts
	LikelySplits      int              `json:"likelySplits"`      // Units whose estimated output exceeds the budget
	ChunkDetails      []ChunkExecution `json:"chunkDetails"`      // One entry per unit, in document order
	TotalInputTokens  int              `json:"totalInputTokens"`  // Estimated
	TotalOutputTokens int              `json:"totalOutputTokens"` // Estimated
}

// ChunkExecution represents the planned call for a single unit.
type ChunkExecution struct {
	Unit           string `json:"unit"`
	Length         int    `json:"length"` // characters
	InputTokens    int    `json:"inputTokens"`
	OutputTokens   int    `json:"outputTokens"`
	OverflowLikely bool   `json:"overflowLikely,omitempty"`
}

// PlanNodeType defines the type of operation a node represents.
type PlanNodeType string

const (
	ChunkDocumentType PlanNodeType = "ChunkDocument"
	ExtractCallType   PlanNodeType = "ExtractCall"
	GatherFactsType   PlanNodeType = "GatherFacts"
)

// PlanNode represents a node in the extraction plan.
type PlanNode struct {
	Type         PlanNodeType   `json:"type"`
	Unit         string         `json:"unit,omitempty"`
	Model        string         `json:"model,omitempty"`
	Length       int            `json:"length,omitempty"`
	InputTokens  int            `json:"inputTokens,omitempty"`
	OutputTokens int            `json:"outputTokens,omitempty"`
	EstCost      float64        `json:"estCost"`           // abstract cost units, includes children
	ActCost      *float64       `json:"actCost,omitempty"` // USD, when pricing is known
	Children     []*PlanNode    `json:"children,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ModelPrice represents the pricing for a specific model.
type ModelPrice struct {
	PromptTokCost     float64 // Cost per 1000 input tokens
	CompletionTokCost float64 // Cost per 1000 output tokens
}

// FormatType represents different output formats for the execution plan.
type FormatType string

const (
	FormatText FormatType = "text"
	FormatJSON FormatType = "json"
)

// DryRun chunks the document and renders every top-level request without
// calling the model.
func (x *Extractor) DryRun(ctx context.Context, doc Document, optFns ...func(*Options)) (*ExecutionStats, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	opts, err := x.options(optFns)
	if err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}

	units := NewChunker(opts.ChunkSize).Split(doc.Text)
	stats := &ExecutionStats{
		Model:          opts.Model,
		Chunks:         len(units),
		PromptCalls:    len(units),
		MaxPromptCalls: len(units) * max(1, opts.MaxAttempts),
		ChunkDetails:   make([]ChunkExecution, 0, len(units)),
	}

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := buildRequest(opts.Prompts, doc, u, opts)
		if err != nil {
			return nil, fmt.Errorf("dry run: unit %s: %w", u.ID(), err)
		}

		in := EstimateTokensFromText(req.System()) + EstimateTokensFromText(req.User())
		out := EstimateOutputTokens(u.Text)
		ce := ChunkExecution{
			Unit:           u.ID(),
			Length:         utf8.RuneCountInString(u.Text),
			InputTokens:    in,
			OutputTokens:   out,
			OverflowLikely: opts.MaxOutputTokens > 0 && out > opts.MaxOutputTokens,
		}
		if ce.OverflowLikely {
			stats.LikelySplits++
		}
		stats.ChunkDetails = append(stats.ChunkDetails, ce)
		stats.TotalInputTokens += in
		stats.TotalOutputTokens += out

		x.log.Debug("Simulated extract call",
			"unit", ce.Unit,
			"model", opts.Model,
			"input_tokens", in,
			"output_tokens", out)
	}

	x.log.Info("Dry run completed",
		"chunks", stats.Chunks,
		"total_input_tokens", stats.TotalInputTokens,
		"total_output_tokens", stats.TotalOutputTokens,
		"likely_splits", stats.LikelySplits)
	return stats, nil
}

// Explain performs a dry run and returns a human-readable execution plan.
func (x *Extractor) Explain(ctx context.Context, doc Document, optFns ...func(*Options)) (string, error) {
	stats, err := x.DryRun(ctx, doc, optFns...)
	if err != nil {
		return "", err
	}
	return FormatPlan(BuildPlan(stats, DefaultModelPricing()), FormatText)
}

// BuildPlan converts dry-run statistics into a plan tree. pricing may be nil.
func BuildPlan(stats *ExecutionStats, pricing map[string]ModelPrice) *PlanNode {
	root := &PlanNode{
		Type:  GatherFactsType,
		Model: stats.Model,
		Metadata: map[string]any{
			"chunks":         stats.Chunks,
			"promptCalls":    stats.PromptCalls,
			"maxPromptCalls": stats.MaxPromptCalls,
			"likelySplits":   stats.LikelySplits,
		},
	}

	length := 0
	for _, ce := range stats.ChunkDetails {
		length += ce.Length
	}
	root.Children = append(root.Children, &PlanNode{Type: ChunkDocumentType, Length: length})

	for _, ce := range stats.ChunkDetails {
		node := &PlanNode{
			Type:         ExtractCallType,
			Unit:         ce.Unit,
			Model:        stats.Model,
			Length:       ce.Length,
			InputTokens:  ce.InputTokens,
			OutputTokens: ce.OutputTokens,
		}
		if ce.OverflowLikely {
			node.Metadata = map[string]any{"overflowLikely": true}
		}
		root.Children = append(root.Children, node)
	}

	calculateCosts(root, pricing)
	return root
}

// calculateCosts fills EstCost bottom-up and ActCost where a price is known.
func calculateCosts(node *PlanNode, pricing map[string]ModelPrice) {
	childrenCost := 0.0
	var childrenAct *float64
	for _, child := range node.Children {
		calculateCosts(child, pricing)
		childrenCost += child.EstCost
		if child.ActCost != nil {
			sum := *child.ActCost
			if childrenAct != nil {
				sum += *childrenAct
			}
			childrenAct = &sum
		}
	}
	node.EstCost = nodeCost(node) + childrenCost

	if node.Type == ExtractCallType {
		if price, ok := pricing[node.Model]; ok {
			act := float64(node.InputTokens)*price.PromptTokCost/1000.0 +
				float64(node.OutputTokens)*price.CompletionTokCost/1000.0
			node.ActCost = &act
		}
		return
	}
	node.ActCost = childrenAct
}

func nodeCost(node *PlanNode) float64 {
	switch node.Type {
	case ChunkDocumentType:
		return 1.0 + float64(node.Length)/10000.0
	case ExtractCallType:
		return 3.0 + float64(node.InputTokens)*0.01
	case GatherFactsType:
		return 0.5 + float64(len(node.Children))*0.1
	default:
		return 1.0
	}
}

// FormatPlan renders a plan in the requested format.
func FormatPlan(plan *PlanNode, format FormatType) (string, error) {
	switch format {
	case FormatText, "":
		return formatAsText(plan), nil
	case FormatJSON:
		return formatAsJSON(plan)
	default:
		return "", fmt.Errorf("unsupported plan format %q", format)
	}
}

// PricedModels lists the models DefaultModelPricing knows, sorted.
func PricedModels() []string {
	prices := DefaultModelPricing()
	models := make([]string, 0, len(prices))
	for m := range prices {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// DefaultModelPricing returns input/output token costs (USD per 1K tokens).
func DefaultModelPricing() map[string]ModelPrice {
	return map[string]ModelPrice{
		// OpenAI
		"gpt-4o":       {PromptTokCost: 0.0050, CompletionTokCost: 0.0200},
		"gpt-4o-mini":  {PromptTokCost: 0.0006, CompletionTokCost: 0.0024},
		"gpt-4.1":      {PromptTokCost: 0.0020, CompletionTokCost: 0.0080},
		"gpt-4.1-mini": {PromptTokCost: 0.0004, CompletionTokCost: 0.0016},
		"gpt-4.1-nano": {PromptTokCost: 0.0001, CompletionTokCost: 0.0004},

		// Google Gemini
		"gemini-2.5-pro":   {PromptTokCost: 0.00125, CompletionTokCost: 0.0100},
		"gemini-2.5-flash": {PromptTokCost: 0.00030, CompletionTokCost: 0.0025},
		"gemini-2.0-flash": {PromptTokCost: 0.00015, CompletionTokCost: 0.0006},
	}
}

// EstimateTokensFromText counts the tokens of text with the cl100k_base
// encoding. When the encoding cannot be loaded it falls back to about four
// characters per token.
func EstimateTokensFromText(text string) int {
	return defaultTokenCounter.count(text)
}

// EstimateOutputTokens guesses the size of the facts JSON for a unit. Dense
// narrative text tends to produce roughly its own length again in facts plus
// the JSON envelope.
func EstimateOutputTokens(text string) int {
	return EstimateTokensFromText(text)*3/2 + 20
}
