package factextract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// wire types mirror FactResponseSchema.
type wireResponse struct {
	Facts *[]wireFact `json:"facts"`
}

type wireFact struct {
	Fact            string         `json:"fact"`
	OccurredStart   string         `json:"occurred_start"`
	OccurredEnd     string         `json:"occurred_end"`
	FactType        string         `json:"fact_type"`
	Entities        []wireEntity   `json:"entities"`
	CausalRelations []wireRelation `json:"causal_relations"`
}

type wireEntity struct {
	Text string `json:"text"`
}

// UnmarshalJSON accepts both {"text": "..."} and a bare string.
func (e *wireEntity) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.Text)
	}
	type plain wireEntity
	return json.Unmarshal(b, (*plain)(e))
}

type wireRelation struct {
	TargetFactIndex *int     `json:"target_fact_index"`
	TargetIndex     *int     `json:"target_index"`
	RelationType    string   `json:"relation_type"`
	Strength        *float64 `json:"strength"`
}

var errMissingFacts = errors.New(`response has no "facts" array`)

// parseBatch decodes a generation response into a batch and checks the batch
// invariants. Any error it returns is a validation failure.
func parseBatch(raw []byte) (Batch, error) {
	raw = SanitizeJSONResponse(raw)
	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Facts == nil {
		return nil, errMissingFacts
	}

	batch := make(Batch, 0, len(*resp.Facts))
	for i, wf := range *resp.Facts {
		f, err := wf.toFact()
		if err != nil {
			return nil, fmt.Errorf("fact %d: %w", i, err)
		}
		batch = append(batch, f)
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (wf wireFact) toFact() (Fact, error) {
	start, err := parseTimestamp(wf.OccurredStart)
	if err != nil {
		return Fact{}, fmt.Errorf("occurred_start: %w", err)
	}
	end, err := parseTimestamp(wf.OccurredEnd)
	if err != nil {
		return Fact{}, fmt.Errorf("occurred_end: %w", err)
	}

	f := Fact{
		Text:          strings.TrimSpace(wf.Fact),
		OccurredStart: start,
		OccurredEnd:   end,
		Type:          FactType(strings.ToLower(strings.TrimSpace(wf.FactType))),
	}
	for _, e := range wf.Entities {
		if name := strings.TrimSpace(e.Text); name != "" {
			f.Entities = append(f.Entities, name)
		}
	}
	for j, wr := range wf.CausalRelations {
		target := wr.TargetFactIndex
		if target == nil {
			target = wr.TargetIndex
		}
		if target == nil {
			return Fact{}, fmt.Errorf("relation %d: missing target_fact_index", j)
		}
		strength := 1.0
		if wr.Strength != nil {
			strength = *wr.Strength
		}
		f.CausalRelations = append(f.CausalRelations, CausalRelation{
			TargetIndex: *target,
			Type:        RelationType(wr.RelationType),
			Strength:    strength,
		})
	}
	return f, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts the ISO variants models commonly emit. Values without
// a zone are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// SanitizeJSONResponse removes garbage characters often produced by LLMs.
func SanitizeJSONResponse(b []byte) []byte {
	s := bytes.TrimSpace(b)
	s = bytes.TrimPrefix(s, []byte("```json"))
	s = bytes.TrimPrefix(s, []byte("```"))
	s = bytes.TrimSuffix(s, []byte("```"))
	out := bytes.TrimSpace(s)
	if len(out) != len(b) {
		slog.Debug("Sanitized response", "original_length", len(b), "final_length", len(out))
	}
	return out
}
