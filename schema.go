package factextract

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// FactResponseSchemaName names the response schema for providers that need one.
const FactResponseSchemaName = "fact_extraction_response"

// FactResponseSchema is the JSON Schema every generation response must follow.
var FactResponseSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "facts": {
      "type": "array",
      "description": "List of extracted factual statements",
      "items": {
        "type": "object",
        "properties": {
          "fact": {
            "type": "string",
            "description": "Self-contained factual statement with subject, action and context"
          },
          "occurred_start": {
            "type": "string",
            "description": "When the fact started, ISO format YYYY-MM-DDTHH:MM:SSZ"
          },
          "occurred_end": {
            "type": "string",
            "description": "When the fact ended, ISO format YYYY-MM-DDTHH:MM:SSZ; equal to occurred_start for point events"
          },
          "fact_type": {
            "type": "string",
            "enum": ["world", "agent", "opinion"]
          },
          "entities": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "text": {"type": "string", "description": "The entity name as it appears in the fact"}
              },
              "required": ["text"]
            }
          },
          "causal_relations": {
            "type": "array",
            "description": "Causal links to other facts in this response, by 0-based index",
            "items": {
              "type": "object",
              "properties": {
                "target_fact_index": {"type": "integer"},
                "relation_type": {
                  "type": "string",
                  "enum": ["causes", "caused_by", "enables", "prevents"]
                },
                "strength": {"type": "number", "minimum": 0, "maximum": 1}
              },
              "required": ["target_fact_index", "relation_type"]
            }
          }
        },
        "required": ["fact", "occurred_start", "occurred_end", "fact_type"]
      }
    }
  },
  "required": ["facts"]
}`)

// jsonSchema is the subset of JSON Schema the fact schema uses.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
	Enum        []string               `json:"enum"`
	Minimum     *float64               `json:"minimum"`
	Maximum     *float64               `json:"maximum"`
	Format      string                 `json:"format"`
}

// toGenaiSchema converts a JSON Schema document into the schema type the
// genai SDK expects for ResponseSchema.
func toGenaiSchema(raw json.RawMessage) (*genai.Schema, error) {
	var s jsonSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse response schema: %w", err)
	}
	return s.genai(), nil
}

func (s *jsonSchema) genai() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		Format:      s.Format,
		Items:       s.Items.genai(),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.genai()
		}
	}
	return out
}
