package factextract

import (
	"fmt"
	"strings"
	"time"
)

// FactType classifies an extracted fact.
type FactType string

const (
	FactWorld   FactType = "world"   // facts about others and events
	FactAgent   FactType = "agent"   // facts involving the memory owner, first person
	FactOpinion FactType = "opinion" // beliefs formed by the memory owner
)

// Valid reports whether t is one of the known fact types.
func (t FactType) Valid() bool {
	switch t {
	case FactWorld, FactAgent, FactOpinion:
		return true
	}
	return false
}

// RelationType is the kind of a causal link between two facts.
type RelationType string

const (
	RelationCauses   RelationType = "causes"
	RelationCausedBy RelationType = "caused_by"
	RelationEnables  RelationType = "enables"
	RelationPrevents RelationType = "prevents"
)

// Valid reports whether r is one of the known relation types.
func (r RelationType) Valid() bool {
	switch r {
	case RelationCauses, RelationCausedBy, RelationEnables, RelationPrevents:
		return true
	}
	return false
}

// CausalRelation links a fact to another fact of the same batch.
//
// TargetIndex is positional within the batch returned for a single leaf unit
// (see Source). It has no meaning across units, and facts extracted from
// different chunks cannot reference each other.
type CausalRelation struct {
	TargetIndex int          `json:"target_index"`
	Type        RelationType `json:"relation_type"`
	Strength    float64      `json:"strength"`
}

// Source records which leaf unit produced a fact.
type Source struct {
	Unit     string `json:"unit"`     // lineage id, e.g. "2.0.1"
	Chunk    int    `json:"chunk"`    // top-level chunk index
	Depth    int    `json:"depth"`    // number of overflow splits above the leaf
	Position int    `json:"position"` // index of the fact inside its batch
}

// Fact is a single extracted statement with its temporal range.
type Fact struct {
	ID              string           `json:"id"`
	Text            string           `json:"fact"`
	OccurredStart   time.Time        `json:"occurred_start"`
	OccurredEnd     time.Time        `json:"occurred_end"`
	Type            FactType         `json:"fact_type"`
	Entities        []string         `json:"entities,omitempty"`
	CausalRelations []CausalRelation `json:"causal_relations,omitempty"`
	Source          Source           `json:"source"`
}

// Batch is the ordered list of facts extracted from one leaf unit.
type Batch []Fact

// Validate checks the invariants every fact of the batch must hold.
func (b Batch) Validate() error {
	for i, f := range b {
		if strings.TrimSpace(f.Text) == "" {
			return fmt.Errorf("fact %d: empty statement", i)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("fact %d: unknown fact type %q", i, f.Type)
		}
		if f.OccurredEnd.Before(f.OccurredStart) {
			return fmt.Errorf("fact %d: occurred_end %s before occurred_start %s",
				i, f.OccurredEnd.Format(time.RFC3339), f.OccurredStart.Format(time.RFC3339))
		}
		for j, rel := range f.CausalRelations {
			if !rel.Type.Valid() {
				return fmt.Errorf("fact %d relation %d: unknown relation type %q", i, j, rel.Type)
			}
			if rel.TargetIndex < 0 || rel.TargetIndex >= len(b) {
				return fmt.Errorf("fact %d relation %d: target index %d outside batch of %d", i, j, rel.TargetIndex, len(b))
			}
			if rel.Strength < 0 || rel.Strength > 1 {
				return fmt.Errorf("fact %d relation %d: strength %v outside [0,1]", i, j, rel.Strength)
			}
		}
	}
	return nil
}

// Result is the outcome of extracting one document.
type Result struct {
	Facts []Fact `json:"facts"`
	Stats Stats  `json:"stats"`
}

// Stats summarises the work done for one extraction.
type Stats struct {
	Units    int `json:"units"`    // top-level chunks
	Leaves   int `json:"leaves"`   // units whose batch was accepted
	Calls    int `json:"calls"`    // generation calls made
	Retries  int `json:"retries"`  // calls repeated after a validation failure
	Splits   int `json:"splits"`   // overflow bisections
	MaxDepth int `json:"maxDepth"` // deepest split level reached
	Facts    int `json:"facts"`
}

func (s Stats) add(o Stats) Stats {
	s.Units += o.Units
	s.Leaves += o.Leaves
	s.Calls += o.Calls
	s.Retries += o.Retries
	s.Splits += o.Splits
	s.MaxDepth = max(s.MaxDepth, o.MaxDepth)
	s.Facts += o.Facts
	return s
}
