// Package validator annotates parsed fiscal documents with per-field
// confidence scores. The engine never repairs, reformats or fills in
// values; its only output is annotations.
package validator

import (
	"fmt"
	"log"

	"notaflow/internal/domain"
	"notaflow/internal/fiscal"
)

// Engine runs the rule set over a parsed document. Engines are stateless
// and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine creates an Engine with the built-in rules.
func NewEngine() *Engine {
	return &Engine{rules: Rules()}
}

// NewEngineWithRules creates an Engine over a custom rule set.
func NewEngineWithRules(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Annotate produces exactly one annotation per known field, in stable field
// order, with an absent field scored 0.0 and flagged missing. The input
// document is read-only: Annotate fingerprints it before and after the rule
// pass and fails with domain.ErrValidatorContract on any mutation.
func (e *Engine) Annotate(doc *fiscal.ParsedFiscalDocument) ([]fiscal.Annotation, error) {
	if doc == nil {
		return nil, fmt.Errorf("validator.Engine.Annotate: nil document")
	}

	before := doc.Fingerprint()

	byField := make(map[string]fiscal.Annotation, len(e.rules))
	for _, rule := range e.rules {
		score, flags := rule.Score(doc)
		byField[rule.Field] = fiscal.Annotation{
			Field:      rule.Field,
			Confidence: score,
			Flags:      flags,
		}
	}

	if after := doc.Fingerprint(); after != before {
		log.Printf("validator.Engine: document mutated during annotation (before=%s after=%s)", before, after)
		return nil, domain.ErrValidatorContract
	}

	out := make([]fiscal.Annotation, 0, len(fiscal.KnownFields))
	for _, field := range fiscal.KnownFields {
		ann, ok := byField[field]
		if !ok {
			ann = fiscal.Annotation{Field: field, Flags: []string{fiscal.FlagMissing}}
		}
		out = append(out, ann)
	}
	return out, nil
}
