// Package parser implements the universal fiscal document parser: a
// deterministic, explainable heuristic+pattern engine over normalized text.
// It extracts raw string literals only; type conversion and semantic
// normalization are downstream concerns.
package parser

import (
	"strings"
	"unicode/utf8"

	"notaflow/internal/fiscal"
	"notaflow/internal/port"
)

// Parser applies an ordered registry of field extractors to a normalized
// text stream. Parsers are cheap, stateless and safe for concurrent use;
// per-tenant registry variants are constructed explicitly rather than
// looked up from shared state.
type Parser struct {
	registry *Registry
}

// New creates a Parser over the given extractor registry.
func New(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Pass returns the registry variant name, recorded as the extraction pass.
func (p *Parser) Pass() string { return p.registry.Name() }

// Parse extracts a ParsedFiscalDocument from normalized text. A missing
// field is represented as an empty value with no provenance entry, never an
// error; Parse fails with *ParseError only when the input is structurally
// unusable. For a fixed (text, hints, registry) the result is byte-for-byte
// identical across runs.
func (p *Parser) Parse(text string, hints port.LayoutHints) (*fiscal.ParsedFiscalDocument, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewParseError(ReasonEmptyInput)
	}
	if !utf8.ValidString(text) {
		return nil, NewParseError(ReasonUndecodable)
	}
	_ = hints // layout hints currently inform only the reader; kept on the contract

	doc := segment(text)
	out := &fiscal.ParsedFiscalDocument{
		Provenance: make(map[string]fiscal.Provenance),
	}

	for _, field := range p.registry.Fields() {
		for priority, ex := range p.registry.Extractors(field) {
			m := ex.Extract(doc)
			if m == nil || m.Value == "" {
				continue
			}
			setParsedField(out, field, m.Value)
			out.Provenance[field] = fiscal.Provenance{
				ExtractorID: ex.ID,
				Kind:        string(ex.Kind),
				Priority:    priority,
				Span:        m.Span,
			}
			break
		}
	}

	items, droppedRows, span := extractLineItems(doc)
	out.LineItems = items
	out.DroppedRows = droppedRows
	if len(items) > 0 && span != nil {
		out.Provenance[fiscal.FieldLineItems] = fiscal.Provenance{
			ExtractorID: "line_items.row_loop",
			Kind:        string(KindHeuristic),
			Priority:    0,
			Span:        *span,
		}
	}

	return out, nil
}

func setParsedField(d *fiscal.ParsedFiscalDocument, field, value string) {
	switch field {
	case fiscal.FieldEmissionDate:
		d.EmissionDate = value
	case fiscal.FieldCompetenceDate:
		d.CompetenceDate = value
	case fiscal.FieldAccessKey:
		d.AccessKey = value
	case fiscal.FieldIssuerName:
		d.IssuerName = value
	case fiscal.FieldIssuerTaxID:
		d.IssuerTaxID = value
	case fiscal.FieldRecipientName:
		d.RecipientName = value
	case fiscal.FieldRecipientTaxID:
		d.RecipientTaxID = value
	case fiscal.FieldGrossTotal:
		d.GrossTotal = value
	}
}
