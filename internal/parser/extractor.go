package parser

import "notaflow/internal/fiscal"

// ExtractorKind distinguishes the two extraction strategies.
type ExtractorKind string

const (
	// KindHeuristic infers a field's location from structural cues such as
	// labels and positions.
	KindHeuristic ExtractorKind = "heuristic"
	// KindPattern matches a field by literal shape (date grammar, tax-id
	// grammar, monetary grammar).
	KindPattern ExtractorKind = "pattern"
)

// Match is a successful extraction: the raw literal and where it came from.
type Match struct {
	Value string
	Span  fiscal.SourceSpan
}

// Extractor attempts to extract one field from the segmented document.
// Extractors are pure: they read the segmentation, never mutate it, and are
// deterministic for a fixed input.
type Extractor struct {
	ID      string
	Field   string
	Kind    ExtractorKind
	Extract func(doc *segmented) *Match
}

// Registry holds, per field, the ordered extractor list. Order is the fixed,
// documented priority: the first extractor returning a non-empty match wins
// and its identity is recorded as provenance. Extractors for different
// fields never interact.
type Registry struct {
	name    string
	fields  []string
	byField map[string][]Extractor
}

// Name identifies the registry variant; it is recorded as the extraction
// pass in the fields.extracted payload.
func (r *Registry) Name() string { return r.name }

// Fields returns the fields this registry extracts, in declaration order.
func (r *Registry) Fields() []string { return r.fields }

// Extractors returns the priority-ordered extractor list for a field.
func (r *Registry) Extractors(field string) []Extractor { return r.byField[field] }

func newRegistry(name string, extractors []Extractor) *Registry {
	r := &Registry{name: name, byField: make(map[string][]Extractor)}
	for _, e := range extractors {
		if _, seen := r.byField[e.Field]; !seen {
			r.fields = append(r.fields, e.Field)
		}
		r.byField[e.Field] = append(r.byField[e.Field], e)
	}
	return r
}

// DefaultRegistry is the strict first-attempt registry: block-scoped
// heuristics take priority over global pattern scans.
func DefaultRegistry() *Registry {
	return newRegistry("default", []Extractor{
		emissionDateLabeled(),
		emissionDateGlobal(),
		competenceDateLabeled(),
		issuerNameBlock(),
		issuerTaxIDBlock(),
		issuerTaxIDGlobal(),
		recipientNameBlock(),
		recipientTaxIDBlock(),
		accessKeyGlobal(),
		grossTotalLabeled(),
		grossTotalFinancialsTail(),
	})
}

// RelaxedRegistry is the retry-pass registry: global pattern scans are
// promoted above label-anchored heuristics, which helps on layouts whose
// labels were mangled by extraction.
func RelaxedRegistry() *Registry {
	return newRegistry("relaxed", []Extractor{
		emissionDateGlobal(),
		emissionDateLabeled(),
		competenceDateLabeled(),
		issuerTaxIDGlobal(),
		issuerTaxIDBlock(),
		issuerNameBlock(),
		recipientTaxIDBlock(),
		recipientNameBlock(),
		accessKeyGlobal(),
		grossTotalFinancialsTail(),
		grossTotalLabeled(),
	})
}
