package validator

import (
	"notaflow/internal/fiscal"
)

// Score components. A field's confidence is the shape-conformance base plus
// the extractor-priority boost plus cross-field adjustments, clamped to
// [0,1].
const (
	baseConformant    = 0.70
	baseNonConformant = 0.25
	priorityBoost     = 0.20
	fallbackBoost     = 0.05
	crossFieldBoost   = 0.10
)

// Rule scores one field of a parsed document. Rules are pure: they read the
// document and return a confidence and flags, never a replacement value.
type Rule struct {
	Key   string
	Field string
	Score func(d *fiscal.ParsedFiscalDocument) (float64, []string)
}

// Rules returns the built-in rule set in fixed declaration order, one rule
// per known field.
func Rules() []Rule {
	return []Rule{
		{
			Key: "conf.emission_date", Field: fiscal.FieldEmissionDate,
			Score: shapeRule(fiscal.FieldEmissionDate, fiscal.ValidDateLiteral),
		},
		{
			Key: "conf.competence_date", Field: fiscal.FieldCompetenceDate,
			Score: shapeRule(fiscal.FieldCompetenceDate, func(v string) bool {
				return fiscal.ValidCompetenceLiteral(v) || fiscal.ValidDateLiteral(v)
			}),
		},
		{
			Key: "conf.access_key", Field: fiscal.FieldAccessKey,
			Score: checksumRule(fiscal.FieldAccessKey, fiscal.ValidAccessKey),
		},
		{
			Key: "conf.issuer_name", Field: fiscal.FieldIssuerName,
			Score: nameRule(fiscal.FieldIssuerName),
		},
		{
			Key: "conf.issuer_tax_id", Field: fiscal.FieldIssuerTaxID,
			Score: checksumRule(fiscal.FieldIssuerTaxID, fiscal.ValidCNPJ),
		},
		{
			Key: "conf.recipient_name", Field: fiscal.FieldRecipientName,
			Score: nameRule(fiscal.FieldRecipientName),
		},
		{
			Key: "conf.recipient_tax_id", Field: fiscal.FieldRecipientTaxID,
			Score: checksumRule(fiscal.FieldRecipientTaxID, fiscal.ValidCNPJ),
		},
		{
			Key: "conf.gross_total", Field: fiscal.FieldGrossTotal,
			Score: grossTotalRule(),
		},
		{
			Key: "conf.line_items", Field: fiscal.FieldLineItems,
			Score: lineItemsRule(),
		},
	}
}

// shapeRule scores a scalar field on grammar conformance of the raw value.
func shapeRule(field string, conforms func(string) bool) func(*fiscal.ParsedFiscalDocument) (float64, []string) {
	return func(d *fiscal.ParsedFiscalDocument) (float64, []string) {
		value := d.FieldValue(field)
		if value == "" {
			return 0, []string{fiscal.FlagMissing}
		}
		score := baseNonConformant
		var flags []string
		if conforms(value) {
			score = baseConformant
		} else {
			flags = append(flags, fiscal.FlagAmbiguousFormat)
		}
		return applyPriority(score, flags, d, field)
	}
}

// checksumRule scores a field whose grammar carries a verifiable checksum;
// failing the checksum is a stronger signal than a shape mismatch.
func checksumRule(field string, valid func(string) bool) func(*fiscal.ParsedFiscalDocument) (float64, []string) {
	return func(d *fiscal.ParsedFiscalDocument) (float64, []string) {
		value := d.FieldValue(field)
		if value == "" {
			return 0, []string{fiscal.FlagMissing}
		}
		if !valid(value) {
			// The parser only accepts checksum-valid candidates, so a
			// failure here means the value came from a replayed payload.
			return applyPriority(0.10, []string{fiscal.FlagChecksumFailed}, d, field)
		}
		return applyPriority(0.85, nil, d, field)
	}
}

// nameRule scores party names: free text has no grammar, so length stands
// in for shape conformance.
func nameRule(field string) func(*fiscal.ParsedFiscalDocument) (float64, []string) {
	return func(d *fiscal.ParsedFiscalDocument) (float64, []string) {
		value := d.FieldValue(field)
		if value == "" {
			return 0, []string{fiscal.FlagMissing}
		}
		score := baseNonConformant
		var flags []string
		if len(value) >= 5 {
			score = 0.60
		} else {
			flags = append(flags, fiscal.FlagLowConfidencePattern)
		}
		return applyPriority(score, flags, d, field)
	}
}

// grossTotalRule adds the cross-field plausibility check: a total backed by
// extracted line items deserves more trust than a bare number.
func grossTotalRule() func(*fiscal.ParsedFiscalDocument) (float64, []string) {
	return func(d *fiscal.ParsedFiscalDocument) (float64, []string) {
		value := d.GrossTotal
		if value == "" {
			return 0, []string{fiscal.FlagMissing}
		}
		score := baseNonConformant
		var flags []string
		if fiscal.PlausibleMonetary(value) {
			score = baseConformant
		} else {
			flags = append(flags, fiscal.FlagAmbiguousFormat)
		}
		if len(d.LineItems) > 0 {
			score += crossFieldBoost
		} else {
			flags = append(flags, fiscal.FlagNoLineItems)
		}
		return applyPriority(score, flags, d, fiscal.FieldGrossTotal)
	}
}

// lineItemsRule scores the item collection on row yield versus drop count.
func lineItemsRule() func(*fiscal.ParsedFiscalDocument) (float64, []string) {
	return func(d *fiscal.ParsedFiscalDocument) (float64, []string) {
		if len(d.LineItems) == 0 {
			return 0, []string{fiscal.FlagMissing}
		}
		score := baseConformant
		var flags []string
		priced := 0
		for i := range d.LineItems {
			if d.LineItems[i].UnitValue != "" {
				priced++
			}
		}
		if priced == 0 {
			score = 0.40
			flags = append(flags, fiscal.FlagLowConfidencePattern)
		}
		if len(d.DroppedRows) > len(d.LineItems) {
			score -= crossFieldBoost
			flags = append(flags, fiscal.FlagDroppedRows)
		}
		return clamp(score), flags
	}
}

// applyPriority boosts fields won by the highest-priority extractor and
// flags values that came from a fallback.
func applyPriority(score float64, flags []string, d *fiscal.ParsedFiscalDocument, field string) (float64, []string) {
	prov, ok := d.Provenance[field]
	if !ok {
		return clamp(score), flags
	}
	if prov.Priority == 0 {
		score += priorityBoost
	} else {
		score += fallbackBoost
		flags = append(flags, fiscal.FlagFallbackExtractor)
	}
	return clamp(score), flags
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
