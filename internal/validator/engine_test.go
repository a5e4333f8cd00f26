package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/domain"
	"notaflow/internal/fiscal"
)

func annotatedDoc() *fiscal.ParsedFiscalDocument {
	return &fiscal.ParsedFiscalDocument{
		EmissionDate:   "15/03/2024 10:22:41",
		CompetenceDate: "03/2024",
		IssuerName:     "ACME CONSULTORIA LTDA",
		IssuerTaxID:    "11.222.333/0001-81",
		RecipientName:  "BETA COMERCIO SA",
		RecipientTaxID: "11.444.777/0001-61",
		GrossTotal:     "12.500,00",
		LineItems: []fiscal.LineItem{
			{Description: "Consultoria", UnitValue: "10.000,00", Raw: "Consultoria 10.000,00"},
			{Description: "Treinamento", UnitValue: "2.500,00", Raw: "Treinamento 2.500,00"},
		},
		Provenance: map[string]fiscal.Provenance{
			fiscal.FieldEmissionDate:   {ExtractorID: "emission_date.labeled", Kind: "heuristic", Priority: 0},
			fiscal.FieldCompetenceDate: {ExtractorID: "competence_date.labeled", Kind: "heuristic", Priority: 0},
			fiscal.FieldIssuerName:     {ExtractorID: "issuer_name.block_scan", Kind: "heuristic", Priority: 0},
			fiscal.FieldIssuerTaxID:    {ExtractorID: "issuer_tax_id.block_cnpj", Kind: "heuristic", Priority: 0},
			fiscal.FieldRecipientName:  {ExtractorID: "recipient_name.block_scan", Kind: "heuristic", Priority: 0},
			fiscal.FieldRecipientTaxID: {ExtractorID: "recipient_tax_id.block_cnpj", Kind: "heuristic", Priority: 0},
			fiscal.FieldGrossTotal:     {ExtractorID: "gross_total.financials_tail", Kind: "pattern", Priority: 1},
			fiscal.FieldLineItems:      {ExtractorID: "line_items.row_loop", Kind: "heuristic", Priority: 0},
		},
	}
}

func annotationsByField(anns []fiscal.Annotation) map[string]fiscal.Annotation {
	out := make(map[string]fiscal.Annotation, len(anns))
	for _, a := range anns {
		out[a.Field] = a
	}
	return out
}

func TestAnnotateCoversEveryKnownField(t *testing.T) {
	anns, err := NewEngine().Annotate(annotatedDoc())
	require.NoError(t, err)

	require.Len(t, anns, len(fiscal.KnownFields))
	for i, field := range fiscal.KnownFields {
		assert.Equal(t, field, anns[i].Field)
	}
}

func TestAnnotateScores(t *testing.T) {
	doc := annotatedDoc()
	anns, err := NewEngine().Annotate(doc)
	require.NoError(t, err)
	byField := annotationsByField(anns)

	assert.InDelta(t, 0.90, byField[fiscal.FieldEmissionDate].Confidence, 1e-9)
	assert.InDelta(t, 1.00, byField[fiscal.FieldIssuerTaxID].Confidence, 1e-9)
	assert.InDelta(t, 0.80, byField[fiscal.FieldIssuerName].Confidence, 1e-9)
	assert.InDelta(t, 0.70, byField[fiscal.FieldLineItems].Confidence, 1e-9)

	// Fallback extractor: conformant base, cross-field boost, fallback boost.
	gross := byField[fiscal.FieldGrossTotal]
	assert.InDelta(t, 0.85, gross.Confidence, 1e-9)
	assert.Contains(t, gross.Flags, fiscal.FlagFallbackExtractor)
}

func TestAnnotateMissingField(t *testing.T) {
	anns, err := NewEngine().Annotate(annotatedDoc())
	require.NoError(t, err)
	byField := annotationsByField(anns)

	key := byField[fiscal.FieldAccessKey]
	assert.Zero(t, key.Confidence)
	assert.Equal(t, []string{fiscal.FlagMissing}, key.Flags)
}

func TestAnnotateChecksumFailure(t *testing.T) {
	doc := annotatedDoc()
	doc.IssuerTaxID = "11.222.333/0001-82"

	anns, err := NewEngine().Annotate(doc)
	require.NoError(t, err)
	byField := annotationsByField(anns)

	issuer := byField[fiscal.FieldIssuerTaxID]
	assert.InDelta(t, 0.30, issuer.Confidence, 1e-9)
	assert.Contains(t, issuer.Flags, fiscal.FlagChecksumFailed)
}

func TestAnnotateNeverMutatesDocument(t *testing.T) {
	doc := annotatedDoc()
	before := doc.Fingerprint()

	_, err := NewEngine().Annotate(doc)
	require.NoError(t, err)
	assert.Equal(t, before, doc.Fingerprint())
}

func TestAnnotateRejectsMutatingRule(t *testing.T) {
	engine := NewEngineWithRules([]Rule{{
		Key: "conf.gross_total", Field: fiscal.FieldGrossTotal,
		Score: func(d *fiscal.ParsedFiscalDocument) (float64, []string) {
			d.GrossTotal = "0,00"
			return 1, nil
		},
	}})

	_, err := engine.Annotate(annotatedDoc())
	assert.ErrorIs(t, err, domain.ErrValidatorContract)
}

func TestAnnotateNilDocument(t *testing.T) {
	_, err := NewEngine().Annotate(nil)
	assert.Error(t, err)
}
