package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/fiscal"
	"notaflow/internal/port"
)

const nfseText = `NOTA FISCAL DE SERVIÇOS ELETRÔNICA
Número: 123
Data de Emissão: 15/03/2024 10:22:41
Competência: 03/2024
PRESTADOR DE SERVIÇOS
ACME CONSULTORIA LTDA
CNPJ: 11.222.333/0001-81
TOMADOR DE SERVIÇOS
BETA COMERCIO SA
CNPJ: 11.444.777/0001-61
DISCRIMINAÇÃO DOS SERVIÇOS
Consultoria em engenharia de software 10.000,00
Treinamento tecnico da equipe 2.500,00
VALOR TOTAL DA NOTA R$ 12.500,00`

func TestParseNFSe(t *testing.T) {
	p := New(DefaultRegistry())
	doc, err := p.Parse(nfseText, port.LayoutHints{})
	require.NoError(t, err)

	assert.Equal(t, "15/03/2024 10:22:41", doc.EmissionDate)
	assert.Equal(t, "03/2024", doc.CompetenceDate)
	assert.Equal(t, "ACME CONSULTORIA LTDA", doc.IssuerName)
	assert.Equal(t, "11.222.333/0001-81", doc.IssuerTaxID)
	assert.Equal(t, "BETA COMERCIO SA", doc.RecipientName)
	assert.Equal(t, "11.444.777/0001-61", doc.RecipientTaxID)
	assert.Equal(t, "12.500,00", doc.GrossTotal)
	assert.Empty(t, doc.AccessKey)
	assert.NotContains(t, doc.Provenance, fiscal.FieldAccessKey)

	require.Len(t, doc.LineItems, 2)
	assert.Equal(t, "Consultoria em engenharia de software", doc.LineItems[0].Description)
	assert.Equal(t, "10.000,00", doc.LineItems[0].UnitValue)
	assert.Equal(t, "2.500,00", doc.LineItems[1].UnitValue)
	assert.Empty(t, doc.DroppedRows)
}

func TestParseLineItemsKeepValueWordsInDescriptions(t *testing.T) {
	// "valor" and "total" inside a description do not make the row a label
	// row; only rows starting with a metadata keyword are skipped.
	text := `DISCRIMINAÇÃO DOS SERVIÇOS
Reembolso de valor pago pelo cliente 100,00
Valor aproximado dos tributos 500,00
Consultoria total em campo 1.200,00`

	p := New(DefaultRegistry())
	doc, err := p.Parse(text, port.LayoutHints{})
	require.NoError(t, err)

	require.Len(t, doc.LineItems, 2)
	assert.Equal(t, "Reembolso de valor pago pelo cliente", doc.LineItems[0].Description)
	assert.Equal(t, "100,00", doc.LineItems[0].UnitValue)
	assert.Equal(t, "Consultoria total em campo", doc.LineItems[1].Description)
	assert.Empty(t, doc.DroppedRows)
}

func TestParseProvenance(t *testing.T) {
	p := New(DefaultRegistry())
	doc, err := p.Parse(nfseText, port.LayoutHints{})
	require.NoError(t, err)

	prov := doc.Provenance[fiscal.FieldEmissionDate]
	assert.Equal(t, "emission_date.labeled", prov.ExtractorID)
	assert.Equal(t, string(KindHeuristic), prov.Kind)
	assert.Equal(t, 0, prov.Priority)

	// No labeled total matches "VALOR TOTAL DA NOTA", so the financials
	// tail scan wins at fallback priority.
	prov = doc.Provenance[fiscal.FieldGrossTotal]
	assert.Equal(t, "gross_total.financials_tail", prov.ExtractorID)
	assert.Equal(t, string(KindPattern), prov.Kind)
	assert.Equal(t, 1, prov.Priority)

	assert.Equal(t, "line_items.row_loop", doc.Provenance[fiscal.FieldLineItems].ExtractorID)

	// Every recorded span addresses the raw literal in the source text.
	for field, pv := range doc.Provenance {
		if field == fiscal.FieldLineItems {
			continue
		}
		assert.Equal(t, doc.FieldValue(field), nfseText[pv.Span.Start:pv.Span.End], field)
	}
}

func TestParseDeterministic(t *testing.T) {
	p := New(DefaultRegistry())
	first, err := p.Parse(nfseText, port.LayoutHints{})
	require.NoError(t, err)
	second, err := p.Parse(nfseText, port.LayoutHints{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseRelaxedPromotesPatternScans(t *testing.T) {
	p := New(RelaxedRegistry())
	assert.Equal(t, "relaxed", p.Pass())

	doc, err := p.Parse(nfseText, port.LayoutHints{})
	require.NoError(t, err)

	// Same values, different provenance: the global scans win first.
	assert.Equal(t, "15/03/2024 10:22:41", doc.EmissionDate)
	assert.Equal(t, "emission_date.first_date", doc.Provenance[fiscal.FieldEmissionDate].ExtractorID)
	assert.Equal(t, "11.222.333/0001-81", doc.IssuerTaxID)
	assert.Equal(t, "issuer_tax_id.first_cnpj", doc.Provenance[fiscal.FieldIssuerTaxID].ExtractorID)
}

func TestParseMissingFieldsIsNotAnError(t *testing.T) {
	p := New(DefaultRegistry())
	doc, err := p.Parse("Documento avulso sem campos reconheciveis", port.LayoutHints{})
	require.NoError(t, err)

	assert.Empty(t, doc.Provenance)
	for _, field := range fiscal.KnownFields {
		assert.False(t, doc.Found(field), field)
	}
}

func TestParseEmptyInput(t *testing.T) {
	p := New(DefaultRegistry())
	_, err := p.Parse("  \n\t ", port.LayoutHints{})

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonEmptyInput, perr.Reason)
}

func TestParseUndecodableInput(t *testing.T) {
	p := New(DefaultRegistry())
	_, err := p.Parse("nota \xff\xfe fiscal", port.LayoutHints{})

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonUndecodable, perr.Reason)
}

func TestSegmentBlocks(t *testing.T) {
	s := segment(nfseText)

	require.Len(t, s.blocksOf(blockIssuer), 1)
	require.Len(t, s.blocksOf(blockRecipient), 1)
	require.Len(t, s.blocksOf(blockItems), 1)
	require.Len(t, s.blocksOf(blockFinancials), 1)
	assert.Contains(t, s.blocksOf(blockIssuer)[0].text, "ACME CONSULTORIA")
	assert.Contains(t, s.blocksOf(blockHeader)[0].text, "Data de Emissão")
}

func TestSegmentNoMarkers(t *testing.T) {
	s := segment("linha um\nlinha dois")
	require.Len(t, s.blocksOf(blockHeader), 1)
	assert.Equal(t, "linha um\nlinha dois", s.blocksOf(blockHeader)[0].text)
}
