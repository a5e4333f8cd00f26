package contract

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/domain"
	"notaflow/internal/fiscal"
)

func marshalExtracted(t *testing.T, p domain.ExtractedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestCheckPayloadAcceptsParserOutput(t *testing.T) {
	payload := marshalExtracted(t, domain.ExtractedPayload{
		Attempt: 1,
		Pass:    "default",
		Document: fiscal.ParsedFiscalDocument{
			EmissionDate: "15/03/2024",
			AccessKey:    "35230111222333000181550010000000011234567896",
			GrossTotal:   "12.500,00",
			LineItems: []fiscal.LineItem{
				{Description: "Consultoria", UnitValue: "10.000,00", Raw: "Consultoria 10.000,00"},
			},
			Provenance: map[string]fiscal.Provenance{
				fiscal.FieldEmissionDate: {
					ExtractorID: "emission_date.labeled",
					Kind:        "heuristic",
					Span:        fiscal.SourceSpan{Start: 17, End: 27},
				},
			},
		},
	})

	assert.NoError(t, CheckPayload(domain.EventFieldsExtracted, payload))
}

func TestCheckPayloadRejectsMalformedAccessKey(t *testing.T) {
	payload := marshalExtracted(t, domain.ExtractedPayload{
		Attempt: 1,
		Pass:    "default",
		Document: fiscal.ParsedFiscalDocument{
			AccessKey: "not-44-digits",
		},
	})

	err := CheckPayload(domain.EventFieldsExtracted, payload)
	assert.ErrorIs(t, err, domain.ErrPayloadContract)
}

func TestCheckPayloadRejectsUnknownProvenanceKind(t *testing.T) {
	payload := json.RawMessage(`{
		"attempt": 1,
		"pass": "default",
		"document": {
			"_provenance": {
				"emission_date": {"extractor_id": "x", "kind": "guesswork"}
			}
		}
	}`)

	err := CheckPayload(domain.EventFieldsExtracted, payload)
	assert.ErrorIs(t, err, domain.ErrPayloadContract)
}

func TestCheckPayloadRejectsMissingAttempt(t *testing.T) {
	payload := json.RawMessage(`{"pass": "default", "document": {}}`)

	err := CheckPayload(domain.EventFieldsExtracted, payload)
	assert.ErrorIs(t, err, domain.ErrPayloadContract)
}

func TestCheckPayloadRejectsInvalidJSON(t *testing.T) {
	err := CheckPayload(domain.EventFieldsExtracted, json.RawMessage(`{truncated`))
	assert.ErrorIs(t, err, domain.ErrPayloadContract)
}

func TestCheckPayloadIgnoresUnregisteredKinds(t *testing.T) {
	assert.NoError(t, CheckPayload(domain.EventDocumentReceived, json.RawMessage(`{"anything": true}`)))
}

func TestCheckPayloadValidatedAnnotations(t *testing.T) {
	payload, err := json.Marshal(domain.ValidatedPayload{
		Attempt: 1,
		Annotations: map[string]fiscal.Annotation{
			fiscal.FieldEmissionDate: {Field: fiscal.FieldEmissionDate, Confidence: 0.9, Flags: []string{}},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, CheckPayload(domain.EventFieldsValidated, payload))

	bad := json.RawMessage(`{
		"attempt": 1,
		"annotations": {
			"emission_date": {"field": "emission_date", "confidence": 1.5}
		}
	}`)
	assert.ErrorIs(t, CheckPayload(domain.EventFieldsValidated, bad), domain.ErrPayloadContract)
}

func TestNewEventPayloadPassesContract(t *testing.T) {
	event, err := domain.NewEvent(uuid.New(), uuid.New(), domain.EventFieldsExtracted, domain.ExtractedPayload{
		Attempt:  2,
		Pass:     "relaxed",
		Document: fiscal.ParsedFiscalDocument{},
	})
	require.NoError(t, err)
	assert.NoError(t, CheckPayload(event.Kind, event.Payload))
}
