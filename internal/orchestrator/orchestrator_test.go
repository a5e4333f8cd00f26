package orchestrator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/domain"
	"notaflow/internal/eventstore"
	"notaflow/internal/fiscal"
	"notaflow/internal/validator"
)

const completeNota = `NOTA FISCAL DE SERVIÇOS ELETRÔNICA
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

// No issuer CNPJ anywhere: issuer_tax_id stays missing on both passes.
const notaWithoutIssuerTaxID = `NOTA FISCAL DE SERVIÇOS ELETRÔNICA
Data de Emissão: 15/03/2024
PRESTADOR DE SERVIÇOS
ACME CONSULTORIA LTDA
DISCRIMINAÇÃO DOS SERVIÇOS
Consultoria em engenharia de software 10.000,00
VALOR TOTAL: R$ 10.000,00`

func seedReceived(t *testing.T, store *eventstore.Memory, tenantID, documentID uuid.UUID) {
	e, err := domain.NewEvent(tenantID, documentID, domain.EventDocumentReceived, domain.ReceivedPayload{
		ContentHash: "sha256:abc",
		SourceName:  "nota.txt",
		SizeBytes:   256,
	})
	require.NoError(t, err)
	_, err = store.Append(context.Background(), tenantID, documentID, 0, e)
	require.NoError(t, err)
}

func eventKinds(t *testing.T, store *eventstore.Memory, tenantID, documentID uuid.UUID) []domain.EventKind {
	events, err := store.Read(context.Background(), tenantID, documentID)
	require.NoError(t, err)
	kinds := make([]domain.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestRunFinalizesCompleteDocument(t *testing.T) {
	store := eventstore.NewMemory()
	tenantID, documentID := uuid.New(), uuid.New()
	seedReceived(t, store, tenantID, documentID)

	o := New(store, validator.NewEngine(), DefaultConfig())
	proj, err := o.Run(context.Background(), tenantID, documentID, completeNota)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinalized, proj.Status)
	assert.Equal(t, 1, proj.ExtractionAttempts)
	assert.Equal(t, "default", proj.LastPass)
	require.NotNil(t, proj.Document)
	assert.Equal(t, "11.222.333/0001-81", proj.Document.IssuerTaxID)
	assert.Equal(t, "12.500,00", proj.Document.GrossTotal)

	assert.Equal(t, []domain.EventKind{
		domain.EventDocumentReceived,
		domain.EventFieldsExtracted,
		domain.EventFieldsValidated,
		domain.EventDocumentFinalized,
	}, eventKinds(t, store, tenantID, documentID))
}

func TestRunRetriesThenRejectsLowConfidence(t *testing.T) {
	store := eventstore.NewMemory()
	tenantID, documentID := uuid.New(), uuid.New()
	seedReceived(t, store, tenantID, documentID)

	o := New(store, validator.NewEngine(), DefaultConfig())
	proj, err := o.Run(context.Background(), tenantID, documentID, notaWithoutIssuerTaxID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, proj.Status)
	assert.Equal(t, domain.RejectLowConfidence, proj.RejectReason)
	assert.Equal(t, []string{fiscal.FieldIssuerTaxID}, proj.RejectedFields)
	assert.Equal(t, 2, proj.ExtractionAttempts)
	assert.Equal(t, "relaxed", proj.LastPass)

	assert.Equal(t, []domain.EventKind{
		domain.EventDocumentReceived,
		domain.EventFieldsExtracted,
		domain.EventFieldsValidated,
		domain.EventFieldsExtracted,
		domain.EventFieldsValidated,
		domain.EventDocumentRejected,
	}, eventKinds(t, store, tenantID, documentID))
}

func TestRunRejectsUnparseableInput(t *testing.T) {
	store := eventstore.NewMemory()
	tenantID, documentID := uuid.New(), uuid.New()
	seedReceived(t, store, tenantID, documentID)

	o := New(store, validator.NewEngine(), DefaultConfig())
	proj, err := o.Run(context.Background(), tenantID, documentID, "   ")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, proj.Status)
	assert.Equal(t, domain.RejectUnparseable, proj.RejectReason)
	assert.Equal(t, []domain.EventKind{
		domain.EventDocumentReceived,
		domain.EventDocumentRejected,
	}, eventKinds(t, store, tenantID, documentID))
}

func TestRunIsIdempotentOnTerminalDocument(t *testing.T) {
	store := eventstore.NewMemory()
	tenantID, documentID := uuid.New(), uuid.New()
	seedReceived(t, store, tenantID, documentID)

	o := New(store, validator.NewEngine(), DefaultConfig())
	first, err := o.Run(context.Background(), tenantID, documentID, completeNota)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFinalized, first.Status)

	again, err := o.Run(context.Background(), tenantID, documentID, completeNota)
	require.NoError(t, err)
	assert.Equal(t, first.LastSequence, again.LastSequence)
	assert.Len(t, eventKinds(t, store, tenantID, documentID), 4)
}

func TestRunEmptyLogFails(t *testing.T) {
	store := eventstore.NewMemory()
	o := New(store, validator.NewEngine(), DefaultConfig())

	_, err := o.Run(context.Background(), uuid.New(), uuid.New(), completeNota)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigForTenant(t *testing.T) {
	base := DefaultConfig()

	assert.Equal(t, base, base.ForTenant(nil))

	minConf := 0.9
	attempts := 3
	tenant := &domain.Tenant{
		MinConfidence:         &minConf,
		RequiredFieldsRaw:     []byte(`["gross_total"]`),
		MaxExtractionAttempts: &attempts,
	}
	got := base.ForTenant(tenant)
	assert.InDelta(t, 0.9, got.MinConfidence, 1e-9)
	assert.Equal(t, []string{fiscal.FieldGrossTotal}, got.RequiredFields)
	assert.Equal(t, 3, got.MaxExtractionAttempts)

	// Zero-value overrides fall back to the defaults.
	zero := 0
	got = base.ForTenant(&domain.Tenant{MaxExtractionAttempts: &zero})
	assert.Equal(t, base.MaxExtractionAttempts, got.MaxExtractionAttempts)
}
