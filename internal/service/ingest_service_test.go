package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/config"
	"notaflow/internal/domain"
	"notaflow/internal/eventstore"
)

func testS3Config() config.S3Config {
	return config.S3Config{Bucket: "notaflow-test", MaxFileSizeMB: 1}
}

func TestIngestSeedsDocumentAndLog(t *testing.T) {
	docRepo := newFakeDocRepo()
	store := eventstore.NewMemory()
	storage := newFakeStorage()
	svc := NewIngestService(docRepo, store, storage, testS3Config())

	tenantID := uuid.New()
	result, err := svc.Ingest(context.Background(), tenantID, IngestInput{
		SourceName: "nota-123.txt",
		IssuerHint: "acme",
		Content:    []byte("NOTA FISCAL"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Document)
	assert.False(t, result.Duplicate)

	doc := result.Document
	assert.Equal(t, tenantID, doc.TenantID)
	assert.Equal(t, domain.IngestQueued, doc.Status)
	assert.Equal(t, int64(len("NOTA FISCAL")), doc.SizeBytes)
	assert.Equal(t, domain.DocumentID(tenantID, doc.ContentHash), doc.ID)

	raw, err := storage.Download(context.Background(), doc.S3Bucket, doc.S3Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("NOTA FISCAL"), raw)

	events, err := store.Read(context.Background(), tenantID, doc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventDocumentReceived, events[0].Kind)
}

func TestIngestIsIdempotent(t *testing.T) {
	docRepo := newFakeDocRepo()
	store := eventstore.NewMemory()
	svc := NewIngestService(docRepo, store, newFakeStorage(), testS3Config())

	tenantID := uuid.New()
	content := []byte("NOTA FISCAL 42")

	first, err := svc.Ingest(context.Background(), tenantID, IngestInput{SourceName: "a.txt", Content: content})
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), tenantID, IngestInput{SourceName: "b.txt", Content: content})
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Document.ID, second.Document.ID)

	// The duplicate never grew the log.
	events, err := store.Read(context.Background(), tenantID, first.Document.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestIngestIsolatesTenants(t *testing.T) {
	svc := NewIngestService(newFakeDocRepo(), eventstore.NewMemory(), newFakeStorage(), testS3Config())

	content := []byte("NOTA FISCAL 42")
	a, err := svc.Ingest(context.Background(), uuid.New(), IngestInput{SourceName: "a.txt", Content: content})
	require.NoError(t, err)
	b, err := svc.Ingest(context.Background(), uuid.New(), IngestInput{SourceName: "a.txt", Content: content})
	require.NoError(t, err)

	assert.NotEqual(t, a.Document.ID, b.Document.ID)
	assert.False(t, b.Duplicate)
}

func TestIngestRejectsEmptyPayload(t *testing.T) {
	svc := NewIngestService(newFakeDocRepo(), eventstore.NewMemory(), newFakeStorage(), testS3Config())

	_, err := svc.Ingest(context.Background(), uuid.New(), IngestInput{SourceName: "a.txt"})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestIngestRejectsOversizePayload(t *testing.T) {
	svc := NewIngestService(newFakeDocRepo(), eventstore.NewMemory(), newFakeStorage(), testS3Config())

	content := bytes.Repeat([]byte("x"), 1024*1024+1)
	_, err := svc.Ingest(context.Background(), uuid.New(), IngestInput{SourceName: "a.txt", Content: content})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}
