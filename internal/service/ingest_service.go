package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"notaflow/internal/config"
	"notaflow/internal/domain"
	"notaflow/internal/port"
)

// IngestInput is the DTO for document ingestion.
type IngestInput struct {
	SourceName string
	IssuerHint string
	Content    []byte
}

// IngestResult reports the outcome of an ingestion request.
type IngestResult struct {
	Document  *domain.RawDocument `json:"document"`
	Duplicate bool                `json:"duplicate"`
}

// IngestService accepts raw payloads, archives them and seeds the event
// log. Ingestion is idempotent: the document id is derived from the tenant
// and the payload hash, so the same bytes land on the same log.
type IngestService interface {
	Ingest(ctx context.Context, tenantID uuid.UUID, input IngestInput) (*IngestResult, error)
}

type ingestService struct {
	docRepo port.RawDocumentRepository
	store   port.EventStore
	storage port.ObjectStorage
	s3cfg   config.S3Config
}

// NewIngestService creates a new IngestService implementation.
func NewIngestService(
	docRepo port.RawDocumentRepository,
	store port.EventStore,
	storage port.ObjectStorage,
	s3cfg config.S3Config,
) IngestService {
	return &ingestService{
		docRepo: docRepo,
		store:   store,
		storage: storage,
		s3cfg:   s3cfg,
	}
}

func (s *ingestService) Ingest(ctx context.Context, tenantID uuid.UUID, input IngestInput) (*IngestResult, error) {
	if len(input.Content) == 0 {
		return nil, fmt.Errorf("ingest.Ingest: %w: empty payload", domain.ErrUploadFailed)
	}
	if max := s.s3cfg.MaxFileSizeMB * 1024 * 1024; max > 0 && int64(len(input.Content)) > max {
		return nil, fmt.Errorf("ingest.Ingest: %w: payload exceeds %d MB", domain.ErrUploadFailed, s.s3cfg.MaxFileSizeMB)
	}

	sum := sha256.Sum256(input.Content)
	contentHash := hex.EncodeToString(sum[:])
	documentID := domain.DocumentID(tenantID, contentHash)

	key := fmt.Sprintf("tenants/%s/documents/%s", tenantID, documentID)
	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(input.Content),
		ContentType: "application/octet-stream",
	}); err != nil {
		return nil, fmt.Errorf("ingest.Ingest: %w: %v", domain.ErrUploadFailed, err)
	}

	doc := &domain.RawDocument{
		ID:          documentID,
		TenantID:    tenantID,
		ContentHash: contentHash,
		SourceName:  input.SourceName,
		IssuerHint:  input.IssuerHint,
		SizeBytes:   int64(len(input.Content)),
		S3Bucket:    s.s3cfg.Bucket,
		S3Key:       key,
		Status:      domain.IngestQueued,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("ingest.Ingest: %w", err)
	}

	event, err := domain.NewEvent(tenantID, documentID, domain.EventDocumentReceived, domain.ReceivedPayload{
		ContentHash: contentHash,
		SourceName:  input.SourceName,
		IssuerHint:  input.IssuerHint,
		SizeBytes:   int64(len(input.Content)),
	})
	if err != nil {
		return nil, fmt.Errorf("ingest.Ingest: %w", err)
	}

	if _, err := s.store.Append(ctx, tenantID, documentID, 0, event); err != nil {
		// A non-empty log means this content was ingested before; the
		// request still succeeds and reports the existing document.
		if errors.Is(err, domain.ErrSequenceConflict) || errors.Is(err, domain.ErrTerminalState) {
			log.Printf("ingestService: duplicate ingestion of document %s for tenant %s", documentID, tenantID)
			return &IngestResult{Document: doc, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("ingest.Ingest: appending received event: %w", err)
	}

	return &IngestResult{Document: doc}, nil
}
