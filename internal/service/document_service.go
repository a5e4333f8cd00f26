package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

// DocumentService is the tenant-scoped read side: projections and event
// logs computed from the store. Every method takes the tenant id from the
// caller's token; a document belonging to another tenant is indistinguishable
// from one that does not exist.
type DocumentService interface {
	GetProjection(ctx context.Context, tenantID, documentID uuid.UUID) (*domain.DocumentProjection, error)
	GetEvents(ctx context.Context, tenantID, documentID uuid.UUID) ([]domain.Event, error)
	ListProjections(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.DocumentProjection, int, error)
	ListRaw(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.RawDocument, int, error)
}

type documentService struct {
	store   port.EventStore
	docRepo port.RawDocumentRepository
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(store port.EventStore, docRepo port.RawDocumentRepository) DocumentService {
	return &documentService{store: store, docRepo: docRepo}
}

func (s *documentService) GetProjection(ctx context.Context, tenantID, documentID uuid.UUID) (*domain.DocumentProjection, error) {
	events, err := s.store.Read(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("documentService.GetProjection: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	return domain.Project(events)
}

func (s *documentService) GetEvents(ctx context.Context, tenantID, documentID uuid.UUID) ([]domain.Event, error) {
	events, err := s.store.Read(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("documentService.GetEvents: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	return events, nil
}

func (s *documentService) ListProjections(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.DocumentProjection, int, error) {
	ids, total, err := s.store.ListDocumentIDs(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("documentService.ListProjections: %w", err)
	}

	projs := make([]domain.DocumentProjection, 0, len(ids))
	for _, id := range ids {
		events, err := s.store.Read(ctx, tenantID, id)
		if err != nil {
			return nil, 0, fmt.Errorf("documentService.ListProjections: reading %s: %w", id, err)
		}
		proj, err := domain.Project(events)
		if err != nil {
			return nil, 0, fmt.Errorf("documentService.ListProjections: projecting %s: %w", id, err)
		}
		projs = append(projs, *proj)
	}
	return projs, total, nil
}

func (s *documentService) ListRaw(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.RawDocument, int, error) {
	return s.docRepo.ListByTenant(ctx, tenantID, offset, limit)
}
