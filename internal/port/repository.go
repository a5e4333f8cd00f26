package port

import (
	"context"

	"github.com/google/uuid"

	"notaflow/internal/domain"
)

// TenantRepository defines the contract for tenant persistence.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	List(ctx context.Context, offset, limit int) ([]domain.Tenant, int, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
}

// RawDocumentRepository defines the contract for ingestion-queue rows.
// All query methods include tenantID to enforce tenant isolation at the
// data layer; ClaimQueued is the only cross-tenant read and returns rows
// that still carry their tenant id.
type RawDocumentRepository interface {
	Create(ctx context.Context, doc *domain.RawDocument) error
	GetByID(ctx context.Context, tenantID, documentID uuid.UUID) (*domain.RawDocument, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.RawDocument, int, error)
	// ClaimQueued atomically marks up to limit queued rows as processing and
	// returns them. Concurrent workers never claim the same row.
	ClaimQueued(ctx context.Context, limit int) ([]domain.RawDocument, error)
	UpdateStatus(ctx context.Context, tenantID, documentID uuid.UUID, status domain.IngestStatus) error
	Requeue(ctx context.Context, tenantID, documentID uuid.UUID) error
}
