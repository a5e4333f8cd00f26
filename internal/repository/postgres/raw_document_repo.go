package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

type rawDocumentRepo struct {
	db *sqlx.DB
}

// NewRawDocumentRepo creates a new PostgreSQL-backed RawDocumentRepository.
func NewRawDocumentRepo(db *sqlx.DB) port.RawDocumentRepository {
	return &rawDocumentRepo{db: db}
}

func (r *rawDocumentRepo) Create(ctx context.Context, doc *domain.RawDocument) error {
	now := time.Now().UTC()
	doc.ReceivedAt = now
	doc.UpdatedAt = now

	query := `INSERT INTO raw_documents (
		id, tenant_id, content_hash, source_name, issuer_hint, size_bytes,
		s3_bucket, s3_key, status, attempts, received_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (tenant_id, content_hash) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.TenantID, doc.ContentHash, doc.SourceName, doc.IssuerHint, doc.SizeBytes,
		doc.S3Bucket, doc.S3Key, doc.Status, doc.Attempts, doc.ReceivedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("rawDocumentRepo.Create: %w", err)
	}
	// Zero rows means identical content was already ingested; the id is
	// content-derived, so the existing row is this document.
	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := r.GetByID(ctx, doc.TenantID, doc.ID)
		if err != nil {
			return fmt.Errorf("rawDocumentRepo.Create: reading existing row: %w", err)
		}
		*doc = *existing
	}
	return nil
}

func (r *rawDocumentRepo) GetByID(ctx context.Context, tenantID, documentID uuid.UUID) (*domain.RawDocument, error) {
	var doc domain.RawDocument
	err := r.db.GetContext(ctx, &doc,
		"SELECT * FROM raw_documents WHERE id = $1 AND tenant_id = $2", documentID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("rawDocumentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *rawDocumentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.RawDocument, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM raw_documents WHERE tenant_id = $1", tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("rawDocumentRepo.ListByTenant count: %w", err)
	}

	var docs []domain.RawDocument
	err = r.db.SelectContext(ctx, &docs,
		`SELECT * FROM raw_documents WHERE tenant_id = $1
		 ORDER BY received_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("rawDocumentRepo.ListByTenant: %w", err)
	}
	return docs, total, nil
}

// ClaimQueued marks up to limit queued rows as processing and returns them.
// FOR UPDATE SKIP LOCKED keeps concurrent workers off each other's rows.
func (r *rawDocumentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.RawDocument, error) {
	query := `UPDATE raw_documents SET status = $1, attempts = attempts + 1, updated_at = $2
		WHERE (id, tenant_id) IN (
			SELECT id, tenant_id FROM raw_documents
			WHERE status = $3
			ORDER BY received_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	var docs []domain.RawDocument
	err := r.db.SelectContext(ctx, &docs, query,
		domain.IngestProcessing, time.Now().UTC(), domain.IngestQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("rawDocumentRepo.ClaimQueued: %w", err)
	}
	return docs, nil
}

func (r *rawDocumentRepo) UpdateStatus(ctx context.Context, tenantID, documentID uuid.UUID, status domain.IngestStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE raw_documents SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4",
		status, time.Now().UTC(), documentID, tenantID)
	if err != nil {
		return fmt.Errorf("rawDocumentRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *rawDocumentRepo) Requeue(ctx context.Context, tenantID, documentID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE raw_documents SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4",
		domain.IngestQueued, time.Now().UTC(), documentID, tenantID)
	if err != nil {
		return fmt.Errorf("rawDocumentRepo.Requeue: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
