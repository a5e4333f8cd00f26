package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

type eventStoreRepo struct {
	db *sqlx.DB
}

// NewEventStoreRepo creates a new PostgreSQL-backed EventStore. The unique
// index on (tenant_id, document_id, sequence) is the optimistic concurrency
// check: two appends racing for the same sequence collide there and the
// loser gets domain.ErrSequenceConflict.
func NewEventStoreRepo(db *sqlx.DB) port.EventStore {
	return &eventStoreRepo{db: db}
}

func (r *eventStoreRepo) Append(ctx context.Context, tenantID, documentID uuid.UUID, expectedPrevSeq int64, event *domain.Event) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("eventStoreRepo.Append: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last struct {
		Sequence int64            `db:"sequence"`
		Kind     domain.EventKind `db:"kind"`
	}
	err = tx.GetContext(ctx, &last,
		`SELECT COALESCE(MAX(sequence), 0) AS sequence,
		        COALESCE((SELECT kind FROM fiscal_events
		                  WHERE tenant_id = $1 AND document_id = $2
		                  ORDER BY sequence DESC LIMIT 1), '') AS kind
		 FROM fiscal_events WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID)
	if err != nil {
		return 0, fmt.Errorf("eventStoreRepo.Append: reading head: %w", err)
	}
	if last.Kind.Terminal() {
		return 0, domain.ErrTerminalState
	}
	if last.Sequence != expectedPrevSeq {
		return 0, domain.ErrSequenceConflict
	}

	event.TenantID = tenantID
	event.DocumentID = documentID
	event.Sequence = expectedPrevSeq + 1
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fiscal_events (id, tenant_id, document_id, sequence, kind, payload, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.TenantID, event.DocumentID, event.Sequence, event.Kind, event.Payload, event.RecordedAt)
	if err != nil {
		// A racing writer took the sequence between our head read and the
		// insert; the unique index reports it as a duplicate key.
		if strings.Contains(err.Error(), "duplicate key") {
			return 0, domain.ErrSequenceConflict
		}
		return 0, fmt.Errorf("eventStoreRepo.Append: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("eventStoreRepo.Append: commit: %w", err)
	}
	return event.Sequence, nil
}

func (r *eventStoreRepo) Read(ctx context.Context, tenantID, documentID uuid.UUID) ([]domain.Event, error) {
	var events []domain.Event
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM fiscal_events
		 WHERE tenant_id = $1 AND document_id = $2
		 ORDER BY sequence`,
		tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("eventStoreRepo.Read: %w", err)
	}
	return events, nil
}

func (r *eventStoreRepo) ListDocumentIDs(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]uuid.UUID, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(DISTINCT document_id) FROM fiscal_events WHERE tenant_id = $1", tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("eventStoreRepo.ListDocumentIDs count: %w", err)
	}

	var ids []uuid.UUID
	err = r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT document_id FROM fiscal_events
		 WHERE tenant_id = $1
		 ORDER BY document_id LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("eventStoreRepo.ListDocumentIDs: %w", err)
	}
	return ids, total, nil
}
