package port

import (
	"context"

	"github.com/google/uuid"

	"notaflow/internal/domain"
)

// EventStore is the append-only, per-tenant, per-document event log.
//
// Append is the sole write path and the sole concurrency-control mechanism:
// it assigns sequence expectedPrevSeq+1 and fails with
// domain.ErrSequenceConflict when expectedPrevSeq no longer matches the
// store's last sequence for the document, or with domain.ErrTerminalState
// when a terminal event already exists. Events are never mutated or deleted.
type EventStore interface {
	Append(ctx context.Context, tenantID, documentID uuid.UUID, expectedPrevSeq int64, event *domain.Event) (int64, error)
	Read(ctx context.Context, tenantID, documentID uuid.UUID) ([]domain.Event, error)
	ListDocumentIDs(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]uuid.UUID, int, error)
}
