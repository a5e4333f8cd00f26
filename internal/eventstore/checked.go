package eventstore

import (
	"context"

	"github.com/google/uuid"

	"notaflow/internal/contract"
	"notaflow/internal/domain"
	"notaflow/internal/port"
)

// Checked wraps an EventStore and validates every payload against its JSON
// Schema before the append reaches the inner store. Reads pass through.
type Checked struct {
	inner port.EventStore
}

var _ port.EventStore = (*Checked)(nil)

// NewChecked wraps store with payload contract checks.
func NewChecked(store port.EventStore) *Checked {
	return &Checked{inner: store}
}

func (c *Checked) Append(ctx context.Context, tenantID, documentID uuid.UUID, expectedPrevSeq int64, event *domain.Event) (int64, error) {
	if err := contract.CheckPayload(event.Kind, event.Payload); err != nil {
		return 0, err
	}
	return c.inner.Append(ctx, tenantID, documentID, expectedPrevSeq, event)
}

func (c *Checked) Read(ctx context.Context, tenantID, documentID uuid.UUID) ([]domain.Event, error) {
	return c.inner.Read(ctx, tenantID, documentID)
}

func (c *Checked) ListDocumentIDs(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]uuid.UUID, int, error) {
	return c.inner.ListDocumentIDs(ctx, tenantID, offset, limit)
}
