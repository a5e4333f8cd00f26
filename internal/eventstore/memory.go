// Package eventstore provides event log implementations behind the
// port.EventStore contract. The in-memory store backs the worker tests and
// single-process deployments; the Postgres-backed store lives in
// repository/postgres.
package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

type streamKey struct {
	tenantID   uuid.UUID
	documentID uuid.UUID
}

// Memory is an in-memory append-only event store. All operations are safe
// for concurrent use; optimistic concurrency and terminal-state sealing are
// enforced under a single mutex, so exactly one of two racing appends with
// the same expected sequence wins.
type Memory struct {
	mu      sync.Mutex
	streams map[streamKey][]domain.Event
}

var _ port.EventStore = (*Memory)(nil)

// NewMemory creates an empty in-memory event store.
func NewMemory() *Memory {
	return &Memory{streams: make(map[streamKey][]domain.Event)}
}

// Append appends one event to the (tenant, document) log. expectedPrevSeq
// must equal the current highest sequence (0 for an empty log); a mismatch
// fails with domain.ErrSequenceConflict and writes nothing. Appending after
// a terminal event fails with domain.ErrTerminalState.
func (m *Memory) Append(ctx context.Context, tenantID, documentID uuid.UUID, expectedPrevSeq int64, event *domain.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("eventstore.Memory.Append: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := streamKey{tenantID: tenantID, documentID: documentID}
	stream := m.streams[key]

	if n := len(stream); n > 0 && stream[n-1].Kind.Terminal() {
		return 0, domain.ErrTerminalState
	}
	if int64(len(stream)) != expectedPrevSeq {
		return 0, domain.ErrSequenceConflict
	}

	event.TenantID = tenantID
	event.DocumentID = documentID
	event.Sequence = expectedPrevSeq + 1
	m.streams[key] = append(stream, *event)
	return event.Sequence, nil
}

// Read returns the full event log for one document in sequence order. An
// unknown document yields an empty slice, not an error.
func (m *Memory) Read(ctx context.Context, tenantID, documentID uuid.UUID) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("eventstore.Memory.Read: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stream := m.streams[streamKey{tenantID: tenantID, documentID: documentID}]
	out := make([]domain.Event, len(stream))
	copy(out, stream)
	return out, nil
}

// ListDocumentIDs returns one page of document ids with at least one event
// for the tenant, ordered by id, plus the total count.
func (m *Memory) ListDocumentIDs(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]uuid.UUID, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("eventstore.Memory.ListDocumentIDs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var all []uuid.UUID
	for key := range m.streams {
		if key.tenantID == tenantID {
			all = append(all, key.documentID)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}
