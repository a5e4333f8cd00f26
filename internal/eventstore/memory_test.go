package eventstore

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/domain"
)

func mustEvent(t *testing.T, tenantID, documentID uuid.UUID, kind domain.EventKind) *domain.Event {
	e, err := domain.NewEvent(tenantID, documentID, kind, map[string]any{})
	require.NoError(t, err)
	return e
}

func TestMemoryAppendAssignsSequence(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID, documentID := uuid.New(), uuid.New()

	seq, err := store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = store.Append(ctx, tenantID, documentID, 1, mustEvent(t, tenantID, documentID, domain.EventFieldsExtracted))
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	events, err := store.Read(ctx, tenantID, documentID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Sequence)
	assert.Equal(t, domain.EventFieldsExtracted, events[1].Kind)
}

func TestMemoryAppendSequenceConflict(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID, documentID := uuid.New(), uuid.New()

	_, err := store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)

	// Stale expectation: the log already advanced past 0.
	_, err = store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventFieldsExtracted))
	assert.ErrorIs(t, err, domain.ErrSequenceConflict)

	events, err := store.Read(ctx, tenantID, documentID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "failed append must write nothing")
}

func TestMemoryTerminalSealsStream(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID, documentID := uuid.New(), uuid.New()

	_, err := store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)
	_, err = store.Append(ctx, tenantID, documentID, 1, mustEvent(t, tenantID, documentID, domain.EventDocumentRejected))
	require.NoError(t, err)

	_, err = store.Append(ctx, tenantID, documentID, 2, mustEvent(t, tenantID, documentID, domain.EventFieldsExtracted))
	assert.ErrorIs(t, err, domain.ErrTerminalState)
}

func TestMemoryRacingAppendsOneWinner(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID, documentID := uuid.New(), uuid.New()

	_, err := store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := mustEvent(t, tenantID, documentID, domain.EventFieldsExtracted)
			_, errs[i] = store.Append(ctx, tenantID, documentID, 1, e)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrSequenceConflict)
		}
	}
	assert.Equal(t, 1, winners)

	events, err := store.Read(ctx, tenantID, documentID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMemoryTenantIsolation(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()
	documentID := uuid.New()

	_, err := store.Append(ctx, tenantA, documentID, 0, mustEvent(t, tenantA, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)

	// The same document id under another tenant is a separate stream.
	seq, err := store.Append(ctx, tenantB, documentID, 0, mustEvent(t, tenantB, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	events, err := store.Read(ctx, tenantB, documentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tenantB, events[0].TenantID)

	ids, total, err := store.ListDocumentIDs(ctx, tenantA, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []uuid.UUID{documentID}, ids)
}

func TestMemoryListDocumentIDsPagination(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID := uuid.New()

	for i := 0; i < 5; i++ {
		documentID := uuid.New()
		_, err := store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventDocumentReceived))
		require.NoError(t, err)
	}

	first, total, err := store.ListDocumentIDs(ctx, tenantID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, first, 2)

	second, _, err := store.ListDocumentIDs(ctx, tenantID, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.NotEqual(t, first, second)

	tail, _, err := store.ListDocumentIDs(ctx, tenantID, 4, 2)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	empty, total, err := store.ListDocumentIDs(ctx, tenantID, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID, documentID := uuid.New(), uuid.New()

	_, err := store.Append(ctx, tenantID, documentID, 0, mustEvent(t, tenantID, documentID, domain.EventDocumentReceived))
	require.NoError(t, err)

	events, err := store.Read(ctx, tenantID, documentID)
	require.NoError(t, err)
	events[0].Kind = domain.EventDocumentRejected

	again, err := store.Read(ctx, tenantID, documentID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventDocumentReceived, again[0].Kind)
}
