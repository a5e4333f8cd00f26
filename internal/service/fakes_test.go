package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

// fakeStorage is an in-memory port.ObjectStorage. Keys listed in failKeys
// fail on Download, which simulates transient archive outages.
type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:  make(map[string][]byte),
		failKeys: make(map[string]bool),
	}
}

func storageKey(bucket, key string) string { return bucket + "/" + key }

func (f *fakeStorage) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[storageKey(input.Bucket, input.Key)] = body
	return &port.UploadOutput{Location: storageKey(input.Bucket, input.Key)}, nil
}

func (f *fakeStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := storageKey(bucket, key)
	if f.failKeys[k] {
		return nil, fmt.Errorf("fakeStorage: download of %s failed", k)
	}
	body, ok := f.objects[k]
	if !ok {
		return nil, fmt.Errorf("fakeStorage: no object at %s", k)
	}
	return body, nil
}

func (f *fakeStorage) Delete(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storageKey(bucket, key))
	return nil
}

// fakeDocRepo is an in-memory port.RawDocumentRepository with the same
// idempotent-create semantics as the Postgres implementation.
type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*domain.RawDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[uuid.UUID]*domain.RawDocument)}
}

func (f *fakeDocRepo) Create(ctx context.Context, doc *domain.RawDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.docs[doc.ID]; ok {
		*doc = *existing
		return nil
	}
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocRepo) GetByID(ctx context.Context, tenantID, documentID uuid.UUID) (*domain.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok || doc.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	out := *doc
	return &out, nil
}

func (f *fakeDocRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.RawDocument, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.RawDocument
	for _, doc := range f.docs {
		if doc.TenantID == tenantID {
			all = append(all, *doc)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
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

func (f *fakeDocRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, doc := range f.docs {
		if doc.Status == domain.IngestQueued {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	var claimed []domain.RawDocument
	for _, id := range ids {
		doc := f.docs[id]
		doc.Status = domain.IngestProcessing
		doc.Attempts++
		claimed = append(claimed, *doc)
	}
	return claimed, nil
}

func (f *fakeDocRepo) UpdateStatus(ctx context.Context, tenantID, documentID uuid.UUID, status domain.IngestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok || doc.TenantID != tenantID {
		return domain.ErrNotFound
	}
	doc.Status = status
	return nil
}

func (f *fakeDocRepo) Requeue(ctx context.Context, tenantID, documentID uuid.UUID) error {
	return f.UpdateStatus(ctx, tenantID, documentID, domain.IngestQueued)
}

func (f *fakeDocRepo) statusOf(documentID uuid.UUID) domain.IngestStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[documentID]; ok {
		return doc.Status
	}
	return ""
}

// fakeTenantRepo is an in-memory port.TenantRepository.
type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*domain.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[uuid.UUID]*domain.Tenant)}
}

func (f *fakeTenantRepo) Create(ctx context.Context, tenant *domain.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tenants {
		if t.Slug == tenant.Slug {
			return domain.ErrDuplicateTenantSlug
		}
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	stored := *tenant
	f.tenants[tenant.ID] = &stored
	return nil
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tenants {
		if t.Slug == slug {
			out := *t
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTenantRepo) List(ctx context.Context, offset, limit int) ([]domain.Tenant, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Tenant
	for _, t := range f.tenants {
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return all, len(all), nil
}

func (f *fakeTenantRepo) Update(ctx context.Context, tenant *domain.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[tenant.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *tenant
	f.tenants[tenant.ID] = &stored
	return nil
}
