package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"notaflow/internal/fiscal"
)

// Tenant represents an isolated organizational tenant. Pipeline override
// columns are nullable; nil means the global default from config applies.
type Tenant struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	Name                  string          `db:"name" json:"name"`
	Slug                  string          `db:"slug" json:"slug"`
	APIKeyHash            string          `db:"api_key_hash" json:"-"`
	IsActive              bool            `db:"is_active" json:"is_active"`
	MinConfidence         *float64        `db:"min_confidence" json:"min_confidence,omitempty"`
	RequiredFieldsRaw     json.RawMessage `db:"required_fields" json:"required_fields,omitempty"`
	MaxExtractionAttempts *int            `db:"max_extraction_attempts" json:"max_extraction_attempts,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// RequiredFields decodes the tenant's required-field override, or nil when
// the tenant has none.
func (t *Tenant) RequiredFields() []string {
	if len(t.RequiredFieldsRaw) == 0 {
		return nil
	}
	var fields []string
	if err := json.Unmarshal(t.RequiredFieldsRaw, &fields); err != nil {
		return nil
	}
	return fields
}

// RawDocument stores the immutable ingestion record for one payload. The
// document id is content-derived (see DocumentID), so re-ingesting identical
// bytes for the same tenant maps to the same document.
type RawDocument struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	TenantID    uuid.UUID    `db:"tenant_id" json:"tenant_id"`
	ContentHash string       `db:"content_hash" json:"content_hash"`
	SourceName  string       `db:"source_name" json:"source_name"`
	IssuerHint  string       `db:"issuer_hint" json:"issuer_hint"`
	SizeBytes   int64        `db:"size_bytes" json:"size_bytes"`
	S3Bucket    string       `db:"s3_bucket" json:"-"`
	S3Key       string       `db:"s3_key" json:"-"`
	Status      IngestStatus `db:"status" json:"status"`
	Attempts    int          `db:"attempts" json:"attempts"`
	ReceivedAt  time.Time    `db:"received_at" json:"received_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// nsFiscalDocument namespaces content-derived document ids.
var nsFiscalDocument = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DocumentID derives the deterministic document id for a tenant and payload
// content hash. Identical content for the same tenant always yields the same
// id, which is what makes re-ingestion idempotent.
func DocumentID(tenantID uuid.UUID, contentHash string) uuid.UUID {
	return uuid.NewSHA1(nsFiscalDocument, []byte(tenantID.String()+":"+contentHash))
}

// Event is one immutable, ordered record in a document's log. Sequence
// numbers start at 1 and are strictly increasing with no gaps per
// (tenant_id, document_id).
type Event struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	TenantID   uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	DocumentID uuid.UUID       `db:"document_id" json:"document_id"`
	Sequence   int64           `db:"sequence" json:"sequence"`
	Kind       EventKind       `db:"kind" json:"kind"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}

// ReceivedPayload is the payload of a document.received event.
type ReceivedPayload struct {
	ContentHash string `json:"content_hash"`
	SourceName  string `json:"source_name"`
	IssuerHint  string `json:"issuer_hint,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ExtractedPayload is the payload of a fields.extracted event. Attempt is
// 1-based; Pass names the extraction strategy used for the attempt.
type ExtractedPayload struct {
	Attempt  int                         `json:"attempt"`
	Pass     string                      `json:"pass"`
	Document fiscal.ParsedFiscalDocument `json:"document"`
}

// ValidatedPayload is the payload of a fields.validated event.
type ValidatedPayload struct {
	Attempt     int                          `json:"attempt"`
	Annotations map[string]fiscal.Annotation `json:"annotations"`
}

// FinalizedPayload is the payload of a document.finalized event.
type FinalizedPayload struct {
	Attempts int `json:"attempts"`
}

// RejectedPayload is the payload of a document.rejected event.
type RejectedPayload struct {
	Reason RejectReason `json:"reason"`
	Fields []string     `json:"fields,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

// NewEvent builds an event for appending. Sequence is assigned by the store.
func NewEvent(tenantID, documentID uuid.UUID, kind EventKind, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:         uuid.New(),
		TenantID:   tenantID,
		DocumentID: documentID,
		Kind:       kind,
		Payload:    raw,
		RecordedAt: time.Now().UTC(),
	}, nil
}
