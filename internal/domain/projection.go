package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notaflow/internal/fiscal"
)

// DocumentProjection is the materialized view of one document, computed by
// folding its event stream in order. It is derived state only; the log is
// the source of truth.
type DocumentProjection struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Status     DocumentStatus `json:"status"`

	ContentHash string `json:"content_hash"`
	SourceName  string `json:"source_name"`
	IssuerHint  string `json:"issuer_hint,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`

	Document    *fiscal.ParsedFiscalDocument `json:"document,omitempty"`
	Annotations map[string]fiscal.Annotation `json:"annotations,omitempty"`

	ExtractionAttempts int          `json:"extraction_attempts"`
	LastPass           string       `json:"last_pass,omitempty"`
	RejectReason       RejectReason `json:"reject_reason,omitempty"`
	RejectedFields     []string     `json:"rejected_fields,omitempty"`

	LastSequence int64     `json:"last_sequence"`
	ReceivedAt   time.Time `json:"received_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Project folds an ordered event stream into the document's current view.
// The fold is a pure function of the log: replaying the same events always
// yields the same projection. Later fields.extracted events supersede
// earlier ones per field; a later miss never erases an earlier hit, and the
// full attempt trail stays in the log for audit.
func Project(events []Event) (*DocumentProjection, error) {
	if len(events) == 0 {
		return nil, ErrNotFound
	}

	proj := &DocumentProjection{
		TenantID:   events[0].TenantID,
		DocumentID: events[0].DocumentID,
	}

	var prevSeq int64
	for i := range events {
		e := &events[i]
		if e.TenantID != proj.TenantID || e.DocumentID != proj.DocumentID {
			return nil, fmt.Errorf("project: event %s belongs to another document", e.ID)
		}
		if e.Sequence != prevSeq+1 {
			return nil, fmt.Errorf("project: sequence gap at %d (prev %d)", e.Sequence, prevSeq)
		}
		prevSeq = e.Sequence
		proj.LastSequence = e.Sequence

		switch e.Kind {
		case EventDocumentReceived:
			var p ReceivedPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("project: decoding %s payload: %w", e.Kind, err)
			}
			proj.Status = StatusReceived
			proj.ContentHash = p.ContentHash
			proj.SourceName = p.SourceName
			proj.IssuerHint = p.IssuerHint
			proj.SizeBytes = p.SizeBytes
			proj.ReceivedAt = e.RecordedAt

		case EventFieldsExtracted:
			var p ExtractedPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("project: decoding %s payload: %w", e.Kind, err)
			}
			proj.Status = StatusExtracted
			proj.Document = mergeExtracted(proj.Document, &p.Document)
			proj.ExtractionAttempts = p.Attempt
			proj.LastPass = p.Pass
			// A new extraction invalidates annotations from prior attempts.
			proj.Annotations = nil

		case EventFieldsValidated:
			var p ValidatedPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("project: decoding %s payload: %w", e.Kind, err)
			}
			proj.Status = StatusValidated
			proj.Annotations = p.Annotations

		case EventDocumentFinalized:
			proj.Status = StatusFinalized

		case EventDocumentRejected:
			var p RejectedPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("project: decoding %s payload: %w", e.Kind, err)
			}
			proj.Status = StatusRejected
			proj.RejectReason = p.Reason
			proj.RejectedFields = p.Fields

		default:
			return nil, fmt.Errorf("project: unknown event kind %q", e.Kind)
		}
		proj.UpdatedAt = e.RecordedAt
	}

	return proj, nil
}

// mergeExtracted applies the per-field supersede rule: the newer document
// wins wherever it found a field, the older value survives where the newer
// attempt found nothing. Line items and dropped rows follow the same rule.
func mergeExtracted(prev, next *fiscal.ParsedFiscalDocument) *fiscal.ParsedFiscalDocument {
	if prev == nil {
		out := *next
		return &out
	}

	out := *prev
	out.Provenance = make(map[string]fiscal.Provenance, len(prev.Provenance))
	for k, v := range prev.Provenance {
		out.Provenance[k] = v
	}

	for _, field := range fiscal.KnownFields {
		if field == fiscal.FieldLineItems {
			continue
		}
		if next.Found(field) {
			setField(&out, field, next.FieldValue(field))
			out.Provenance[field] = next.Provenance[field]
		}
	}
	if len(next.LineItems) > 0 {
		out.LineItems = next.LineItems
		out.DroppedRows = next.DroppedRows
		if p, ok := next.Provenance[fiscal.FieldLineItems]; ok {
			out.Provenance[fiscal.FieldLineItems] = p
		}
	}
	return &out
}

func setField(d *fiscal.ParsedFiscalDocument, field, value string) {
	switch field {
	case fiscal.FieldEmissionDate:
		d.EmissionDate = value
	case fiscal.FieldCompetenceDate:
		d.CompetenceDate = value
	case fiscal.FieldAccessKey:
		d.AccessKey = value
	case fiscal.FieldIssuerName:
		d.IssuerName = value
	case fiscal.FieldIssuerTaxID:
		d.IssuerTaxID = value
	case fiscal.FieldRecipientName:
		d.RecipientName = value
	case fiscal.FieldRecipientTaxID:
		d.RecipientTaxID = value
	case fiscal.FieldGrossTotal:
		d.GrossTotal = value
	}
}
