package domain

// EventKind identifies the type of a document event.
type EventKind string

const (
	EventDocumentReceived  EventKind = "document.received"
	EventFieldsExtracted   EventKind = "fields.extracted"
	EventFieldsValidated   EventKind = "fields.validated"
	EventDocumentFinalized EventKind = "document.finalized"
	EventDocumentRejected  EventKind = "document.rejected"
)

// Terminal reports whether no further events may follow this kind.
func (k EventKind) Terminal() bool {
	return k == EventDocumentFinalized || k == EventDocumentRejected
}

// DocumentStatus is the lifecycle status derived from a document's event log.
type DocumentStatus string

const (
	StatusReceived  DocumentStatus = "received"
	StatusExtracted DocumentStatus = "extracted"
	StatusValidated DocumentStatus = "validated"
	StatusFinalized DocumentStatus = "finalized"
	StatusRejected  DocumentStatus = "rejected"
)

// Terminal reports whether the document reached a terminal state.
func (s DocumentStatus) Terminal() bool {
	return s == StatusFinalized || s == StatusRejected
}

// RejectReason is the typed reason carried by a document.rejected event.
type RejectReason string

const (
	RejectUnparseable   RejectReason = "unparseable"
	RejectLowConfidence RejectReason = "low_confidence"
)

// IngestStatus is the processing-queue status of a raw document row. It is
// worker bookkeeping, not document state; document state lives in the
// event log.
type IngestStatus string

const (
	IngestQueued     IngestStatus = "queued"
	IngestProcessing IngestStatus = "processing"
	IngestDone       IngestStatus = "done"
	IngestFailed     IngestStatus = "failed"
)
