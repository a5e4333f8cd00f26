package noop

import (
	"context"
	"log"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op EmailSender that logs notifications to stdout.
func NewNoopSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) SendDocumentFinalized(_ context.Context, toEmail string, proj *domain.DocumentProjection) error {
	log.Printf("[NOOP EMAIL] Finalized notice for %s: document %s (%s), %d attempts", toEmail, proj.DocumentID, proj.SourceName, proj.ExtractionAttempts)
	return nil
}

func (s *noopSender) SendDocumentRejected(_ context.Context, toEmail string, proj *domain.DocumentProjection) error {
	log.Printf("[NOOP EMAIL] Rejection notice for %s: document %s (%s), reason %s", toEmail, proj.DocumentID, proj.SourceName, proj.RejectReason)
	return nil
}
