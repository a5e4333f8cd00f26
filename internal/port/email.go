package port

import (
	"context"

	"notaflow/internal/domain"
)

// EmailSender defines the contract for terminal-event notifications.
type EmailSender interface {
	SendDocumentFinalized(ctx context.Context, toEmail string, proj *domain.DocumentProjection) error
	SendDocumentRejected(ctx context.Context, toEmail string, proj *domain.DocumentProjection) error
}
