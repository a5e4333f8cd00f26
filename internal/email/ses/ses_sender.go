package ses

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(region, fromAddress, fromName string) (port.EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesSender{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: fromAddress,
		fromName:    fromName,
	}, nil
}

func (s *sesSender) SendDocumentFinalized(ctx context.Context, toEmail string, proj *domain.DocumentProjection) error {
	subject := fmt.Sprintf("Document processed: %s", proj.SourceName)
	textBody := fmt.Sprintf(
		"Document %s (%s) was processed successfully after %d extraction attempt(s).\n\nNOTAFLOW",
		proj.DocumentID, proj.SourceName, proj.ExtractionAttempts)
	return s.send(ctx, toEmail, subject, textBody)
}

func (s *sesSender) SendDocumentRejected(ctx context.Context, toEmail string, proj *domain.DocumentProjection) error {
	subject := fmt.Sprintf("Document rejected: %s", proj.SourceName)
	detail := ""
	if len(proj.RejectedFields) > 0 {
		detail = fmt.Sprintf("\nFields below threshold: %s", strings.Join(proj.RejectedFields, ", "))
	}
	textBody := fmt.Sprintf(
		"Document %s (%s) was rejected.\nReason: %s%s\n\nNOTAFLOW",
		proj.DocumentID, proj.SourceName, proj.RejectReason, detail)
	return s.send(ctx, toEmail, subject, textBody)
}

func (s *sesSender) send(ctx context.Context, toEmail, subject, textBody string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
