package notifications

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers a single message. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, textBody, htmlBody string) (SendResult, error)
}
