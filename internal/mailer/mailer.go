// Package mailer is the email-delivery collaborator. Delivery itself is an
// external concern; the server only depends on this interface.
package mailer

import (
	"context"
	"log"
)

type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

// LogMailer writes the verification link to the log instead of sending mail;
// the default outside production.
type LogMailer struct {
	BaseURL string
}

func (m *LogMailer) SendVerification(_ context.Context, email, token string) error {
	log.Printf("[mailer] verification for %s: %s/api/v1/auth/verify?token=%s", email, m.BaseURL, token)
	return nil
}
