// Package email delivers account verification mail. Delivery is
// asynchronous: the register handler publishes an event and the queue
// consumer calls a Sender. A send failure never rolls back user creation;
// the account simply stays unverified until the mail goes through.
package email

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/prodhub/productivity-hub/internal/config"
)

// Sender delivers one verification email.
type Sender interface {
	SendVerification(ctx context.Context, to, name, token string) error
}

// NewSender selects the provider from configuration. Unknown values fall
// back to the log sender so development environments work without
// credentials.
func NewSender(cfg config.Config) Sender {
	switch cfg.EmailService {
	case "aws-ses":
		s, err := NewSESSender(cfg)
		if err != nil {
			log.Printf("email: SES init failed (%v), falling back to log sender", err)
			return NewLogSender(cfg)
		}
		return s
	default:
		return NewLogSender(cfg)
	}
}

// VerificationURL builds the link mailed to the user.
func VerificationURL(baseURL, token string) string {
	return fmt.Sprintf("%s/api/auth/verify-email?token=%s", baseURL, url.QueryEscape(token))
}

// logSender writes the verification link to the process log instead of
// sending mail. Used in dev and as the fallback when no provider is
// configured.
type logSender struct {
	baseURL string
}

func NewLogSender(cfg config.Config) Sender {
	return &logSender{baseURL: cfg.APIBaseURL}
}

func (s *logSender) SendVerification(ctx context.Context, to, name, token string) error {
	log.Printf("email: verification link for %s <%s>: %s", name, to, VerificationURL(s.baseURL, token))
	return nil
}
