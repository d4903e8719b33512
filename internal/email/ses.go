package email

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/prodhub/productivity-hub/internal/config"
)

// sesSender delivers verification mail through AWS SES. Credentials come
// from the default provider chain (env vars, shared config, instance
// role).
type sesSender struct {
	client  *ses.Client
	baseURL string
	from    string
}

// NewSESSender builds a Sender backed by AWS SES in the configured region.
func NewSESSender(cfg config.Config) (Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &sesSender{
		client:  ses.NewFromConfig(awsCfg),
		baseURL: cfg.APIBaseURL,
		from:    fmt.Sprintf("%q <%s>", cfg.EmailFromName, cfg.EmailFromAddress),
	}, nil
}

func (s *sesSender) SendVerification(ctx context.Context, to, name, token string) error {
	link := VerificationURL(s.baseURL, token)
	subject, html, text := verificationMessage(name, link)

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      &s.from,
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Html: &types.Content{Data: &html},
				Text: &types.Content{Data: &text},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	return nil
}
