// Package mailer delivers account emails.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends mail through Amazon SES.
type SESMailer struct {
	client      sesAPI
	from        string
	frontendURL string
}

func NewSESMailer(ctx context.Context, region, from, frontendURL string) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from, frontendURL: frontendURL}, nil
}

func (m *SESMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	subject, body := resetMessage(m.frontendURL, token)
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(m.from),
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	return nil
}

// LogMailer logs the reset link instead of sending it. Used when SES is not configured.
type LogMailer struct {
	logger      *slog.Logger
	frontendURL string
}

func NewLogMailer(logger *slog.Logger, frontendURL string) *LogMailer {
	return &LogMailer{logger: logger, frontendURL: frontendURL}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	m.logger.InfoContext(ctx, "password reset email not sent, mailer not configured",
		slog.String("to", to),
		slog.String("link", ResetLink(m.frontendURL, token)),
	)
	return nil
}

func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset_password?token=" + url.QueryEscape(token)
}

func resetMessage(frontendURL, token string) (string, string) {
	subject := "Password Reset Request"
	body := fmt.Sprintf("We received a request to reset your password.\n\n"+
		"Use the link below to choose a new one. It expires in one hour.\n\n%s\n\n"+
		"If you did not request this, you can ignore this email.", ResetLink(frontendURL, token))
	return subject, body
}
