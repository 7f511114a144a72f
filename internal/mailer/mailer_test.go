package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

type stubSES struct {
	input *ses.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailerSendsResetLink(t *testing.T) {
	client := &stubSES{}
	m := &SESMailer{client: client, from: "noreply@example.com", frontendURL: "https://app.example.com/"}

	if err := m.SendPasswordReset(context.Background(), "user@example.com", "abc123"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.input == nil {
		t.Fatalf("Expected SendEmail to be called")
	}
	if got := client.input.Destination.ToAddresses; len(got) != 1 || got[0] != "user@example.com" {
		t.Errorf("Expected recipient user@example.com, got %v", got)
	}
	if got := aws.ToString(client.input.Source); got != "noreply@example.com" {
		t.Errorf("Expected source noreply@example.com, got %s", got)
	}
	body := aws.ToString(client.input.Message.Body.Text.Data)
	if !strings.Contains(body, "https://app.example.com/reset_password?token=abc123") {
		t.Errorf("Expected reset link in body, got %q", body)
	}
}

func TestSESMailerWrapsErrors(t *testing.T) {
	m := &SESMailer{client: &stubSES{err: errors.New("throttled")}, from: "noreply@example.com"}
	err := m.SendPasswordReset(context.Background(), "user@example.com", "abc")
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("Expected wrapped SES error, got %v", err)
	}
}

func TestLogMailerLogsLink(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)), "http://localhost:3000")

	if err := m.SendPasswordReset(context.Background(), "user@example.com", "tok"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "reset_password?token=tok") {
		t.Errorf("Expected reset link in log output, got %q", buf.String())
	}
}
