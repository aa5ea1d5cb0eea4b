package mailer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

func TestSendWithoutSMTPReturnsNotConfigured(t *testing.T) {
	mailer := New(Config{})
	if mailer.Enabled() {
		t.Fatal("expected mailer without host to be disabled")
	}
	if err := mailer.Send("pat@example.com", "subject", "body"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendConfirmationComposesMessage(t *testing.T) {
	var sent *gomail.Message
	mailer := NewWithSender("noreply@medremind.local", func(message *gomail.Message) error {
		sent = message
		return nil
	})

	if err := mailer.SendConfirmation("pat@example.com", "Pat <Patient>", "http://localhost:8080/api/auth/confirm?token=abc"); err != nil {
		t.Fatalf("send confirmation: %v", err)
	}
	if sent == nil {
		t.Fatal("expected message to be sent")
	}
	if got := sent.GetHeader("To"); len(got) != 1 || got[0] != "pat@example.com" {
		t.Fatalf("unexpected To header %v", got)
	}
	if got := sent.GetHeader("From"); len(got) != 1 || got[0] != "noreply@medremind.local" {
		t.Fatalf("unexpected From header %v", got)
	}

	var buffer bytes.Buffer
	if _, err := sent.WriteTo(&buffer); err != nil {
		t.Fatalf("render message: %v", err)
	}
	rendered := strings.ReplaceAll(buffer.String(), "=\r\n", "")
	if !strings.Contains(rendered, "confirm?token=3Dabc") {
		t.Fatalf("expected confirmation link in body, got %q", rendered)
	}
	if strings.Contains(rendered, "<Patient>") {
		t.Fatal("expected full name to be escaped")
	}
}

func TestSendWrapsTransportError(t *testing.T) {
	mailer := NewWithSender("noreply@medremind.local", func(*gomail.Message) error {
		return errors.New("dial tcp: refused")
	})
	err := mailer.Send("pat@example.com", "s", "b")
	if err == nil || !strings.Contains(err.Error(), "pat@example.com") {
		t.Fatalf("expected wrapped error naming recipient, got %v", err)
	}
}
