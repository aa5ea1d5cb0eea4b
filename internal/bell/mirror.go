package bell

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Mirror shows pushed notifications outside the bell. The bell asks for
// permission once and only mirrors while it is granted.
type Mirror interface {
	RequestPermission(ctx context.Context) Permission
	Show(ctx context.Context, title string, body string) error
}

type NoopMirror struct{}

func (NoopMirror) RequestPermission(context.Context) Permission {
	return PermissionDenied
}

func (NoopMirror) Show(context.Context, string, string) error {
	return nil
}

const telegramAPIBaseURL = "https://api.telegram.org"

type TelegramMirror struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegramMirror(botToken string, chatID string) *TelegramMirror {
	return &TelegramMirror{
		botToken: strings.TrimSpace(botToken),
		chatID:   strings.TrimSpace(chatID),
		baseURL:  telegramAPIBaseURL,
		client: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

func (mirror *TelegramMirror) ChatID() string {
	return mirror.chatID
}

func (mirror *TelegramMirror) RequestPermission(context.Context) Permission {
	if mirror.botToken == "" || mirror.chatID == "" {
		return PermissionDenied
	}
	return PermissionGranted
}

func (mirror *TelegramMirror) Show(ctx context.Context, title string, body string) error {
	values := url.Values{}
	values.Set("chat_id", mirror.chatID)
	values.Set("text", fmt.Sprintf("MedRemind: %s\n%s", title, body))

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", mirror.baseURL, mirror.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := mirror.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

type MailSender interface {
	Enabled() bool
	Send(to string, subject string, htmlBody string) error
}

// MailMirror forwards pushed notifications to the user's own address.
type MailMirror struct {
	sender MailSender
	to     string
}

func NewMailMirror(sender MailSender, to string) *MailMirror {
	return &MailMirror{sender: sender, to: strings.TrimSpace(to)}
}

func (mirror *MailMirror) RequestPermission(context.Context) Permission {
	if mirror.sender == nil || !mirror.sender.Enabled() || mirror.to == "" {
		return PermissionDenied
	}
	return PermissionGranted
}

func (mirror *MailMirror) Show(_ context.Context, title string, body string) error {
	return mirror.sender.Send(mirror.to, title, fmt.Sprintf("<p>%s</p>", html.EscapeString(body)))
}
