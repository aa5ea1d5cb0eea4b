package mailer

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp is not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (config Config) Enabled() bool {
	return strings.TrimSpace(config.Host) != "" && config.Port > 0
}

// SendFunc delivers a composed message.
type SendFunc func(message *gomail.Message) error

type Mailer struct {
	from string
	send SendFunc
}

func New(config Config) *Mailer {
	from := strings.TrimSpace(config.From)
	if from == "" {
		from = strings.TrimSpace(config.Username)
	}
	if !config.Enabled() {
		return &Mailer{from: from}
	}

	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	return &Mailer{from: from, send: func(message *gomail.Message) error { return dialer.DialAndSend(message) }}
}

func NewWithSender(from string, send SendFunc) *Mailer {
	return &Mailer{from: from, send: send}
}

func (mailer *Mailer) Enabled() bool {
	return mailer != nil && mailer.send != nil
}

func (mailer *Mailer) Send(to string, subject string, htmlBody string) error {
	if !mailer.Enabled() {
		return ErrNotConfigured
	}

	message := gomail.NewMessage()
	message.SetHeader("From", mailer.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", htmlBody)

	if err := mailer.send(message); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (mailer *Mailer) SendConfirmation(to string, fullName string, link string) error {
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Confirm your MedRemind account by opening the link below.</p>
		<p><a href="%s">Confirm e-mail</a></p>
		<p>If you did not sign up, ignore this message.</p>
	`, html.EscapeString(fullName), html.EscapeString(link))

	return mailer.Send(to, "Confirm your MedRemind account", body)
}
