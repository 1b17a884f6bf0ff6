package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Sender отправляет письма. Сервисам не важно, какой провайдер за этим стоит.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun отправляет письма через Mailgun API.
type Mailgun struct {
	domain string
	apiKey string
	sender string
}

// NewMailgun создаёт отправителя писем.
func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{domain: domain, apiKey: apiKey, sender: sender}
}

// Send отправляет письмо. html опционален: если задан, уходит HTML-версия.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	client := mg.NewMailgun(m.domain, m.apiKey)
	msg := client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}

	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, _, err := client.Send(c, msg); err != nil {
		return fmt.Errorf("mailer: не удалось отправить письмо: %w", err)
	}
	return nil
}
