// Package mailer delivers transactional email through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/gtclicks/ledger-backend/pkg/config"
)

var (
	errAPIKeyRequired    = errors.New("sendgrid api key is required")
	errRecipientRequired = errors.New("recipient email is required")
)

// Message is a single-recipient email.
type Message struct {
	ToName    string
	ToEmail   string
	Subject   string
	PlainText string
	HTML      string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridSender sends mail with the v3 mail/send API.
type SendgridSender struct {
	client sendClient
	from   *mail.Email
}

// NewSendgrid builds a sender from configuration.
func NewSendgrid(cfg config.SendgridConfig) (*SendgridSender, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(key),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}, nil
}

// Send delivers msg. Non-2xx answers are returned as errors.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errRecipientRequired
	}
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(s.from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// NopSender drops every message. Used when no provider is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, Message) error { return nil }
