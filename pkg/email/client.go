// Package email sends transactional mail over SMTP. It lives behind the
// server boundary so SMTP credentials never reach client-deliverable code.
package email

import (
	"context"
	"errors"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// ErrDisabled is returned when EMAIL_ENABLED is off.
var ErrDisabled = errors.New("email: sending disabled")

// Message describes one outbound email.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

// Sender is the contract the notification dispatcher depends on.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Client sends via SMTP using gomail.
type Client struct {
	cfg config.EmailConfig
}

// New builds a client from config.
func New(cfg config.EmailConfig) *Client {
	return &Client{cfg: cfg}
}

// Send dispatches one message, respecting the context deadline.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}
	msg, err := buildMessage(c.cfg.From, m)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(msg)
	}()

	wait := 15 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 && remaining < wait {
			wait = remaining
		}
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func buildMessage(from string, m Message) (*gomail.Message, error) {
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("email: from is required")
	}
	recipients := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		recipients = append(recipients, addr)
	}
	if len(recipients) == 0 {
		return nil, errors.New("email: at least one recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return nil, errors.New("email: subject is required")
	}
	if strings.TrimSpace(m.HTMLBody) == "" {
		return nil, errors.New("email: body is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", strings.TrimSpace(m.Subject))
	msg.SetBody("text/html", m.HTMLBody)
	return msg, nil
}
