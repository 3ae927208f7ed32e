package notify

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/raptor-ai/event-scout/internal/calendar"
	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

// EmailChannel delivers the digest over SMTP with STARTTLS auth. Registered
// events get calendar invites attached so they land in the team calendar.
type EmailChannel struct {
	cfg      config.EmailConfig
	password string
}

// NewEmail creates an email channel.
func NewEmail(cfg config.EmailConfig, password string) (*EmailChannel, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("email channel requires host, from and to addresses")
	}
	return &EmailChannel{cfg: cfg, password: password}, nil
}

func (c *EmailChannel) Name() string { return "email" }

// Send builds a multipart message with the plain digest body and one .ics
// attachment per registered event.
func (c *EmailChannel) Send(ctx context.Context, d *Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	port := c.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, port)

	subject := fmt.Sprintf("Event Scout digest: %s", Summary(d))
	msg := buildMessage(c.cfg.From, c.cfg.To, subject, FormatPlain(d), invites(d))

	auth := smtp.PlainAuth("", c.cfg.From, c.password, c.cfg.Host)
	if err := smtp.SendMail(addr, auth, c.cfg.From, c.cfg.To, msg); err != nil {
		return fmt.Errorf("sending digest email: %w", err)
	}
	return nil
}

// invites bundles every registered event into one calendar attachment.
func invites(d *Digest) map[string]string {
	var registered []event.Event
	for _, item := range d.Items {
		if item.Registered {
			registered = append(registered, item.Event.Event)
		}
	}
	ics := calendar.GenerateBulkICS(registered, "Event Scout Registrations")
	if ics == "" {
		return nil
	}
	return map[string]string{"registrations.ics": ics}
}

const mimeBoundary = "raptor-digest-boundary"

func buildMessage(from string, to []string, subject, body string, attachments map[string]string) []byte {
	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		msg.WriteString(body)
		return []byte(msg.String())
	}

	msg.WriteString("Content-Type: multipart/mixed; boundary=" + mimeBoundary + "\r\n\r\n")
	msg.WriteString("--" + mimeBoundary + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body + "\r\n")

	for name, content := range attachments {
		msg.WriteString("--" + mimeBoundary + "\r\n")
		msg.WriteString("Content-Type: text/calendar; method=PUBLISH; charset=utf-8\r\n")
		msg.WriteString("Content-Disposition: attachment; filename=" + name + "\r\n\r\n")
		msg.WriteString(content + "\r\n")
	}
	msg.WriteString("--" + mimeBoundary + "--\r\n")
	return []byte(msg.String())
}
