package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailConfig is the per-channel SMTP configuration decoded from an
// AlertChannel's configuration blob.
type EmailConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	Username           string `json:"username"`
	Password           string `json:"password"`
	From               string `json:"from"`
	To                 string `json:"to"`
	UseTLS             bool   `json:"tls"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
}

// EmailSender delivers notifications as an HTML email over SMTP: implicit
// TLS when the channel sets "tls", otherwise opportunistic STARTTLS.
type EmailSender struct {
	cfg EmailConfig
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Kind() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, payload Payload) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return &SendError{Err: fmt.Errorf("setting from address: %w", err), Retriable: false}
	}
	if err := m.To(s.cfg.To); err != nil {
		return &SendError{Err: fmt.Errorf("setting to address: %w", err), Retriable: false}
	}
	m.Subject(fmt.Sprintf("[llmgate] %s", payload.Title))
	m.SetBodyString(mail.TypeTextHTML, renderEmailBody(payload))

	port := s.cfg.Port
	if port == 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(30 * time.Second),
		mail.WithTLSConfig(&tls.Config{ServerName: s.cfg.Host, InsecureSkipVerify: s.cfg.InsecureSkipVerify}),
	}
	if s.cfg.UseTLS {
		opts = append(opts, mail.WithSSL(), mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.cfg.Username), mail.WithPassword(s.cfg.Password))
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return &SendError{Err: fmt.Errorf("creating smtp client: %w", err), Retriable: false}
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return &SendError{Err: fmt.Errorf("sending email: %w", err), Retriable: true}
	}
	return nil
}

func renderEmailBody(payload Payload) string {
	return fmt.Sprintf(
		"<h2>%s</h2><p>Threshold <b>%s</b> reached %.2f (limit %.2f) for the window %s – %s.</p>",
		payload.Title, payload.ThresholdKind, payload.Value, payload.Limit,
		payload.WindowStart.Format(time.RFC3339), payload.WindowEnd.Format(time.RFC3339),
	)
}
