package email

import (
	"bytes"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

type Sender interface {
	Send(to []string, subject, htmlBody string) error
}

type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth // nil for local dev (MailHog)
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	s := &SMTPSender{
		addr: net.JoinHostPort(cfg.Host, cfg.Port),
		from: cfg.From,
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

func (s *SMTPSender) Send(to []string, subject, htmlBody string) error {
	msg := buildRFC822(s.from, to, subject, htmlBody)
	if err := s.send(s.addr, s.auth, s.from, to, msg); err != nil {
		return fmt.Errorf("smtp send %q: %w", subject, err)
	}
	return nil
}

func buildRFC822(from string, to []string, subject, html string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&buf, "\r\n%s\r\n", html)
	return buf.Bytes()
}

// LogSender writes emails to the log instead of sending them (dev without SMTP).
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(to []string, subject, htmlBody string) error {
	s.Logger.Info("email", zap.Strings("to", to), zap.String("subject", subject), zap.String("body", htmlBody))
	return nil
}

// PickSender uses SMTP when a host is configured and logs otherwise.
func PickSender(cfg config.SMTPConfig, logger *zap.Logger) Sender {
	if cfg.Host != "" {
		return NewSMTPSender(cfg)
	}
	return LogSender{Logger: logger.Named("email")}
}
