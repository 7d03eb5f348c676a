// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail sends the account emails of email-based registration.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Message is one plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewPasswordMessage builds the mail carrying a generated password.
func NewPasswordMessage(to, name, password string) Message {
	return Message{
		To:      to,
		Subject: "Your account password",
		Body: fmt.Sprintf("Hello %s,\r\n\r\nyour account has been registered.\r\n"+
			"Log in with the password: %s\r\n\r\nYou can change it with the changepassword command.\r\n",
			name, password),
	}
}

// Disabled is the Sender used when no mail server is configured.
type Disabled struct{}

// Send always fails.
func (Disabled) Send(_ context.Context, msg Message) error {
	return oops.Code("MAIL_DISABLED").
		With("to", msg.To).
		Errorf("no mail server configured")
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

// NewSMTPSender validates cfg and returns a Sender. Credentials are
// optional; with them the sender uses PLAIN auth, which net/smtp only
// permits over TLS or to localhost.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("mail host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("port", cfg.Port).Errorf("invalid mail port")
	}
	if !strings.Contains(cfg.From, "@") {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("from", cfg.From).Errorf("invalid sender address")
	}

	s := &SMTPSender{cfg: cfg, send: smtp.SendMail, now: time.Now}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s, nil
}

// Send delivers msg. The SMTP exchange itself is not cancellable; ctx is
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", msg.To).Wrap(err)
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return oops.Code("MAIL_INVALID_HEADER").With("to", msg.To).Errorf("header contains a line break")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, s.auth, s.cfg.From, []string{msg.To}, s.render(msg)); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("to", msg.To).
			With("addr", addr).
			Wrap(err)
	}
	return nil
}

func (s *SMTPSender) render(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}
