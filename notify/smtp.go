package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var subjects = map[Kind]string{
	KindLoginRequired:      "Check-in needs a fresh login",
	KindLoginSuccess:       "Login confirmed",
	KindCheckinSuccess:     "Check-in completed",
	KindCheckinSoftFailure: "Check-in not performed",
	KindSystemError:        "Check-in automation error",
}

// SMTPConfig is the subset of configuration the mail notifier needs.
type SMTPConfig interface {
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpRecipient() string
}

// SMTP delivers notifications as plain-text email.
type SMTP struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Notifier = (*SMTP)(nil)

// SMTPOption modifies an SMTP notifier instance.
type SMTPOption func(*SMTP)

// WithSendMail replaces the transport function (primarily for testing)
func WithSendMail(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) SMTPOption {
	return func(s *SMTP) {
		s.sendMail = send
	}
}

func NewSMTP(config SMTPConfig, options ...SMTPOption) *SMTP {
	s := &SMTP{
		config:   config,
		sendMail: smtp.SendMail,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *SMTP) Notify(_ context.Context, kind Kind, payload map[string]string) error {
	account := s.config.GetSmtpAccount()
	recipient := s.config.GetSmtpRecipient()
	if account == "" || recipient == "" {
		return errors.New("smtp account or recipient not configured")
	}

	addr := s.config.GetSmtpHost() + ":" + s.config.GetSmtpPort()
	auth := smtp.PlainAuth("", account, s.config.GetSmtpPassword(), s.config.GetSmtpHost())

	msg := buildMessage(account, recipient, kind, payload)
	if err := s.sendMail(addr, auth, account, []string{recipient}, msg); err != nil {
		return errors.Wrap(err, "smtp send failed")
	}
	return nil
}

func buildMessage(from, to string, kind Kind, payload map[string]string) []byte {
	subject, ok := subjects[kind]
	if !ok {
		subject = string(kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, payload[k])
	}

	return []byte(b.String())
}
