// Package smtp delivers verification codes to email contacts.
package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/wazir-realty/api/internal/config"
	"github.com/wazir-realty/api/internal/domain"
)

// Mailer sends verification codes over plain SMTP.
type Mailer struct {
	host string
	port string
	from string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.SMTPFrom,
	}
}

// SendCode emails the code to the address. Send failures surface as
// ErrChannelUnavailable so the verification service can fall back.
func (m *Mailer) SendCode(to, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verification code\r\n\r\nYour verification code: %s", m.from, to, code)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", domain.ErrChannelUnavailable)
	}
	return nil
}
