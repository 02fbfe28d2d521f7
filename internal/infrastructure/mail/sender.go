package mail

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/pkg/config"
)

var _ billing.Mailer = (*Sender)(nil)

// Sender adaptador SMTP del puerto Mailer (gomail). El caller trata todo
// envío como fire-and-forget; aquí solo se reporta el error.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSender construye el adaptador con la configuración SMTP.
func NewSender(cfg config.MailConfig) *Sender {
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send envía un correo HTML. gomail no acepta context; el ctx queda para
// cumplir el puerto y permitir adaptadores con timeout propio.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("enviar correo a %s: %w", to, err)
	}
	return nil
}
