// Package smtp is the SMTP fallback transport, used by the mail_sender
// worker and the admin delivery test.
package smtp

import (
	"context"
	"fmt"
	"io"

	"ce_platform/internal/notify"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (m *Mailer) Name() string { return "smtp" }

func (m *Mailer) Send(_ context.Context, msg notify.Message) (string, error) {
	const op = "notify.smtp.Send"

	mail := gomail.NewMessage()
	mail.SetHeader("To", msg.To)
	mail.SetHeader("From", msg.From)
	mail.SetHeader("Subject", msg.Subject)

	mail.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		mail.AddAlternative("text/html", msg.HTML)
	}

	if len(msg.Attachment) > 0 {
		mail.Attach(msg.AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(msg.Attachment)
			return err
		}))
	}

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(mail); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// SMTP has no provider message id.
	return "", nil
}
