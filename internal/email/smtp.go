package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/meshpoint/accounts/internal/observability/logger"
)

// Sender delivers the transactional mail the account subsystem needs.
type Sender interface {
	SendConfirmation(ctx context.Context, to, username, confirmToken string) error
}

// SMTPSender manda correo por SMTP usando go-mail. TLSMode:
// "auto" | "starttls" | "ssl" | "none".
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string
	InsecureSkipVerify bool

	// ConfirmBaseURL is the public URL the confirmation link points at;
	// the token is appended as ?token=.
	ConfirmBaseURL string
}

func NewSMTPSender(host string, port int, from, user, pass, confirmBaseURL string) *SMTPSender {
	return &SMTPSender{
		Host:           host,
		Port:           port,
		From:           from,
		User:           user,
		Pass:           pass,
		TLSMode:        "auto",
		ConfirmBaseURL: confirmBaseURL,
	}
}

func (s *SMTPSender) SendConfirmation(ctx context.Context, to, username, confirmToken string) error {
	link := fmt.Sprintf("%s?token=%s", s.ConfirmBaseURL, confirmToken)
	subject := "Confirm your email address"
	text := fmt.Sprintf(
		"Hi %s,\n\nConfirm your email address by opening this link:\n\n%s\n\nIf you did not request this, ignore this message.\n",
		username, link,
	)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Confirm your email address by clicking the link below:</p><p><a href="%s">Confirm email</a></p><p>If you did not request this, ignore this message.</p>`,
		username, link,
	)
	return s.send(ctx, to, subject, html, text)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	log := logger.From(ctx).With(
		logger.Layer("email"),
		logger.Component("smtp"),
	)
	log.Info("smtp send", logger.String("to", to), logger.String("subject", subject))

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Preferimos multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // sólo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err), logger.String("to", to))
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
