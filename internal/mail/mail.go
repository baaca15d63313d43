// Package mail delivers account verification e-mails over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"time"

	"github.com/mc855/authenticator/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

const verificationSubject = "Confirme seu e-mail"

// Config holds the SMTP endpoint and sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender renders the verification template and pushes it through the
// configured SMTP relay, upgrading the connection with STARTTLS when the
// server offers it.
type Sender struct {
	cfg Config
	tpl *template.Template
}

// NewSender parses the embedded templates up front so a broken template
// fails at startup rather than on the first delivery.
func NewSender(cfg Config) (*Sender, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail: parse templates: %w", err)
	}
	return &Sender{cfg: cfg, tpl: tpl}, nil
}

var _ auth.Mailer = (*Sender)(nil)

// SendVerification delivers the confirmation message for one account.
func (s *Sender) SendVerification(ctx context.Context, m auth.VerificationMail) error {
	body, err := s.renderVerification(m)
	if err != nil {
		return err
	}
	msg := buildMessage(s.cfg.From, m.To, verificationSubject, body)
	return s.send(ctx, m.To, msg)
}

func (s *Sender) renderVerification(m auth.VerificationMail) (string, error) {
	var buf bytes.Buffer
	if err := s.tpl.ExecuteTemplate(&buf, "verification.html", m); err != nil {
		return "", fmt.Errorf("mail: render verification: %w", err)
	}
	return buf.String(), nil
}

func (s *Sender) send(ctx context.Context, to string, msg []byte) error {
	dialer := net.Dialer{Timeout: 15 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			dialer.Timeout = remaining
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer client.Quit()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		plain := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(plain); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("mail: RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close data: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return msg.Bytes()
}
