// Package mailer delivers invoice documents over SMTP.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends mail through a plain-auth SMTP relay.
type Mailer struct {
	cfg Config
}

// New creates a mailer with the given configuration.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers an HTML message.
func (m *Mailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		to[0], subject, htmlBody,
	))

	return smtp.SendMail(m.addr(), m.auth(), m.cfg.From, to, msg)
}

// SendWithAttachment delivers an HTML message with a single PDF attachment.
func (m *Mailer) SendWithAttachment(ctx context.Context, to []string, subject, htmlBody, filename string, attachment []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "To: %s\r\n", to[0])
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=\"UTF-8\""},
	})
	if err != nil {
		return fmt.Errorf("create body part: %w", err)
	}
	if _, err := bodyPart.Write([]byte(htmlBody)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}

	filePart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/pdf"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
	})
	if err != nil {
		return fmt.Errorf("create attachment part: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(attachment)))
	base64.StdEncoding.Encode(encoded, attachment)
	// 76-char lines per RFC 2045.
	for len(encoded) > 0 {
		n := 76
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := filePart.Write(encoded[:n]); err != nil {
			return fmt.Errorf("write attachment: %w", err)
		}
		if _, err := filePart.Write([]byte("\r\n")); err != nil {
			return fmt.Errorf("write attachment: %w", err)
		}
		encoded = encoded[n:]
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize message: %w", err)
	}

	return smtp.SendMail(m.addr(), m.auth(), m.cfg.From, to, buf.Bytes())
}

func (m *Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
}

func (m *Mailer) auth() smtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}
