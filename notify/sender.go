package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/config"
)

// NewSender picks the SMTP sender when a host is configured and the logging
// sender otherwise.
func NewSender(cfg config.MailConfig) Sender {
	if cfg.SMTPHost == "" {
		log.Println("notify: SMTP_HOST not set, emails will be logged instead of sent")
		return LogSender{}
	}
	return &SMTPSender{cfg: cfg}
}

// LogSender writes messages to the log. Used in development.
type LogSender struct{}

// Send logs the message envelope.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("notify: [%s] to=%s subject=%q (%d bytes)", msg.Kind, msg.To, msg.Subject, len(msg.HTMLBody))
	return nil
}

// SMTPSender delivers through an SMTP relay with STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg config.MailConfig
}

// Send delivers msg. The context deadline bounds the whole SMTP exchange.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return apperror.NewExternalServiceError("failed to reach SMTP server", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return apperror.NewExternalServiceError("SMTP handshake failed", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return apperror.NewExternalServiceError("SMTP STARTTLS failed", err)
		}
	}
	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return apperror.NewExternalServiceError("SMTP authentication failed", err)
		}
	}

	if err := client.Mail(s.cfg.FromEmail); err != nil {
		return apperror.NewExternalServiceError("SMTP MAIL FROM rejected", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return apperror.NewExternalServiceError("SMTP RCPT TO rejected", err)
	}
	w, err := client.Data()
	if err != nil {
		return apperror.NewExternalServiceError("SMTP DATA rejected", err)
	}
	if _, err := w.Write(buildMIME(s.cfg.FromName, s.cfg.FromEmail, msg)); err != nil {
		return apperror.NewExternalServiceError("failed to write message body", err)
	}
	if err := w.Close(); err != nil {
		return apperror.NewExternalServiceError("SMTP server rejected message", err)
	}
	return client.Quit()
}

func buildMIME(fromName, fromEmail string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	return []byte(b.String())
}
