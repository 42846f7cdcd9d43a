package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/user/blogplatform-go/apperror"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kinds of outbound email.
const (
	KindWelcome       = "welcome"
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// Queue accepts rendered messages. *Dispatcher implements it.
type Queue interface {
	Enqueue(msg Message) bool
}

// Mailer renders account emails and queues them for delivery.
type Mailer struct {
	queue       Queue
	appName     string
	frontendURL string
	templates   map[string]*template.Template
}

type templateData struct {
	AppName     string
	FrontendURL string
	Username    string
	Link        string
	ExpiresIn   string
}

// NewMailer parses the embedded templates.
func NewMailer(queue Queue, appName, frontendURL string) (*Mailer, error) {
	m := &Mailer{
		queue:       queue,
		appName:     appName,
		frontendURL: frontendURL,
		templates:   make(map[string]*template.Template),
	}
	for _, kind := range []string{KindWelcome, KindVerification, KindPasswordReset} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+kind+".html")
		if err != nil {
			return nil, apperror.NewConfigError(fmt.Sprintf("failed to parse %s email template", kind), err)
		}
		m.templates[kind] = tmpl
	}
	return m, nil
}

func (m *Mailer) render(kind string, data templateData) (string, error) {
	data.AppName = m.appName
	data.FrontendURL = m.frontendURL
	var buf bytes.Buffer
	if err := m.templates[kind].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", apperror.NewInternalError(fmt.Sprintf("failed to render %s email", kind), err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(kind, to, subject string, data templateData) error {
	body, err := m.render(kind, data)
	if err != nil {
		return err
	}
	m.queue.Enqueue(Message{Kind: kind, To: to, Subject: subject, HTMLBody: body})
	return nil
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// SendWelcome queues the welcome email.
func (m *Mailer) SendWelcome(to, username string) error {
	return m.send(KindWelcome, to, "Welcome to "+m.appName, templateData{Username: username})
}

// SendVerification queues the email verification link.
func (m *Mailer) SendVerification(to, username, token string, ttl time.Duration) error {
	return m.send(KindVerification, to, "Email Verification - "+m.appName, templateData{
		Username:  username,
		Link:      m.link("/verify-email", token),
		ExpiresIn: humanDuration(ttl),
	})
}

// SendPasswordReset queues the password reset link.
func (m *Mailer) SendPasswordReset(to, username, token string, ttl time.Duration) error {
	return m.send(KindPasswordReset, to, "Password Reset - "+m.appName, templateData{
		Username:  username,
		Link:      m.link("/reset-password", token),
		ExpiresIn: humanDuration(ttl),
	})
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case d >= time.Hour && d%time.Hour == 0:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
