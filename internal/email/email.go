// Package email sends transactional mail over SMTP.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers templated mail through a single SMTP relay.
type Sender struct {
	addr string
	from string
	auth smtp.Auth
	tmpl *template.Template

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSender parses the embedded templates and returns a Sender.
func NewSender(cfg Config) (*Sender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("email: host and from address are required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("email: parse templates: %w", err)
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Sender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		auth: auth,
		tmpl: tmpl,
		send: smtp.SendMail,
	}, nil
}

// WelcomeData fills the onboarding welcome template.
type WelcomeData struct {
	Fullname string
}

// SendWelcome mails the onboarding welcome message. Agents get their own
// template variant.
func (s *Sender) SendWelcome(ctx context.Context, to, fullname string, agent bool) error {
	name := "welcome.html"
	if agent {
		name = "welcome_agent.html"
	}
	return s.sendTemplate(ctx, to, "Welcome to Snaphomz", name, WelcomeData{Fullname: fullname})
}

func (s *Sender) sendTemplate(ctx context.Context, to, subject, name string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.Contains(to, "@") {
		return fmt.Errorf("email: invalid recipient %q", to)
	}
	var body bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("email: render %s: %w", name, err)
	}
	msg := buildMessage(s.from, to, subject, body.Bytes())
	if err := s.send(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("email: send to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}
