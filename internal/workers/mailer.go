package workers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
)

//go:embed templates/emails.tmpl
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/emails.tmpl"))

// Message is one outgoing e-mail
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a mailer that logs every message
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info().
		Str("from", msg.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("E-mail sent")
	m.log.Debug().Str("to", msg.To).Msg(msg.Body)
	return nil
}

// emailData is what every template sees
type emailData struct {
	Name      string
	Email     string
	Link      string
	ExpiresIn string
}

// renderEmail executes the "<name>.subject" and "<name>.body" templates
func renderEmail(name string, data emailData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name+".subject", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s subject: %w", name, err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := emailTemplates.ExecuteTemplate(&buf, name+".body", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s body: %w", name, err)
	}
	return subject, buf.String(), nil
}
