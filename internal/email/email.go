// Package email renders and delivers transactional mail.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a templated email. Template names a file under templates/
// without its extension.
type Message struct {
	To       string
	Subject  string
	Template string
	Vars     map[string]string
	FromName string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes the message template into an HTML body.
func Render(msg Message) (string, error) {
	tmpl := templates.Lookup(msg.Template + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("unknown email template %q", msg.Template)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, msg.Vars); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// LogSender renders messages and logs them instead of delivering. Used when
// no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if _, err := Render(msg); err != nil {
		return err
	}
	s.logger.Info("email not sent, smtp disabled",
		"to", msg.To,
		"subject", msg.Subject,
		"template", msg.Template,
	)
	return nil
}
