// AngelaMos | 2026
// mailer.go

package notify

import (
	"context"
	"log/slog"
	"strings"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. Used
// when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email not delivered, no smtp host configured",
		"component", "email",
		"to", maskAddress(msg.To),
		"subject", msg.Subject,
	)
	m.logger.Debug("email body", "component", "email", "body", msg.Body)
	return nil
}

func maskAddress(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 1 {
		return addr
	}
	return addr[:1] + strings.Repeat("*", at-1) + addr[at:]
}
