package service

import (
	"context"
	"log/slog"
	"strings"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email. HTMLBody is already rendered and escaped.
type Message struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them. It is
// meant for local runs without Gmail credentials.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	n.logger.InfoContext(ctx, "email not delivered, log provider active",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", strings.Join(names, ","),
		"body_bytes", len(msg.HTMLBody),
	)
	return nil
}
