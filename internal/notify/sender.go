package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is an email-like notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. Used when no mail relay is configured.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("notification (not delivered, no mail relay configured)")
	return nil
}
