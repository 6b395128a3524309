package notify

import (
	"EduHub/pkg/logger"
	"context"
)

// ConsoleSender writes messages to the log instead of mailing them.
type ConsoleSender struct {
	log logger.Log
}

func NewConsoleSender(log logger.Log) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email", "to", msg.To.String(), "subject", msg.Subject, "body", msg.TextContent)
	return nil
}
