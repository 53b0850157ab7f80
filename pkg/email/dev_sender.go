package email

import (
	"context"
	"log/slog"
)

// devSender logs messages instead of sending them. Used when Postmark
// credentials are absent so local development never emails real people.
type devSender struct {
	log *slog.Logger
}

// NewDevSender creates a sender that only logs.
func NewDevSender(log *slog.Logger) Sender {
	if log == nil {
		log = slog.Default()
	}
	return &devSender{log: log}
}

func (s *devSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email suppressed in dev mode",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
	)
	return nil
}
