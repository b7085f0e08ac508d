// Package console provides a Sender that writes notifications to the log.
// The bundled binary uses it; real deployments inject their chat transport
// behind the same interface.
package console

import (
	"context"

	"cdr.dev/slog/v3"
)

type Sender struct {
	logger slog.Logger
}

func NewSender(logger slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	s.logger.Info(ctx, "outbound notification",
		slog.F("chat_id", chatID),
		slog.F("text", text),
	)
	return nil
}
