package consumer

import (
	"context"

	"go.uber.org/zap"
)

// LogHandler writes one structured audit line per roster event.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler constructs a LogHandler.
func NewLogHandler(logger *zap.Logger) *LogHandler {
	return &LogHandler{logger: logger.Named("audit")}
}

// Handle implements Handler.
func (h *LogHandler) Handle(_ context.Context, msg Message) error {
	h.logger.Info("roster changed",
		zap.String("event_id", msg.Event.EventID),
		zap.String("event_type", msg.Event.Type),
		zap.String("activity", msg.Event.Activity),
		zap.String("email", msg.Event.Email),
		zap.Time("occurred_at", msg.Event.OccurredAt),
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)
	return nil
}

// Chain runs handlers in order and stops at the first error.
type Chain []Handler

// Handle implements Handler.
func (c Chain) Handle(ctx context.Context, msg Message) error {
	for _, h := range c {
		if err := h.Handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
