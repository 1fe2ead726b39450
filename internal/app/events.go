package app

import (
	"context"
	"log/slog"
	"time"

	"gopherchat/internal/model"
)

type EventPublisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// publishEvent is fire-and-report: a broker failure is logged and never
// changes the outcome of the operation that produced the event.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, eventType string, userID uint, detail string) {
	if publisher == nil {
		return
	}
	event := model.Event{
		Type:       eventType,
		UserID:     userID,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.WarnContext(ctx, "publish event failed", "type", eventType, "user_id", userID, "error", err)
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
