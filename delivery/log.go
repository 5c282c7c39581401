package delivery

import (
	"context"
	"log/slog"
)

// LogDeliverer writes codes to the log instead of sending mail. It is meant
// for local development only.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(ctx context.Context, msg Message) error {
	d.logger.InfoContext(ctx, "mock delivery: verification code issued",
		slog.String("email", msg.Email),
		slog.String("purpose", msg.Purpose),
		slog.String("code", msg.Code),
		slog.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
