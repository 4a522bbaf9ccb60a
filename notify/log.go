package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes notifications to a zerolog logger. Used in development and as
// a fallback when no SMTP account is configured.
type Log struct {
	logger zerolog.Logger
}

var _ Notifier = Log{}

func NewLog(logger zerolog.Logger) Log {
	return Log{logger: logger}
}

func (l Log) Notify(_ context.Context, kind Kind, payload map[string]string) error {
	event := l.logger.Info().Str("kind", string(kind))
	for k, v := range payload {
		event = event.Str(k, v)
	}
	event.Msg("notification")
	return nil
}
