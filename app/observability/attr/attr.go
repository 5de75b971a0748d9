// Package attr provides slog attribute helpers shared by every module so log
// keys stay consistent across services, handlers and workers.
package attr

import (
	"context"
	"log/slog"
	"time"
)

type correlationKey struct{}

// WithCorrelationID stores the correlation ID of the inbound message on ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom returns the correlation ID stored on ctx, if any.
func CorrelationIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// ExtractCorrelationID returns the correlation_id attribute for ctx.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationIDFrom(ctx))
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

func Time(key string, value time.Time) slog.Attr {
	return slog.Time(key, value)
}

// Error returns the error attribute. A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// TournamentID tags a log line with the tournament it concerns.
func TournamentID(id string) slog.Attr {
	return slog.String("tournament_id", id)
}

// UserID tags a log line with the Discord user it concerns.
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}
