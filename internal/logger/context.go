package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type so no other package can collide with our
// context entry. An empty struct costs nothing to allocate.
type contextKey struct{}

// WithContext returns a context carrying the given logger. The request
// middleware and the composition root use it to scope loggers to a
// request or to the process lifecycle.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the logger from the context. It never returns
// nil: a context without a logger (a unit test, a background goroutine)
// falls back to the global default, so call sites can log without a
// nil check.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
