package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler copies each record to every sink that accepts its level. The
// service uses it to keep the console output and the rolling JSON file in step.
type teeHandler struct {
	sinks []slog.Handler
}

// Tee returns a handler writing to all sinks. A single sink is returned as is.
func Tee(sinks ...slog.Handler) slog.Handler {
	if len(sinks) == 1 {
		return sinks[0]
	}

	return &teeHandler{sinks: sinks}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range t.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle writes to every enabled sink; a failing sink does not stop the rest.
func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var errs []error

	for _, s := range t.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}

		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) *teeHandler {
	sinks := make([]slog.Handler, 0, len(t.sinks))
	for _, s := range t.sinks {
		sinks = append(sinks, fn(s))
	}

	return &teeHandler{sinks: sinks}
}
