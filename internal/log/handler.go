package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// FanoutHandler wraps several slog.Handlers and passes every record to each
// of them that is enabled for the record's level. Each wrapped handler keeps
// its own level, so the terminal can show warnings only while the log file
// records every info event.
type FanoutHandler struct {
	// handlers are the underlying handlers that receive records.
	handlers []slog.Handler
}

// NewFanoutHandler creates a FanoutHandler over the given handlers.
// Nil handlers are ignored.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	hs := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return &FanoutHandler{handlers: hs}
}

// Enabled reports whether at least one wrapped handler handles level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a copy of the record to every wrapped handler enabled for
// its level. All handlers are tried; their errors are joined.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a new handler with the given attributes added to every
// wrapped handler.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		hs[i] = handler.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: hs}
}

// WithGroup returns a new handler with the given group name.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		hs[i] = handler.WithGroup(name)
	}
	return &FanoutHandler{handlers: hs}
}

// NewLogger creates the irscrape logger.
//
// Parameters:
//   - console: where terminal output goes (typically os.Stderr)
//   - verbose: if true the console shows debug records, otherwise warnings
//   - file: optional log file; receives info and above as text. May be nil.
func NewLogger(console io.Writer, verbose bool, file io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}),
	}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return slog.New(NewFanoutHandler(handlers...))
}
