// Package log configures structured logging for the application.
//
// Every record goes to a per-day file under the log directory at debug
// level. The console stays quiet unless debug mode is on, in which case a
// second handler mirrors records to stderr. Components receive the logger
// by injection rather than reaching for a global.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is an alias for slog.Logger, allowing future logger changes
// without touching call sites.
type Logger = slog.Logger

// DefaultDir is where per-day log files are created.
const DefaultDir = "logs"

// New creates the application logger writing to logs/agent_YYYYMMDD.log.
// With debug enabled, records are additionally mirrored to stderr. The
// returned closer flushes and closes the underlying file.
func New(debug bool) (*Logger, func() error, string, error) {
	return NewAt(DefaultDir, debug)
}

// NewAt is New with an explicit log directory.
func NewAt(dir string, debug bool) (*Logger, func() error, string, error) {
	file, err := openDailyFile(dir)
	if err != nil {
		return nil, nil, "", err
	}

	var h slog.Handler = newHandler(file, slog.LevelDebug)
	if debug {
		h = fanout{h, newHandler(os.Stderr, slog.LevelDebug)}
	}

	return slog.New(h), file.Close, file.Path(), nil
}

// NewWithWriter creates a logger for tests, writing formatted records to w.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	return slog.New(newHandler(w, level))
}

// NewNop creates a logger that discards everything.
func NewNop() *Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// fanout dispatches each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
