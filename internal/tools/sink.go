package tools

import (
	"fmt"

	"github.com/koopa0/sysagent/internal/log"
)

// LogSink writes every tool event to the structured log. With an echo
// function attached (debug mode), a short human-readable line additionally
// goes to the console. Outside debug mode the console stays clean while the
// log file keeps the full record.
type LogSink struct {
	logger *log.Logger
	echo   func(string)
}

// NewLogSink creates a sink writing to logger. echo may be nil to keep the
// console silent.
func NewLogSink(logger *log.Logger, echo func(string)) *LogSink {
	if logger == nil {
		logger = log.NewNop()
	}
	return &LogSink{logger: logger, echo: echo}
}

func (s *LogSink) OnToolEvent(e Event) {
	switch e.Kind {
	case EventError:
		s.logger.Warn("tool failed", "tool", e.Tool, "detail", e.Detail)
	default:
		s.logger.Debug("tool event", "tool", e.Tool, "kind", e.Kind.String(), "detail", e.Detail)
	}

	if s.echo == nil {
		return
	}
	switch e.Kind {
	case EventStart:
		s.echo(fmt.Sprintf("[tool] %s running...", e.Tool))
	case EventFinish:
		s.echo(fmt.Sprintf("[tool] %s done", e.Tool))
	case EventError:
		s.echo(fmt.Sprintf("[tool] %s failed: %s", e.Tool, e.Detail))
	}
}
