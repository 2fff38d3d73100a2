package tools

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	applog "github.com/koopa0/sysagent/internal/log"
)

func TestLogSinkWritesLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewLogSink(applog.NewWithWriter(&buf, slog.LevelDebug), nil)

	sink.OnToolEvent(Event{Kind: EventStart, Tool: "check_disk"})
	sink.OnToolEvent(Event{Kind: EventError, Tool: "check_disk", Detail: "timeout"})

	out := buf.String()
	if !strings.Contains(out, "check_disk") {
		t.Errorf("log missing tool name:\n%s", out)
	}
	if !strings.Contains(out, "tool failed") || !strings.Contains(out, "timeout") {
		t.Errorf("log missing failure record:\n%s", out)
	}
}

func TestLogSinkEcho(t *testing.T) {
	t.Parallel()

	var echoed []string
	sink := NewLogSink(nil, func(line string) { echoed = append(echoed, line) })

	sink.OnToolEvent(Event{Kind: EventStart, Tool: "check_disk"})
	sink.OnToolEvent(Event{Kind: EventFinish, Tool: "check_disk"})
	sink.OnToolEvent(Event{Kind: EventNote, Tool: "think", Detail: "plan"})

	if len(echoed) != 2 {
		t.Fatalf("echoed = %v, want start and finish only", echoed)
	}
	if !strings.Contains(echoed[0], "running") || !strings.Contains(echoed[1], "done") {
		t.Errorf("echoed = %v", echoed)
	}
}

func TestLogSinkSilentWithoutEcho(t *testing.T) {
	t.Parallel()

	// Nil logger and nil echo must not panic.
	sink := NewLogSink(nil, nil)
	sink.OnToolEvent(Event{Kind: EventFinish, Tool: "x"})
}
