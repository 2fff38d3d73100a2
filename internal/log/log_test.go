package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

var lineFormat = regexp.MustCompile(
	`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \| INFO     \| sysagent:log:\S+:\d+ - hello$`)

func TestHandlerLineFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug)

	logger.Info("hello")

	line := strings.TrimSuffix(buf.String(), "\n")
	if !lineFormat.MatchString(line) {
		t.Errorf("line %q does not match expected format", line)
	}
}

func TestHandlerLevelPadding(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug)

	logger.Debug("a")
	logger.Warn("b")
	logger.Error("c")

	for _, want := range []string{"| DEBUG    |", "| WARN     |", "| ERROR    |"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestHandlerMultilineIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug)

	logger.Info("first line\nsecond line\nthird line")

	out := buf.String()
	if !strings.Contains(out, "\n    second line\n    third line\n") {
		t.Errorf("continuation lines not indented:\n%s", out)
	}
	if strings.Count(out, "sysagent:") != 1 {
		t.Errorf("multiline message must remain a single record:\n%s", out)
	}
}

func TestHandlerAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug)

	logger.With("run_id", "r-1").Info("turn complete", "interaction", 3)

	out := buf.String()
	if !strings.Contains(out, "run_id=r-1") || !strings.Contains(out, "interaction=3") {
		t.Errorf("attrs missing from output:\n%s", out)
	}
}

func TestHandlerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo)

	logger.Debug("invisible")
	logger.Info("visible")

	if strings.Contains(buf.String(), "invisible") {
		t.Error("debug record leaked through info-level handler")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("info record missing")
	}
}

func TestNewAtCreatesPerDayFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, closeFn, path, err := NewAt(dir, false)
	if err != nil {
		t.Fatalf("NewAt() error = %v", err)
	}
	defer closeFn()

	logger.Info("probe")

	wantName := "agent_" + time.Now().Format("20060102") + ".log"
	if filepath.Base(path) != wantName {
		t.Errorf("log path = %q, want basename %q", path, wantName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "probe") {
		t.Errorf("log file missing record:\n%s", data)
	}
}

func TestNewNopDiscards(t *testing.T) {
	t.Parallel()

	logger := NewNop()
	logger.Error("nothing should happen")
}
