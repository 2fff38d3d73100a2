package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
)

// appName prefixes every log line's source segment.
const appName = "sysagent"

// continuationIndent is applied to the second and later lines of multiline
// messages so a reader can tell record boundaries apart.
const continuationIndent = "    "

// handler is a slog.Handler producing pipe-delimited single-record lines:
//
//	2025-01-02 15:04:05 | INFO     | sysagent:agent:Agent.Run:142 - message key=value
//
// Multiline messages keep one record per entry with continuation lines
// indented.
type handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	attrs []slog.Attr
	group string
}

func newHandler(w io.Writer, level slog.Leveler) *handler {
	return &handler{w: w, mu: &sync.Mutex{}, level: level}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " | %-8s | ", r.Level.String())
	b.WriteString(sourceSegment(r.PC))
	b.WriteString(" - ")
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		appendAttr(&b, h.group, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})

	line := strings.ReplaceAll(b.String(), "\n", "\n"+continuationIndent)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

func (h *handler) WithGroup(name string) slog.Handler {
	h2 := *h
	if h2.group != "" {
		h2.group += "."
	}
	h2.group += name
	return &h2
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Resolve())
}

// sourceSegment renders the record's origin as app:package:function:line.
// Method receivers keep their type name, so (*Agent).Run becomes Agent.Run.
func sourceSegment(pc uintptr) string {
	if pc == 0 {
		return appName + ":unknown:unknown:0"
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.Function == "" {
		return appName + ":unknown:unknown:0"
	}

	full := frame.Function
	if slash := strings.LastIndex(full, "/"); slash >= 0 {
		full = full[slash+1:]
	}
	pkg, fn, ok := strings.Cut(full, ".")
	if !ok {
		fn = full
		pkg = "main"
	}
	fn = strings.NewReplacer("(*", "", ")", "").Replace(fn)

	return fmt.Sprintf("%s:%s:%s:%d", appName, pkg, fn, frame.Line)
}
