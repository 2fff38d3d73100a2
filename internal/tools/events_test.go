package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

// recordingSink collects events for assertions.
type recordingSink struct {
	events []Event
}

func (r *recordingSink) OnToolEvent(e Event) {
	r.events = append(r.events, e)
}

var _ EventSink = (*recordingSink)(nil)

func TestContextSinkRoundTrip(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	ctx := ContextWithSink(context.Background(), sink)

	if got := SinkFromContext(ctx); got != sink {
		t.Errorf("SinkFromContext() = %v, want the stored sink", got)
	}
	if got := SinkFromContext(context.Background()); got != nil {
		t.Errorf("SinkFromContext(empty) = %v, want nil", got)
	}
}

func TestEmitWithoutSink(t *testing.T) {
	t.Parallel()

	// Must not panic.
	Emit(context.Background(), Event{Kind: EventStart, Tool: "x"})
}

func TestWithEventsSuccess(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	ctx := ContextWithSink(context.Background(), sink)

	wrapped := WithEvents("demo", func(_ *ai.ToolContext, input string) (string, error) {
		return "ok: " + input, nil
	})

	out, err := wrapped(&ai.ToolContext{Context: ctx}, "in")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if out != "ok: in" {
		t.Errorf("out = %q", out)
	}

	if len(sink.events) != 2 {
		t.Fatalf("events = %v, want start+finish", sink.events)
	}
	if sink.events[0].Kind != EventStart || sink.events[1].Kind != EventFinish {
		t.Errorf("event kinds = %v %v, want start finish", sink.events[0].Kind, sink.events[1].Kind)
	}
	if sink.events[0].Tool != "demo" {
		t.Errorf("tool = %q, want demo", sink.events[0].Tool)
	}
}

func TestWithEventsError(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	ctx := ContextWithSink(context.Background(), sink)

	boom := errors.New("boom")
	wrapped := WithEvents("demo", func(*ai.ToolContext, string) (string, error) {
		return "", boom
	})

	_, err := wrapped(&ai.ToolContext{Context: ctx}, "in")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	if len(sink.events) != 2 || sink.events[1].Kind != EventError {
		t.Fatalf("events = %v, want start+error", sink.events)
	}
	if sink.events[1].Detail != "boom" {
		t.Errorf("detail = %q, want boom", sink.events[1].Detail)
	}
}

func TestEventKindString(t *testing.T) {
	t.Parallel()

	cases := map[EventKind]string{
		EventStart:    "start",
		EventFinish:   "finish",
		EventError:    "error",
		EventNote:     "note",
		EventKind(99): "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("EventKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
