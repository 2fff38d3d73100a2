// Package tools assembles the agent's toolset: the think tool, knowledge
// base search, and the Linux diagnostic tools served by an external MCP
// process.
package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// EventKind classifies tool lifecycle events.
type EventKind int

const (
	// EventStart signals a tool beginning execution.
	EventStart EventKind = iota
	// EventFinish signals successful completion.
	EventFinish
	// EventError signals a failed execution.
	EventError
	// EventNote carries auxiliary diagnostics tied to a tool.
	EventNote
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventFinish:
		return "finish"
	case EventError:
		return "error"
	case EventNote:
		return "note"
	default:
		return "unknown"
	}
}

// Event is one tool lifecycle record.
type Event struct {
	Kind   EventKind
	Tool   string
	Detail string
}

// EventSink receives tool lifecycle events. Implementations decide where
// records go; tool code never writes to the console directly.
type EventSink interface {
	OnToolEvent(Event)
}

// sinkKey uses an empty struct for a zero-allocation context key.
type sinkKey struct{}

// ContextWithSink stores an EventSink in the context for the duration of a
// conversation turn.
func ContextWithSink(ctx context.Context, sink EventSink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFromContext retrieves the EventSink, or nil when none is bound.
// A nil sink means events are silently dropped, so code paths without a
// sink still work.
func SinkFromContext(ctx context.Context) EventSink {
	sink, _ := ctx.Value(sinkKey{}).(EventSink)
	return sink
}

// Emit sends an event to the context's sink, if any.
func Emit(ctx context.Context, e Event) {
	if sink := SinkFromContext(ctx); sink != nil {
		sink.OnToolEvent(e)
	}
}

// WithEvents wraps a typed tool handler to emit lifecycle events around the
// call. Without a sink in the context the handler runs unobserved.
func WithEvents[In, Out any](name string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		Emit(ctx.Context, Event{Kind: EventStart, Tool: name})

		out, err := fn(ctx, input)

		if err != nil {
			Emit(ctx.Context, Event{Kind: EventError, Tool: name, Detail: err.Error()})
		} else {
			Emit(ctx.Context, Event{Kind: EventFinish, Tool: name})
		}
		return out, err
	}
}
