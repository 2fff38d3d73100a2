package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"go.uber.org/goleak"

	"github.com/koopa0/sysagent/internal/testutil"
	"github.com/koopa0/sysagent/internal/tools"
)

func TestMain(m *testing.M) {
	// genkit.Init calls signal.NotifyContext and discards the cancel,
	// leaking one goroutine per Init; ignore that framework noise.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("os/signal.NotifyContext.func1"))
}

// newTestAgent wires a mock model with a think-only toolset.
func newTestAgent(t *testing.T, mock *testutil.MockLLM) (*Agent, *genkit.Genkit) {
	t.Helper()

	g := testutil.NewGenkit(t)
	mock.RegisterModel(g)

	ts := &tools.Toolset{Tools: []ai.Tool{tools.NewThinkTool(g)}}

	a := New(g, Options{
		Model:           "mock/test-model",
		Instructions:    "You are a Linux troubleshooting expert.",
		Temperature:     0.2,
		MaxTokens:       1000,
		MemoryMaxTokens: 2000,
		Toolset:         ts,
	})
	return a, g
}

func thinkRequest(thoughts string) *ai.ToolRequest {
	return &ai.ToolRequest{
		Name:  tools.ThinkName,
		Input: map[string]any{"thoughts": thoughts},
	}
}

func TestRunThinkFirst(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	// Turn script: the forced think step, then the final answer.
	mock.EnqueueToolRequest("", thinkRequest("check the load average first"))
	mock.Enqueue("High CPU is usually a runaway process. Run top and sort by %CPU.")

	a, _ := newTestAgent(t, mock)

	out, err := a.Run(context.Background(), "why is my cpu at 100%")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "runaway process") {
		t.Errorf("out = %q, want the scripted answer", out)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("model calls = %d, want 2 (think + main)", len(calls))
	}

	// The think phase offers exactly the think tool; the main phase offers
	// the full toolset.
	if len(calls[0].ToolNames) != 1 || calls[0].ToolNames[0] != tools.ThinkName {
		t.Errorf("think phase tools = %v, want [think]", calls[0].ToolNames)
	}
}

// noteSink collects note events, which only tool handlers emit.
type noteSink struct {
	mu    sync.Mutex
	notes []string
}

func (s *noteSink) OnToolEvent(e tools.Event) {
	if e.Kind == tools.EventNote {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.notes = append(s.notes, e.Detail)
	}
}

func TestRunThinkToolExecutes(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.EnqueueToolRequest("", thinkRequest("inspect memory pressure first"))
	mock.Enqueue("done")

	a, _ := newTestAgent(t, mock)

	// The think handler emits its thoughts as a note event; observing it
	// proves the forced first step ran the tool, not just requested it.
	sink := &noteSink{}
	ctx := tools.ContextWithSink(context.Background(), sink)

	if _, err := a.Run(ctx, "server is slow"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.notes) != 1 || sink.notes[0] != "inspect memory pressure first" {
		t.Errorf("think notes = %v, want the scripted thoughts", sink.notes)
	}
}

func TestRunRecordsMemory(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.EnqueueToolRequest("", thinkRequest("plan"))
	mock.Enqueue("first answer")
	mock.EnqueueToolRequest("", thinkRequest("plan again"))
	mock.Enqueue("second answer")

	a, _ := newTestAgent(t, mock)
	ctx := context.Background()

	if _, err := a.Run(ctx, "first question"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if a.MemoryLen() != 2 {
		t.Fatalf("MemoryLen() = %d, want 2 after first turn", a.MemoryLen())
	}

	if _, err := a.Run(ctx, "second question"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if a.MemoryLen() != 4 {
		t.Fatalf("MemoryLen() = %d, want 4 after second turn", a.MemoryLen())
	}

	// The second turn's requests must carry the first turn's history.
	calls := mock.Calls()
	lastCall := calls[len(calls)-1]
	if lastCall.UserMessage != "second question" {
		t.Errorf("last user message = %q", lastCall.UserMessage)
	}
}

func TestRunModelSkipsThink(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	// Model ignores the required tool choice; the agent continues anyway.
	mock.Enqueue("no thinking today")
	mock.Enqueue("direct answer")

	a, _ := newTestAgent(t, mock)

	out, err := a.Run(context.Background(), "quick question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "direct answer" {
		t.Errorf("out = %q, want %q", out, "direct answer")
	}
}

func TestRunEmptyResponseFallback(t *testing.T) {
	mock := testutil.NewMockLLM("")
	mock.Enqueue("") // think phase: no tool request, no text
	mock.Enqueue("") // main phase: empty

	a, _ := newTestAgent(t, mock)

	out, err := a.Run(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != FallbackMessage {
		t.Errorf("out = %q, want the fallback message", out)
	}
}

func TestNewDefaults(t *testing.T) {
	g := testutil.NewGenkit(t)
	ts := &tools.Toolset{Tools: []ai.Tool{tools.NewThinkTool(g)}}

	a := New(g, Options{Model: "mock/m", Toolset: ts, MemoryMaxTokens: 100})

	if a.maxTurns != DefaultMaxTurns {
		t.Errorf("maxTurns = %d, want %d", a.maxTurns, DefaultMaxTurns)
	}
	if a.limiter == nil {
		t.Error("default rate limiter not installed")
	}
	if !strings.Contains(a.instructions, "Expected output:") {
		t.Error("expected-output hint missing from instructions")
	}
}
