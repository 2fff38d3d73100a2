// Package agent implements the conversational troubleshooting agent: a
// think-first tool-calling loop over a genkit model with bounded
// conversation memory.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/koopa0/sysagent/internal/log"
	"github.com/koopa0/sysagent/internal/tools"
)

// FallbackMessage is returned when the model produces neither text nor
// tool requests.
const FallbackMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// expectedOutput steers the model toward the answer shape users need.
const expectedOutput = "Clear, actionable troubleshooting guidance."

// DefaultMaxTurns bounds tool-calling rounds within a single query.
const DefaultMaxTurns = 5

// Options configures a new Agent.
type Options struct {
	// Model is the provider-qualified model name, e.g. "openai/gpt-4o-mini".
	Model string

	// Instructions is the system prompt text.
	Instructions string

	Temperature float64
	MaxTokens   int

	// MemoryMaxTokens bounds the conversation transcript.
	MemoryMaxTokens int

	// Toolset is the negotiated tool list; the think tool must be first.
	Toolset *tools.Toolset

	// MaxTurns overrides DefaultMaxTurns when positive.
	MaxTurns int

	// RateLimiter throttles model calls. Nil installs a default of
	// 10 req/s with burst 30.
	RateLimiter *rate.Limiter

	// Retry overrides DefaultRetryConfig when non-zero.
	Retry *RetryConfig

	Logger *log.Logger
}

// Agent executes conversation turns. Construct once per process; Run is
// meant for sequential turn-by-turn use, matching the CLI loop.
type Agent struct {
	g            *genkit.Genkit
	model        string
	instructions string
	temperature  float64
	maxTokens    int
	toolset      *tools.Toolset
	memory       *Memory
	maxTurns     int
	limiter      *rate.Limiter
	retry        RetryConfig
	logger       *log.Logger
}

// New creates an Agent.
func New(g *genkit.Genkit, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	return &Agent{
		g:            g,
		model:        opts.Model,
		instructions: opts.Instructions + "\n\nExpected output: " + expectedOutput,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		toolset:      opts.Toolset,
		memory:       NewMemory(opts.MemoryMaxTokens, logger),
		maxTurns:     maxTurns,
		limiter:      limiter,
		retry:        retry,
		logger:       logger,
	}
}

// MemoryLen reports the number of messages currently held in memory.
func (a *Agent) MemoryLen() int {
	return a.memory.Len()
}

// Run executes one conversation turn and returns the final answer text.
//
// Each turn starts with a forced call to the think tool so the model plans
// its diagnostics before acting; the recorded thoughts are threaded into
// the main generation, which has the full toolset available.
func (a *Agent) Run(ctx context.Context, query string) (string, error) {
	userMsg := ai.NewUserMessage(ai.NewTextPart(query))
	turn := append(a.memory.Messages(), userMsg)

	turn = a.thinkFirst(ctx, turn)

	resp, err := a.generate(ctx,
		ai.WithModelName(a.model),
		ai.WithSystem(a.instructions),
		ai.WithMessages(turn...),
		ai.WithTools(a.toolset.Refs()...),
		ai.WithMaxTurns(a.maxTurns),
		ai.WithConfig(a.config()),
	)
	if err != nil {
		return "", fmt.Errorf("running agent: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response with no tool requests")
		text = FallbackMessage
	}

	a.memory.Append(
		ai.NewUserMessage(ai.NewTextPart(query)),
		ai.NewModelMessage(ai.NewTextPart(text)),
	)

	return text, nil
}

// thinkFirst forces the opening think step: the model is offered only the
// think tool and must call it. The tool round (request plus response) is
// appended to the turn so the main generation sees the plan. Any failure
// here degrades to skipping the step rather than losing the turn.
func (a *Agent) thinkFirst(ctx context.Context, turn []*ai.Message) []*ai.Message {
	resp, err := a.generate(ctx,
		ai.WithModelName(a.model),
		ai.WithSystem(a.instructions),
		ai.WithMessages(turn...),
		ai.WithTools(a.toolset.Think()),
		ai.WithToolChoice(ai.ToolChoiceRequired),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(a.config()),
	)
	if err != nil {
		a.logger.Warn("think step failed, continuing without it", "error", err)
		return turn
	}

	reqs := resp.ToolRequests()
	if len(reqs) == 0 {
		a.logger.Debug("model skipped the think step despite required tool choice")
		return turn
	}

	req := reqs[0]
	out, err := a.toolset.Think().RunRaw(ctx, req.Input)
	if err != nil {
		a.logger.Warn("think tool execution failed", "error", err)
		return turn
	}

	toolMsg := &ai.Message{
		Role: ai.RoleTool,
		Content: []*ai.Part{
			ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: out,
			}),
		},
	}
	return append(turn, resp.Message, toolMsg)
}

func (a *Agent) config() *ai.GenerationCommonConfig {
	return &ai.GenerationCommonConfig{
		Temperature:     a.temperature,
		MaxOutputTokens: a.maxTokens,
	}
}
