package tools

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/log"
)

// Capability names reported in Toolset.Unavailable.
const (
	CapabilityKnowledgeBase = "knowledge_base"
	CapabilityLinuxTools    = "linux_diagnostics"
)

// Capability records one best-effort capability that could not be built and
// the reason why.
type Capability struct {
	Name   string
	Reason string
}

// Toolset is the agent's negotiated tool list. Tools keeps a fixed order:
// think first, then knowledge search, then the Linux diagnostic tools.
// Unavailable lists every capability that failed to come up so callers can
// report degraded operation instead of silently shrinking the toolset.
type Toolset struct {
	Tools       []ai.Tool
	Unavailable []Capability
}

// Think returns the think tool, which is always present.
func (t *Toolset) Think() ai.Tool {
	return t.Tools[0]
}

// Refs converts the toolset for genkit generate options.
func (t *Toolset) Refs() []ai.ToolRef {
	refs := make([]ai.ToolRef, len(t.Tools))
	for i, tool := range t.Tools {
		refs[i] = tool
	}
	return refs
}

// Deps carries the optional dependencies tool assembly can use. A nil
// Searcher means the knowledge store did not come up.
type Deps struct {
	Searcher KnowledgeSearcher
	// SearcherErr explains a nil Searcher.
	SearcherErr error
}

// Assemble builds the agent's toolset. The think tool always succeeds; the
// knowledge search and Linux diagnostic tools are best-effort, and every
// failure is recorded in Unavailable with its reason rather than aborting
// startup.
func Assemble(ctx context.Context, g *genkit.Genkit, cfg *config.Config, deps Deps, logger *log.Logger) *Toolset {
	if logger == nil {
		logger = log.NewNop()
	}

	ts := &Toolset{
		Tools: []ai.Tool{NewThinkTool(g)},
	}

	if deps.Searcher != nil {
		ts.Tools = append(ts.Tools, NewKnowledgeSearchTool(g, deps.Searcher))
	} else {
		reason := "knowledge store not configured"
		if deps.SearcherErr != nil {
			reason = deps.SearcherErr.Error()
		}
		logger.Warn("knowledge base search unavailable", "reason", reason)
		ts.Unavailable = append(ts.Unavailable, Capability{
			Name:   CapabilityKnowledgeBase,
			Reason: reason,
		})
	}

	linuxTools, err := LoadLinuxTools(ctx, g, cfg, logger)
	switch {
	case err == nil:
		ts.Tools = append(ts.Tools, linuxTools...)
	case errors.Is(err, config.ErrServerPathNotFound):
		logger.Warn("linux diagnostic tools unavailable: server not installed", "error", err)
		ts.Unavailable = append(ts.Unavailable, Capability{
			Name:   CapabilityLinuxTools,
			Reason: err.Error(),
		})
	case errors.Is(err, config.ErrServerRuntimeNotFound):
		logger.Warn("linux diagnostic tools unavailable: server runtime missing", "error", err)
		ts.Unavailable = append(ts.Unavailable, Capability{
			Name:   CapabilityLinuxTools,
			Reason: err.Error(),
		})
	default:
		logger.Warn("linux diagnostic tools unavailable: connection failed", "error", err)
		ts.Unavailable = append(ts.Unavailable, Capability{
			Name:   CapabilityLinuxTools,
			Reason: err.Error(),
		})
	}

	logger.Info("toolset assembled",
		"tools", len(ts.Tools), "unavailable", len(ts.Unavailable))
	return ts
}
