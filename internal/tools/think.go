package tools

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ThinkName is the genkit tool name of the reasoning scratchpad.
const ThinkName = "think"

// ThinkInput captures the model's working notes. The tool performs no
// action; forcing it at the start of every turn makes the model lay out a
// diagnostic plan before touching the system.
type ThinkInput struct {
	Thoughts  string   `json:"thoughts" jsonschema_description:"Current reasoning about the problem"`
	NextSteps []string `json:"next_steps,omitempty" jsonschema_description:"Planned next actions, in order"`
}

// NewThinkTool registers the think tool.
func NewThinkTool(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, ThinkName,
		"Record your reasoning and plan before acting. Use this to break the problem down and decide which diagnostics to run.",
		WithEvents(ThinkName, thinkHandler))
}

func thinkHandler(ctx *ai.ToolContext, input ThinkInput) (string, error) {
	Emit(ctx.Context, Event{Kind: EventNote, Tool: ThinkName, Detail: input.Thoughts})
	return "Thoughts recorded. Proceed with the plan.", nil
}
