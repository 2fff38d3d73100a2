package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/koopa0/sysagent/internal/knowledge"
)

// SearchKnowledgeName is the genkit tool name for knowledge base retrieval.
const SearchKnowledgeName = "search_knowledge_base"

// MaxTopK caps how many passages a single search may request.
const MaxTopK = 10

// KnowledgeSearchInput defines the search tool's input schema.
type KnowledgeSearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query string"`
	TopK  int    `json:"topK,omitempty" jsonschema_description:"Maximum passages to return (1-10)"`
}

// KnowledgeSearcher is the slice of knowledge.Store the tool depends on.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// NewKnowledgeSearchTool registers the knowledge base search tool over the
// store.
func NewKnowledgeSearchTool(g *genkit.Genkit, store KnowledgeSearcher) ai.Tool {
	return genkit.DefineTool(g, SearchKnowledgeName,
		"Search the Linux troubleshooting knowledge base for relevant documentation, runbooks, and past solutions.",
		WithEvents(SearchKnowledgeName, knowledgeSearchHandler(store)))
}

func knowledgeSearchHandler(store KnowledgeSearcher) func(*ai.ToolContext, KnowledgeSearchInput) (string, error) {
	return func(ctx *ai.ToolContext, input KnowledgeSearchInput) (string, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return "", fmt.Errorf("query must not be empty")
		}

		var opts []knowledge.SearchOption
		if input.TopK > 0 {
			opts = append(opts, knowledge.WithTopK(min(input.TopK, MaxTopK)))
		}

		results, err := store.Search(ctx.Context, query, opts...)
		if err != nil {
			return "", fmt.Errorf("knowledge base search: %w", err)
		}
		if len(results) == 0 {
			return "No relevant passages found in the knowledge base.", nil
		}

		return formatResults(results), nil
	}
}

// formatResults renders search hits as a numbered plain-text list the model
// can cite from.
func formatResults(results []knowledge.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. (similarity %.2f", i+1, r.Similarity)
		if src, ok := r.Metadata["source"].(string); ok && src != "" {
			fmt.Fprintf(&b, ", source %s", src)
		}
		b.WriteString(")\n")
		b.WriteString(strings.TrimSpace(r.Content))
		if i < len(results)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
