package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/koopa0/sysagent/internal/app"
	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/knowledge"
	"github.com/koopa0/sysagent/internal/log"
)

// reembedBatchSize is the number of source rows embedded per progress step.
const reembedBatchSize = 100

// runReembed rebuilds the knowledge base: it clears the embedding
// collection and re-embeds every row of the raw corpus with the configured
// embedding model. Destructive, so it asks for confirmation first and
// takes a file lock so two runs cannot interleave.
func runReembed(ctx context.Context, cfg *config.Config, logger *log.Logger, logClose func() error) error {
	if logClose != nil {
		defer func() { _ = logClose() }()
	}

	lock := flock.New(filepath.Join(os.TempDir(), "sysagent-reembed.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring reembed lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another reembed run is already in progress")
	}
	defer func() { _ = lock.Unlock() }()

	store, pool, err := app.SetupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("reembed setup failed", "error", err)
		return err
	}
	defer pool.Close()

	return reembed(ctx, store, logger, os.Stdin, os.Stdout, cfg.EmbeddingModel)
}

// reembed is the confirmation-and-rebuild flow, separated from lock and
// pool management for testing.
func reembed(ctx context.Context, store *knowledge.Store, logger *log.Logger, in io.Reader, out io.Writer, embeddingModel string) error {
	total, err := store.SourceCount(ctx)
	if err != nil {
		return fmt.Errorf("counting source documents: %w", err)
	}
	if total == 0 {
		fmt.Fprintln(out, "No source documents found, nothing to do.")
		return nil
	}

	fmt.Fprintf(out, "This will delete all embeddings in collection %q and re-embed %d documents with %s.\n",
		knowledge.CollectionName, total, embeddingModel)
	if !confirm(in, out) {
		fmt.Fprintln(out, "Aborted.")
		logger.Info("reembed aborted by user")
		return nil
	}

	removed, err := store.DeleteCollectionEmbeddings(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d existing embeddings.\n", removed)

	sources, err := store.SourceDocuments(ctx)
	if err != nil {
		return fmt.Errorf("loading source documents: %w", err)
	}

	docs := sourceToDocuments(sources)
	for start := 0; start < len(docs); start += reembedBatchSize {
		end := min(start+reembedBatchSize, len(docs))
		if err := store.Add(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		fmt.Fprintf(out, "Embedded %d/%d documents.\n", end, len(docs))
		logger.Info("reembed progress", "done", end, "total", len(docs))
	}

	fmt.Fprintln(out, "Reembed complete.")
	logger.Info("reembed complete", "documents", len(docs))
	return nil
}

// confirm asks for an explicit "yes" and accepts nothing else.
func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Type \"yes\" to continue: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "yes"
}

// sourceToDocuments converts raw corpus rows into documents to embed. The
// original row ID and its source file carry over as retrieval metadata.
func sourceToDocuments(sources []knowledge.SourceDocument) []knowledge.Document {
	docs := make([]knowledge.Document, 0, len(sources))
	for _, src := range sources {
		meta := map[string]any{
			"original_id": strconv.FormatInt(src.ID, 10),
		}
		if name, ok := src.Metadata["file_name"].(string); ok && name != "" {
			meta["source"] = name
		}
		docs = append(docs, knowledge.Document{
			Content:  src.Text,
			Metadata: meta,
		})
	}
	return docs
}
