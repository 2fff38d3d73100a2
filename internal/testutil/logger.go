package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/firebase/genkit/go/genkit"
)

// DiscardLogger returns a slog.Logger that discards all output.
// log.NewNop() returns the same; prefer this one in tests that should not
// import internal/log.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewGenkit creates a plugin-free genkit instance for registering mock
// models, embedders, and tools in tests.
func NewGenkit(t *testing.T) *genkit.Genkit {
	t.Helper()
	return genkit.Init(context.Background())
}
