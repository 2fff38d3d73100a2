// Package app wires the application: configuration, logging, tracing, the
// database pool, the genkit instance with the configured provider plugins,
// tool assembly, and the agent itself.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/sysagent/internal/agent"
	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/log"
	"github.com/koopa0/sysagent/internal/tools"
)

// App holds the assembled application.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Genkit  *genkit.Genkit
	Agent   *agent.Agent
	Toolset *tools.Toolset

	pool            *pgxpool.Pool
	tracingShutdown func(context.Context) error
	logClose        func() error
}

// Close releases the pool, flushes traces, and closes the log file.
func (a *App) Close(ctx context.Context) {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(ctx); err != nil {
			a.Logger.Warn("trace flush failed", "error", err)
		}
	}
	if a.logClose != nil {
		_ = a.logClose()
	}
}
