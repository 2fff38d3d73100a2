package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	compat "github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/firebase/genkit/go/plugins/compat_oai/anthropic"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openai/openai-go/option"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/koopa0/sysagent/internal/agent"
	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/knowledge"
	"github.com/koopa0/sysagent/internal/log"
	"github.com/koopa0/sysagent/internal/observability"
	"github.com/koopa0/sysagent/internal/tools"
)

// Setup assembles the application. Fatal failures (credentials, the
// instructions file, provider plugin setup) return an error; the knowledge
// base and the Linux MCP tools are best-effort and degrade into
// Toolset.Unavailable entries.
func Setup(ctx context.Context, cfg *config.Config, logger *log.Logger, logClose func() error) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	instructions, err := cfg.LoadInstructions()
	if err != nil {
		return nil, err
	}

	tracingShutdown := observability.Setup(ctx, logger)

	gs, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// The pool is only needed for knowledge search; a database that is
	// down must not take the whole agent with it.
	var (
		pool *pgxpool.Pool
		deps tools.Deps
	)
	switch {
	case gs.embedderErr != nil:
		deps.SearcherErr = gs.embedderErr
	default:
		pool, err = providePool(ctx, cfg)
		if err != nil {
			logger.Warn("knowledge base pool unavailable", "error", err)
			deps.SearcherErr = err
		} else {
			store := knowledge.New(knowledge.NewPgxQuerier(pool), gs.embedder, logger)
			deps.Searcher = store
		}
	}

	toolset := tools.Assemble(ctx, gs.g, cfg, deps, logger)

	ag := agent.New(gs.g, agent.Options{
		Model:           gs.modelRef,
		Instructions:    instructions,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		MemoryMaxTokens: cfg.MemoryMaxTokens,
		Toolset:         toolset,
		Logger:          logger,
	})

	logger.Info("application ready",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"temperature", cfg.Temperature,
		"tools", len(toolset.Tools),
		"unavailable", len(toolset.Unavailable),
	)

	return &App{
		Config:          cfg,
		Logger:          logger,
		Genkit:          gs.g,
		Agent:           ag,
		Toolset:         toolset,
		pool:            pool,
		tracingShutdown: tracingShutdown,
		logClose:        logClose,
	}, nil
}

// SetupStore assembles only the knowledge store, for the reembed utility.
// Unlike Setup, a database failure here is fatal.
func SetupStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*knowledge.Store, *pgxpool.Pool, error) {
	gs, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if gs.embedderErr != nil {
		return nil, nil, gs.embedderErr
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return knowledge.New(knowledge.NewPgxQuerier(pool), gs.embedder, logger), pool, nil
}

// genkitSetup is provideGenkit's result. embedderErr is carried separately
// from the fatal error: a provider without an embedding API (anthropic) is
// fatal for reembed but merely degrades chat.
type genkitSetup struct {
	g           *genkit.Genkit
	modelRef    string
	embedder    ai.Embedder
	embedderErr error
}

// watsonxModelSupports declares the request features the watsonx chat model
// accepts. ToolChoice must be on: the agent forces the think tool on the
// first step, and genkit rejects a required tool choice sent to a model
// that does not declare it.
var watsonxModelSupports = &ai.ModelSupports{
	Multiturn:  true,
	Tools:      true,
	ToolChoice: true,
	SystemRole: true,
}

// provideGenkit initializes genkit with the plugins for the chat and
// embedding providers and resolves the provider-qualified model reference
// plus the embedder.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *log.Logger) (*genkitSetup, error) {
	var (
		plugins       []api.Plugin
		ollamaPlugin  *ollama.Ollama
		watsonxPlugin *compat.OpenAICompatible
	)

	providers := []string{cfg.Provider}
	if cfg.EmbeddingProvider != cfg.Provider {
		providers = append(providers, cfg.EmbeddingProvider)
	}

	for _, p := range providers {
		switch p {
		case config.ProviderWatsonx:
			watsonxPlugin = &compat.OpenAICompatible{
				Provider: config.ProviderWatsonx,
				Opts: []option.RequestOption{
					option.WithAPIKey(os.Getenv("WATSONX_API_KEY")),
					option.WithBaseURL(cfg.WatsonxURL),
				},
			}
			plugins = append(plugins, watsonxPlugin)
		case config.ProviderOpenAI:
			plugins = append(plugins, &openai.OpenAI{})
		case config.ProviderOllama:
			ollamaPlugin = &ollama.Ollama{ServerAddress: cfg.OllamaHost}
			plugins = append(plugins, ollamaPlugin)
		case config.ProviderGemini:
			plugins = append(plugins, &googlegenai.GoogleAI{})
		case config.ProviderAnthropic:
			plugins = append(plugins, &anthropic.Anthropic{
				Opts: []option.RequestOption{
					option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
				},
			})
		}
	}

	g := genkit.Init(ctx, genkit.WithPlugins(plugins...))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}

	// Provider-specific registration beyond plugin auto-discovery.
	if ollamaPlugin != nil {
		if cfg.Provider == config.ProviderOllama {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: cfg.ModelName,
				Type: "chat",
			}, nil)
		}
		if cfg.EmbeddingProvider == config.ProviderOllama && cfg.EmbeddingModel != "" {
			ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbeddingModel, nil)
		}
	}
	if watsonxPlugin != nil && cfg.Provider == config.ProviderWatsonx {
		watsonxPlugin.DefineModel(config.ProviderWatsonx, cfg.ModelName, ai.ModelOptions{
			Supports: watsonxModelSupports,
		})
	}

	embedder, embedderErr := provideEmbedder(g, cfg, watsonxPlugin)
	if embedderErr != nil {
		logger.Warn("embedder unavailable", "provider", cfg.EmbeddingProvider, "error", embedderErr)
	}

	return &genkitSetup{
		g:           g,
		modelRef:    modelName(cfg.Provider) + "/" + cfg.ModelName,
		embedder:    embedder,
		embedderErr: embedderErr,
	}, nil
}

// modelName maps a provider identifier to its genkit action namespace.
func modelName(provider string) string {
	if provider == config.ProviderGemini {
		return "googleai"
	}
	return provider
}

// provideEmbedder resolves the embedder for the embedding provider. Each
// plugin registers embedders differently.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config, watsonxPlugin *compat.OpenAICompatible) (ai.Embedder, error) {
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("provider %q has no embedding API: set EMBEDDING_PROVIDER", cfg.EmbeddingProvider)
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderWatsonx:
		if watsonxPlugin == nil {
			return nil, fmt.Errorf("watsonx plugin not initialized")
		}
		return watsonxPlugin.DefineEmbedder(config.ProviderWatsonx, cfg.EmbeddingModel, nil), nil
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost), nil
	case config.ProviderGemini:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("provider %q has no embedding API", cfg.EmbeddingProvider)
	}
}

// providePool creates the knowledge base connection pool and verifies
// connectivity with a bounded ping.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return pool, nil
}
