// Package config provides environment-driven application configuration.
//
// Configuration follows the 12-factor methodology: every knob is an
// environment variable with a documented default, resolved exactly once at
// startup and immutable afterwards.
//
// Main configuration categories:
//   - LLM: chat provider, model, temperature, token budgets
//   - Embedding: embedding provider and model (falls back to the chat provider)
//   - Storage: PostgreSQL connection for the pgvector knowledge base (storage.go)
//   - MCP: Linux diagnostic tool server location and log allow-list (mcp.go)
//
// Error handling:
//   - Sentinel errors enable errors.Is() checks at call sites
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingCredentials indicates the selected provider's required
	// credential variables are not set.
	ErrMissingCredentials = errors.New("missing provider credentials")

	// ErrUnknownProvider indicates LLM_PROVIDER names a provider this
	// build does not support.
	ErrUnknownProvider = errors.New("unknown LLM provider")

	// ErrInstructionsNotFound indicates the agent instructions file is
	// missing or unreadable.
	ErrInstructionsNotFound = errors.New("agent instructions file not found")

	// ErrServerPathNotFound indicates the Linux MCP server directory does not exist.
	ErrServerPathNotFound = errors.New("linux MCP server path does not exist")

	// ErrServerRuntimeNotFound indicates the Linux MCP server's isolated
	// Python runtime (.venv) is missing.
	ErrServerRuntimeNotFound = errors.New("linux MCP server runtime not found")
)

// Defaults applied when the corresponding environment variable is unset or invalid.
const (
	DefaultTemperature     = 0.2
	DefaultMaxTokens       = 16000
	DefaultMemoryMaxTokens = 12000

	// DefaultInstructionsFile is the path of the agent instructions
	// document when AGENT_INSTRUCTIONS_FILE is unset.
	DefaultInstructionsFile = "prompts/linux_diagnostics_agent.md"
)

// Config stores the resolved application configuration.
// Built once per process by Load; treat as immutable afterwards.
type Config struct {
	// LLM configuration
	Provider    string  `mapstructure:"llm_provider"`
	ModelName   string  `mapstructure:"llm_model"`
	Temperature float64 `mapstructure:"-"`
	MaxTokens   int     `mapstructure:"-"`

	// Embedding configuration
	EmbeddingProvider string `mapstructure:"embedding_provider"`
	EmbeddingModel    string `mapstructure:"embedding_model"`

	// Conversation memory budget in estimated tokens
	MemoryMaxTokens int `mapstructure:"-"`

	// Agent instructions document
	InstructionsFile string `mapstructure:"agent_instructions_file"`

	// Debug widens console output; the log file always gets everything.
	Debug bool `mapstructure:"debug"`

	// Ollama server address, used only when the provider is "ollama".
	OllamaHost string `mapstructure:"ollama_base_url"`

	// WatsonX endpoint, used only when the provider is "watsonx".
	WatsonxURL string `mapstructure:"watsonx_url"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`

	// Linux MCP diagnostic tool server (see mcp.go)
	MCPServerPath      string `mapstructure:"linux_mcp_server_path"`
	MCPAllowedLogPaths string `mapstructure:"linux_mcp_allowed_log_paths"`
}

// Load resolves configuration from the process environment.
// Unset variables take documented defaults; invalid numeric values fall
// back to their defaults rather than failing.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel(cfg.Provider)
	}

	// The embedding provider falls back to the chat provider.
	cfg.EmbeddingProvider = strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider))
	if cfg.EmbeddingProvider == "" {
		cfg.EmbeddingProvider = cfg.Provider
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel(cfg.EmbeddingProvider)
	}

	// Numeric values are parsed from the raw strings so that garbage input
	// degrades to the documented default instead of to zero.
	cfg.Temperature = resolveTemperature(v.GetString("llm_temperature"))
	cfg.MaxTokens = resolvePositiveInt(v.GetString("llm_max_tokens"), DefaultMaxTokens)
	cfg.MemoryMaxTokens = resolvePositiveInt(v.GetString("memory_max_tokens"), DefaultMemoryMaxTokens)

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm_provider", DefaultProvider)

	// Instructions document
	v.SetDefault("agent_instructions_file", DefaultInstructionsFile)

	// Ollama defaults
	v.SetDefault("ollama_base_url", "http://localhost:11434")

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_db", "rag_db")

	// Linux MCP server defaults
	v.SetDefault("linux_mcp_server_path", defaultMCPServerPath())
}

// bindEnvVariables binds configuration keys to their environment variables.
// Credentials (API keys) are read by the provider plugins directly and are
// only checked for presence in ValidateCredentials.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded key pairs cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("llm_provider", "LLM_PROVIDER")
	mustBind("llm_model", "LLM_MODEL")
	mustBind("llm_temperature", "LLM_TEMPERATURE")
	mustBind("llm_max_tokens", "LLM_MAX_TOKENS")
	mustBind("memory_max_tokens", "MEMORY_MAX_TOKENS")

	mustBind("embedding_provider", "EMBEDDING_PROVIDER")
	mustBind("embedding_model", "EMBEDDING_MODEL")

	mustBind("agent_instructions_file", "AGENT_INSTRUCTIONS_FILE")
	mustBind("debug", "DEBUG")

	mustBind("ollama_base_url", "OLLAMA_BASE_URL")
	mustBind("watsonx_url", "WATSONX_URL")

	mustBind("postgres_host", "POSTGRES_HOST")
	mustBind("postgres_port", "POSTGRES_PORT")
	mustBind("postgres_db", "POSTGRES_DB")
	mustBind("postgres_user", "POSTGRES_USER")
	mustBind("postgres_password", "POSTGRES_PASSWORD")

	mustBind("linux_mcp_server_path", "LINUX_MCP_SERVER_PATH")
	mustBind("linux_mcp_allowed_log_paths", "LINUX_MCP_ALLOWED_LOG_PATHS")
}

// resolveTemperature parses a temperature string and clamps it to [0.0, 1.0].
// Non-numeric input, including empty, falls back to DefaultTemperature.
// NaN and infinities count as non-numeric: min/max would pass NaN through.
func resolveTemperature(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTemperature
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return DefaultTemperature
	}
	return max(0.0, min(1.0, t))
}

// resolvePositiveInt parses a positive integer with fallback on invalid input.
func resolvePositiveInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// LoadInstructions reads the agent instructions document. A missing or
// unreadable file is a fatal configuration error: the agent must not start
// without its instructions.
func (c *Config) LoadInstructions() (string, error) {
	data, err := os.ReadFile(c.InstructionsFile)
	if err != nil {
		return "", fmt.Errorf("%w: %s (set AGENT_INSTRUCTIONS_FILE to override): %v",
			ErrInstructionsNotFound, c.InstructionsFile, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInstructionsNotFound, c.InstructionsFile)
	}
	return text, nil
}
