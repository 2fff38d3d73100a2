package config

import (
	"fmt"
	"os"
)

// DefaultProvider is used when LLM_PROVIDER is unset.
const DefaultProvider = "watsonx"

// Supported provider identifiers, matched case-insensitively.
const (
	ProviderWatsonx   = "watsonx"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// defaultModels maps each provider to its default chat model.
var defaultModels = map[string]string{
	ProviderWatsonx:   "ibm/granite-3-8b-instruct",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3.2",
	ProviderGemini:    "gemini-pro",
	ProviderAnthropic: "claude-3-5-sonnet-20241022",
}

// defaultEmbeddingModels maps each provider to its default embedding model.
// Anthropic offers no embedding API and is intentionally absent.
var defaultEmbeddingModels = map[string]string{
	ProviderWatsonx: "ibm/slate-125m-english-rtrvr-v2",
	ProviderOpenAI:  "text-embedding-3-small",
	ProviderOllama:  "nomic-embed-text",
	ProviderGemini:  "text-embedding-004",
}

// DefaultModel returns the default chat model for a provider, or the
// watsonx default for an unrecognized provider (Validate rejects those
// before the value is ever used).
func DefaultModel(provider string) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[DefaultProvider]
}

// DefaultEmbeddingModel returns the default embedding model for a provider.
// Providers without an embedding API return the empty string; callers treat
// that as "knowledge base unavailable".
func DefaultEmbeddingModel(provider string) string {
	return defaultEmbeddingModels[provider]
}

// KnownProvider reports whether the provider identifier is supported.
func KnownProvider(provider string) bool {
	switch provider {
	case ProviderWatsonx, ProviderOpenAI, ProviderOllama, ProviderGemini, ProviderAnthropic:
		return true
	}
	return false
}

// Validate checks the resolved configuration for fatal problems: an
// unsupported provider or missing credentials. It does not touch the
// network.
func (c *Config) Validate() error {
	if !KnownProvider(c.Provider) {
		return fmt.Errorf("%w: %q (supported: watsonx, openai, ollama, gemini, anthropic)",
			ErrUnknownProvider, c.Provider)
	}
	if err := validateCredentials(c.Provider, c.WatsonxURL); err != nil {
		return err
	}
	if c.EmbeddingProvider != c.Provider && KnownProvider(c.EmbeddingProvider) {
		if err := validateCredentials(c.EmbeddingProvider, c.WatsonxURL); err != nil {
			return fmt.Errorf("embedding provider: %w", err)
		}
	}
	return nil
}

// validateCredentials checks that the credential variables a provider needs
// are present in the environment. The provider plugins read the values
// themselves; this only produces an actionable startup error instead of a
// mid-conversation API failure.
func validateCredentials(provider, watsonxURL string) error {
	missing := func(vars ...string) []string {
		var out []string
		for _, name := range vars {
			if os.Getenv(name) == "" {
				out = append(out, name)
			}
		}
		return out
	}

	var absent []string
	switch provider {
	case ProviderWatsonx:
		absent = missing("WATSONX_API_KEY", "WATSONX_PROJECT_ID")
		if watsonxURL == "" {
			absent = append(absent, "WATSONX_URL")
		}
	case ProviderOpenAI:
		absent = missing("OPENAI_API_KEY")
	case ProviderGemini:
		absent = missing("GOOGLE_API_KEY")
	case ProviderAnthropic:
		absent = missing("ANTHROPIC_API_KEY")
	case ProviderOllama:
		// Local server, no credentials.
	}

	if len(absent) > 0 {
		return fmt.Errorf("%w: provider %q requires %v", ErrMissingCredentials, provider, absent)
	}
	return nil
}
