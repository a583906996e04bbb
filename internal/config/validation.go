package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL sslmode values accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for consistency. All failures wrap a
// sentinel error so callers can match with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be %q, %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOllama, ProviderOpenAI)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 20 {
		return fmt.Errorf("%w: %d (must be in [1, 20])", ErrInvalidTopK, c.Retrieval.TopK)
	}

	if c.Retrieval.MinRelevanceScore < 0 || c.Retrieval.MinRelevanceScore > 1 {
		return fmt.Errorf("%w: min_relevance_score %v (must be in [0, 1])",
			ErrInvalidRelevanceScore, c.Retrieval.MinRelevanceScore)
	}

	if c.Retrieval.FilteredFallbackScore < 0 || c.Retrieval.FilteredFallbackScore > 1 {
		return fmt.Errorf("%w: filtered_fallback_score %v (must be in [0, 1])",
			ErrInvalidRelevanceScore, c.Retrieval.FilteredFallbackScore)
	}

	if c.Retrieval.RerankEnabled && c.Retrieval.RerankTopN < 1 {
		return fmt.Errorf("%w: rerank_top_n %d (must be >= 1 when re-ranking is enabled)",
			ErrInvalidTopK, c.Retrieval.RerankTopN)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: %v (must be positive)", ErrInvalidSessionTTL, c.SessionTTL)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be in [1, 65535])", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}

	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}
