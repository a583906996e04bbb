// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.homewarden/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model, temperature, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: top-k, sufficiency floor, fallback threshold, re-ranking
//   - Sessions: troubleshooting session TTL
//
// Sensitive values (the PostgreSQL password) are masked in MarshalJSON.
// Validation happens at Load time with sentinel errors for errors.Is checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidRelevanceScore indicates a relevance threshold is out of [0,1].
	ErrInvalidRelevanceScore = errors.New("invalid relevance score")

	// ErrInvalidSessionTTL indicates the session TTL is not positive.
	ErrInvalidSessionTTL = errors.New("invalid session TTL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality; the chunks schema uses 768.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultTopK is the default number of passages per retrieval.
	DefaultTopK = 5

	// DefaultMinRelevanceScore is the sufficiency floor: below this top
	// score, retrieval is treated as having found nothing usable.
	DefaultMinRelevanceScore = 0.3

	// DefaultSessionTTL bounds how long an in-flight troubleshooting
	// session is kept between the intake and diagnosis invocations.
	DefaultSessionTTL = 30 * time.Minute
)

// RetrievalConfig holds the retrieval pipeline thresholds.
type RetrievalConfig struct {
	// TopK is the number of passages returned per query.
	TopK int `mapstructure:"top_k" json:"top_k"`

	// MinRelevanceScore is the sufficiency floor (0-1).
	MinRelevanceScore float64 `mapstructure:"min_relevance_score" json:"min_relevance_score"`

	// FilteredFallbackScore is the threshold below which a device-filtered
	// query is re-issued unfiltered. Zero means "use MinRelevanceScore".
	FilteredFallbackScore float64 `mapstructure:"filtered_fallback_score" json:"filtered_fallback_score"`

	// RerankEnabled turns on secondary-model re-ranking.
	RerankEnabled bool `mapstructure:"rerank_enabled" json:"rerank_enabled"`

	// RerankTopN is the result count after re-ranking.
	RerankTopN int `mapstructure:"rerank_top_n" json:"rerank_top_n"`
}

// TracingConfig configures the OTLP trace exporter. Traces are exported
// to a local agent over OTLP HTTP; the agent handles auth and forwarding.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`       // "gemini" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"`   // e.g. "gemini-2.5-flash", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"` // generation temperature
	OllamaHost  string  `mapstructure:"ollama_host" json:"ollama_host"` // only when provider is "ollama"

	// RAG configuration
	EmbedderModel string          `mapstructure:"embedder_model" json:"embedder_model"`
	Retrieval     RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Workflow configuration
	SessionTTL       time.Duration `mapstructure:"session_ttl" json:"session_ttl"`
	HouseProfilePath string        `mapstructure:"house_profile_path" json:"house_profile_path"`

	// HTTP API configuration
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Observability
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".homewarden")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	v.SetDefault("retrieval.top_k", DefaultTopK)
	v.SetDefault("retrieval.min_relevance_score", DefaultMinRelevanceScore)
	v.SetDefault("retrieval.filtered_fallback_score", 0.0)
	v.SetDefault("retrieval.rerank_enabled", false)
	v.SetDefault("retrieval.rerank_top_n", DefaultTopK)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "homewarden")
	v.SetDefault("postgres_password", "homewarden_dev_password")
	v.SetDefault("postgres_db_name", "homewarden")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("session_ttl", DefaultSessionTTL)
	v.SetDefault("house_profile_path", "data/house_profile.json")

	v.SetDefault("listen_addr", "127.0.0.1:3500")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.agent_host", "localhost:4318")
	v.SetDefault("tracing.service_name", "homewarden")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables for secrets and overrides.
func bindEnvVariables(v *viper.Viper) {
	// Secrets are env-only; they never belong in the config file.
	_ = v.BindEnv("postgres_password", "HOMEWARDEN_POSTGRES_PASSWORD")

	v.SetEnvPrefix("HOMEWARDEN")
	v.AutomaticEnv()
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3",
// "openai/gpt-4o". A ModelName already containing "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return "googleai/" + c.ModelName
	}
}

// FallbackThreshold returns the filtered-fallback threshold, defaulting
// to the sufficiency floor when unset.
func (c *Config) FallbackThreshold() float64 {
	if c.Retrieval.FilteredFallbackScore > 0 {
		return c.Retrieval.FilteredFallbackScore
	}
	return c.Retrieval.MinRelevanceScore
}

// MarshalJSON masks sensitive fields. When adding new secrets to Config,
// mask them here as well.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := *c
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal((*alias)(&masked))
}
