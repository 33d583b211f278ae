// Package config loads application configuration with multi-source
// priority: environment variables over ~/.guezi/config.yaml over defaults.
//
// Sensitive values (the Gemini API key, the database URL) are masked in
// MarshalJSON and String, so a Config can be logged safely. Validation is
// fail-fast: Load returns an error instead of handing out a half-usable
// configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidBackend indicates an unknown storage backend.
	ErrInvalidBackend = errors.New("invalid storage backend")

	// ErrMissingDatabaseURL indicates the postgres backend has no URL.
	ErrMissingDatabaseURL = errors.New("missing database URL")

	// ErrInvalidChunking indicates inconsistent chunk size settings.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidDimensions indicates a non-positive embedding dimension.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidRetrieval indicates out-of-range retrieval settings.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")
)

// Storage backend identifiers used in StorageConfig.Backend.
const (
	BackendLocal    = "local"
	BackendPostgres = "postgres"
)

// StorageConfig selects and configures the vector storage backend.
type StorageConfig struct {
	Backend     string `mapstructure:"backend" json:"backend"`
	DataDir     string `mapstructure:"data_dir" json:"data_dir"`
	Collection  string `mapstructure:"collection" json:"collection"`
	DatabaseURL string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON
}

// ChunkingConfig controls the semantic chunker.
type ChunkingConfig struct {
	MaxChunkSize int `mapstructure:"max_chunk_size" json:"max_chunk_size"`
	MinChunkSize int `mapstructure:"min_chunk_size" json:"min_chunk_size"`
	OverlapSize  int `mapstructure:"overlap_size" json:"overlap_size"`
}

// EmbeddingConfig controls the embedder and its batching policy.
type EmbeddingConfig struct {
	Model             string `mapstructure:"model" json:"model"`
	Dimensions        int    `mapstructure:"dimensions" json:"dimensions"`
	BatchSize         int    `mapstructure:"batch_size" json:"batch_size"`
	InterBatchDelayMS int    `mapstructure:"inter_batch_delay_ms" json:"inter_batch_delay_ms"`
	MaxAttempts       int    `mapstructure:"max_attempts" json:"max_attempts"`
	RetryBackoffMS    int    `mapstructure:"retry_backoff_ms" json:"retry_backoff_ms"`
}

// RetrievalConfig controls hybrid search.
type RetrievalConfig struct {
	TopK           int     `mapstructure:"top_k" json:"top_k"`
	MatchThreshold float64 `mapstructure:"match_threshold" json:"match_threshold"`
	KeywordBoost   bool    `mapstructure:"keyword_boost" json:"keyword_boost"`
}

// SefariaConfig configures the corpus fetcher.
type SefariaConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// OtelConfig configures trace export.
type OtelConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores the application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON; update
// it when adding new secrets.
type Config struct {
	GeminiAPIKey string  `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName    string  `mapstructure:"model_name" json:"model_name"`
	Temperature  float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" json:"max_tokens"`
	Language     string  `mapstructure:"language" json:"language"`

	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Chunking  ChunkingConfig  `mapstructure:"chunking" json:"chunking"`
	Embedding EmbeddingConfig `mapstructure:"embedding" json:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	Sefaria   SefariaConfig   `mapstructure:"sefaria" json:"sefaria"`
	Otel      OtelConfig      `mapstructure:"otel" json:"otel"`
}

// Load reads the configuration.
// Priority: environment variables > ~/.guezi/config.yaml > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".guezi")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(configDir string) {
	viper.SetDefault("model_name", "gemini-2.0-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("language", "en")

	viper.SetDefault("storage.backend", BackendLocal)
	viper.SetDefault("storage.data_dir", filepath.Join(configDir, "data"))
	viper.SetDefault("storage.collection", "breslov_chunked")

	viper.SetDefault("chunking.max_chunk_size", 1500)
	viper.SetDefault("chunking.min_chunk_size", 200)
	viper.SetDefault("chunking.overlap_size", 150)

	viper.SetDefault("embedding.model", "gemini-embedding-001")
	viper.SetDefault("embedding.dimensions", 3072)
	viper.SetDefault("embedding.batch_size", 20)
	viper.SetDefault("embedding.inter_batch_delay_ms", 1000)
	viper.SetDefault("embedding.max_attempts", 2)
	viper.SetDefault("embedding.retry_backoff_ms", 5000)

	viper.SetDefault("retrieval.top_k", 7)
	viper.SetDefault("retrieval.match_threshold", 0.1)
	viper.SetDefault("retrieval.keyword_boost", false)

	viper.SetDefault("sefaria.base_url", "https://www.sefaria.org")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "localhost:4318")
	viper.SetDefault("otel.service_name", "guezi")
	viper.SetDefault("otel.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly. Hardcoded keys
// cannot fail to bind; a panic here is a bug, not a runtime error.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("storage.database_url", "DATABASE_URL")
	mustBind("storage.backend", "GUEZI_STORAGE_BACKEND")
	mustBind("storage.data_dir", "GUEZI_DATA_DIR")
	mustBind("model_name", "GUEZI_MODEL_NAME")
	mustBind("language", "GUEZI_LANGUAGE")
	mustBind("otel.enabled", "GUEZI_OTEL_ENABLED")
	mustBind("otel.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// maskedValue uses full-width blocks so a masked secret can never be a
// substring of the real one.
const maskedValue = "████████"

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.Storage.DatabaseURL = maskSecret(a.Storage.DatabaseURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String prevents accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
