// Package config loads codectx settings from defaults, an optional
// .codectx/config.yml, and CODECTX_* environment variables, in rising
// precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mvp-joe/codectx/internal/embed"
	"github.com/mvp-joe/codectx/internal/indexer"
	"github.com/mvp-joe/codectx/internal/vectorstore"
)

// ConfigDir is the per-workspace settings directory.
const ConfigDir = ".codectx"

// Embedding selects and tunes the embedding provider.
type Embedding struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
	CacheSize  int    `mapstructure:"cache_size"`
}

// VectorStore configures the store client.
type VectorStore struct {
	Backend        string        `mapstructure:"backend"` // qdrant or embedded
	URL            string        `mapstructure:"url"`
	Collection     string        `mapstructure:"collection"`
	BatchSize      int           `mapstructure:"batch_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// Indexing configures discovery and the worker pool.
type Indexing struct {
	Include          []string `mapstructure:"include"`
	Ignore           []string `mapstructure:"ignore"`
	UseGitIgnore     bool     `mapstructure:"use_gitignore"`
	MaxWorkers       int      `mapstructure:"max_workers"`
	SkipSyntaxErrors bool     `mapstructure:"skip_syntax_errors"`
	MaxErrorsPerFile int      `mapstructure:"max_errors_per_file"`
	MaxTotalErrors   int      `mapstructure:"max_total_errors"`
}

// Watcher configures the file watcher.
type Watcher struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config is the full settings tree.
type Config struct {
	Embedding   Embedding   `mapstructure:"embedding"`
	VectorStore VectorStore `mapstructure:"vector_store"`
	Indexing    Indexing    `mapstructure:"indexing"`
	Watcher     Watcher     `mapstructure:"watcher"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", embed.DefaultOllamaModel)
	v.SetDefault("embedding.endpoint", embed.DefaultOllamaEndpoint)
	v.SetDefault("embedding.batch_size", embed.DefaultBatchSize)
	v.SetDefault("embedding.cache_size", embed.DefaultCacheCapacity)

	v.SetDefault("vector_store.backend", "qdrant")
	v.SetDefault("vector_store.url", "http://127.0.0.1:6333")
	v.SetDefault("vector_store.collection", "codectx")
	v.SetDefault("vector_store.batch_size", 100)
	v.SetDefault("vector_store.timeout", 30*time.Second)
	v.SetDefault("vector_store.health_interval", vectorstore.DefaultHealthInterval)
	v.SetDefault("vector_store.max_retries", 3)
	v.SetDefault("vector_store.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("vector_store.retry_max_delay", 10*time.Second)

	v.SetDefault("indexing.include", indexer.DefaultInclude)
	v.SetDefault("indexing.ignore", indexer.DefaultIgnore)
	v.SetDefault("indexing.use_gitignore", true)
	v.SetDefault("indexing.max_workers", 0)
	v.SetDefault("indexing.skip_syntax_errors", true)
	v.SetDefault("indexing.max_errors_per_file", 10)
	v.SetDefault("indexing.max_total_errors", 500)

	v.SetDefault("watcher.debounce", 500*time.Millisecond)
}

// Load reads the settings for a workspace. A missing config file is not
// an error; defaults and environment variables still apply.
func Load(rootDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(filepath.Join(rootDir, ConfigDir))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CODECTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "ollama", "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required for the openai provider")
	}

	switch c.VectorStore.Backend {
	case "qdrant", "embedded":
	default:
		return fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend)
	}
	if c.VectorStore.Backend == "qdrant" && c.VectorStore.URL == "" {
		return fmt.Errorf("vector_store.url is required for the qdrant backend")
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector_store.collection is required")
	}
	return nil
}

// EmbedConfig maps the embedding section onto the provider factory.
func (c *Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		Endpoint:   c.Embedding.Endpoint,
		APIKey:     c.Embedding.APIKey,
		Dimensions: c.Embedding.Dimensions,
	}
}

// StoreConfig maps the vector store section onto the REST client.
func (c *Config) StoreConfig() vectorstore.Config {
	return vectorstore.Config{
		URL:            c.VectorStore.URL,
		BatchSize:      c.VectorStore.BatchSize,
		Timeout:        c.VectorStore.Timeout,
		HealthCacheTTL: 5 * time.Second,
		Retry: vectorstore.RetryConfig{
			MaxRetries: c.VectorStore.MaxRetries,
			BaseDelay:  c.VectorStore.RetryBaseDelay,
			MaxDelay:   c.VectorStore.RetryMaxDelay,
			Multiplier: 2.0,
		},
	}
}

// IndexerConfig maps the indexing section onto an orchestrator config.
func (c *Config) IndexerConfig(rootDir string) indexer.Config {
	return indexer.Config{
		RootDir:          rootDir,
		Collection:       c.VectorStore.Collection,
		Include:          c.Indexing.Include,
		Ignore:           c.Indexing.Ignore,
		UseGitIgnore:     c.Indexing.UseGitIgnore,
		MaxWorkers:       c.Indexing.MaxWorkers,
		EmbedBatchSize:   c.Embedding.BatchSize,
		UpsertBatchSize:  c.VectorStore.BatchSize,
		SkipSyntaxErrors: c.Indexing.SkipSyntaxErrors,
		MaxErrorsPerFile: c.Indexing.MaxErrorsPerFile,
		MaxTotalErrors:   c.Indexing.MaxTotalErrors,
	}
}
