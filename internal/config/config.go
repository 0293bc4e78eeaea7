// Package config provides unified configuration loading for the insight engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the insight engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Completion    CompletionConfig    `yaml:"completion"`
	VectorIndex   VectorIndexConfig   `yaml:"vector_index"`
	Selector      SelectorConfig      `yaml:"selector"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator"`
	ImageGen      ImageGenConfig      `yaml:"image_gen"`
	Observability ObservabilityConfig `yaml:"observability"`
	Tenancy       TenancyConfig       `yaml:"tenancy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// EmbeddingConfig holds embedding gateway settings.
type EmbeddingConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	BatchRest time.Duration `yaml:"batch_rest"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CompletionConfig holds analysis executor (LLM) settings.
type CompletionConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// VectorIndexConfig holds vector index gateway settings.
type VectorIndexConfig struct {
	Adapter string `yaml:"adapter"` // http or memory
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// SelectorConfig holds review selector settings. Embedding batch sizing and
// pacing live on EmbeddingConfig; the selector delegates batching to the
// embedder.
type SelectorConfig struct {
	MaxPoolSize       int  `yaml:"max_pool_size"`
	CacheTopicQueries bool `yaml:"cache_topic_queries"`
}

// OrchestratorConfig holds analysis pipeline settings.
type OrchestratorConfig struct {
	PacingInterval time.Duration `yaml:"pacing_interval"`
}

// ImageGenConfig holds persona image enrichment settings.
type ImageGenConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// TenancyConfig holds multi-tenancy settings.
type TenancyConfig struct {
	DefaultTenant string `yaml:"default_tenant"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A missing path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	// Pick up a local .env if present; ignore absence.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     5 * time.Minute, // analysis runs are slow
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/insight-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        12 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "google/gemini-embedding-001",
			Dimension: 768,
			BatchSize: 10,
			BatchRest: 200 * time.Millisecond,
			Timeout:   30 * time.Second,
		},
		Completion: CompletionConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "anthropic/claude-sonnet-4",
			MaxTokens:   8192,
			Temperature: 0.3,
			Timeout:     3 * time.Minute,
		},
		VectorIndex: VectorIndexConfig{
			Adapter: "memory",
		},
		Selector: SelectorConfig{
			MaxPoolSize:       500,
			CacheTopicQueries: true,
		},
		Orchestrator: OrchestratorConfig{
			PacingInterval: 15 * time.Second,
		},
		ImageGen: ImageGenConfig{
			Enabled: false,
			Model:   "black-forest-labs/flux-schnell",
			Timeout: 60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "debug",
			LogFormat:   "json",
			ServiceName: "insight-engine",
		},
		Tenancy: TenancyConfig{
			// Stable dev-only tenant so local requests work without a header.
			DefaultTenant: "00000000-0000-0000-0000-000000000001",
		},
	}
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires a DSN")
	}

	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache driver: %q", c.Cache.Driver)
	}

	switch c.VectorIndex.Adapter {
	case "memory":
	case "http":
		if c.VectorIndex.BaseURL == "" {
			return fmt.Errorf("http vector index requires a base URL")
		}
	default:
		return fmt.Errorf("unknown vector index adapter: %q", c.VectorIndex.Adapter)
	}

	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive")
	}
	if c.Orchestrator.PacingInterval < 0 {
		return fmt.Errorf("pacing interval must not be negative")
	}

	return nil
}

// applyEnvOverrides applies environment variables on top of file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INSIGHT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("INSIGHT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("INSIGHT_POSTGRES_DSN"); v != "" {
		cfg.Database.Postgres.DSN = v
	}
	if v := os.Getenv("INSIGHT_SQLITE_PATH"); v != "" {
		cfg.Database.SQLite.Path = v
	}
	if v := os.Getenv("INSIGHT_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("INSIGHT_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
		if cfg.Completion.APIKey == "" {
			cfg.Completion.APIKey = v
		}
		if cfg.ImageGen.APIKey == "" {
			cfg.ImageGen.APIKey = v
		}
	}
	if v := os.Getenv("INSIGHT_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("INSIGHT_COMPLETION_MODEL"); v != "" {
		cfg.Completion.Model = v
	}
	if v := os.Getenv("INSIGHT_VECTOR_INDEX_URL"); v != "" {
		cfg.VectorIndex.Adapter = "http"
		cfg.VectorIndex.BaseURL = v
	}
	if v := os.Getenv("INSIGHT_VECTOR_INDEX_API_KEY"); v != "" {
		cfg.VectorIndex.APIKey = v
	}
	if v := os.Getenv("INSIGHT_PACING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Orchestrator.PacingInterval = d
		}
	}
	if v := os.Getenv("INSIGHT_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("INSIGHT_LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
