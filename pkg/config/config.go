// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Engine, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/ranker"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Search    SearchConfig    `yaml:"search"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// EngineConfig controls tokenisation and ranking. Stop words and weights are
// handed to the tokenizer and ranker at construction.
type EngineConfig struct {
	StopWords      []string       `yaml:"stopWords"`
	Weights        ranker.Weights `yaml:"weights"`
	SuggestLimit   int            `yaml:"suggestLimit"`
	WordBreakLimit int            `yaml:"wordBreakLimit"`
	MaxPageBytes   int            `yaml:"maxPageBytes"`
}

// SearchConfig controls query result limits.
type SearchConfig struct {
	MaxResults   int `yaml:"maxResults"`
	DefaultLimit int `yaml:"defaultLimit"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the query cache.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	OpTimeout time.Duration `yaml:"opTimeout"`
}

// KafkaConfig holds Kafka broker and topic settings. No brokers disables
// streaming ingestion and analytics publishing.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PageIngest      string `yaml:"pageIngest"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables analytics snapshots.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalyticsConfig controls search-event collection.
type AnalyticsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotTimeout   time.Duration `yaml:"snapshotTimeout"`
	SnapshotRetention int           `yaml:"snapshotRetention"`
}

// RateLimitConfig controls the per-client token bucket. A zero
// RequestsPerWindow disables limiting.
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles request span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values, validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults for local development. Optional
// backends (Redis, Kafka, Postgres) are disabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Engine: EngineConfig{
			Weights:        ranker.DefaultWeights(),
			SuggestLimit:   10,
			WordBreakLimit: 10,
			MaxPageBytes:   1 << 20,
		},
		Search: SearchConfig{
			MaxResults:   100,
			DefaultLimit: 10,
		},
		Redis: RedisConfig{
			PoolSize:  10,
			CacheTTL:  60 * time.Second,
			OpTimeout: 250 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "pagesearch-group",
			Topics: KafkaTopics{
				PageIngest:      "page-ingest",
				AnalyticsEvents: "search-analytics",
			},
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "pagesearch",
			User:            "pagesearch",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			SnapshotInterval:  time.Minute,
			SnapshotTimeout:   5 * time.Second,
			SnapshotRetention: 1440,
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	// A page of n bytes holds at most n/2 tokens: one character plus a separator.
	if err := c.Engine.Weights.ValidateFor(int64(c.Engine.MaxPageBytes / 2)); err != nil {
		errs = append(errs, err)
	}
	if c.Engine.SuggestLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.suggestLimit must not be negative, got %d", c.Engine.SuggestLimit))
	}
	if c.Engine.WordBreakLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.wordBreakLimit must not be negative, got %d", c.Engine.WordBreakLimit))
	}
	if c.Search.DefaultLimit < 1 {
		errs = append(errs, fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit))
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		errs = append(errs, fmt.Errorf("search.maxResults %d is below defaultLimit %d", c.Search.MaxResults, c.Search.DefaultLimit))
	}
	if c.RateLimit.RequestsPerWindow > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rateLimit.window must be positive when limiting is enabled"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads PS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_ENGINE_STOP_WORDS"); v != "" {
		cfg.Engine.StopWords = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("PS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.RequestsPerWindow = n
		}
	}
}
