// Package config provides configuration management for the petition document service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Postgres sslmode values accepted by DatabaseConfig.SSLMode.
const (
	SSLModeDisable    = "disable" // local development only
	SSLModeRequire    = "require"
	SSLModeVerifyCA   = "verify-ca"
	SSLModeVerifyFull = "verify-full"
)

// Config is the full service configuration, loaded by Load.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Research  ResearchConfig  `mapstructure:"research"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

// ServerConfig configures the HTTP and metrics listeners.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AuthToken is the bearer token required on API requests, loaded from
	// PETITION_SERVER_AUTH_TOKEN. Empty disables authentication.
	AuthToken string `mapstructure:"-"`
}

// DatabaseConfig configures the Postgres pool and migrations.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`

	// SSLMode defaults to "require"; set to "disable" only for local runs.
	SSLMode string `mapstructure:"ssl_mode"`

	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`

	// MigrationPath points at the migration files; MigrationAutoRun applies
	// them on server startup.
	MigrationPath    string `mapstructure:"migration_path"`
	MigrationAutoRun bool   `mapstructure:"migration_auto_run"`
}

// TemporalConfig locates the Temporal server and the petition task queue.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig mirrors observability.LoggingConfig for file/env loading.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LLMConfig holds text generation provider configuration.
type LLMConfig struct {
	// PrimaryProvider is the primary text generation provider (anthropic, openai).
	PrimaryProvider string `mapstructure:"primary_provider"`
	// SecondaryProvider is the failover provider. Empty disables failover.
	SecondaryProvider string `mapstructure:"secondary_provider"`
	// Timeout is the timeout for a single provider call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of attempts against the primary provider.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (loaded from PETITION_LLM_OPENAI_API_KEY).
	APIKey string `mapstructure:"-"`
	// Model is the OpenAI model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the OpenAI API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (loaded from PETITION_LLM_ANTHROPIC_API_KEY).
	APIKey string `mapstructure:"-"`
	// Model is the Anthropic model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the Anthropic API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// FetcherConfig holds URL fetcher settings.
type FetcherConfig struct {
	// Timeout is the timeout for a single fetch.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxBodyBytes caps the response body size read per URL.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
	// MaxChars caps the extracted text length per URL.
	MaxChars int `mapstructure:"max_chars"`
	// RatePerSecond is the maximum fetches per second.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	// Burst is the burst size for the fetch rate limiter.
	Burst int `mapstructure:"burst"`
	// UserAgent is the User-Agent header sent with fetches.
	UserAgent string `mapstructure:"user_agent"`
	// AllowPrivateNetworks permits fetching private and loopback addresses.
	// Only enable in local development.
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"`
}

// KnowledgeConfig holds legal knowledge corpus settings.
type KnowledgeConfig struct {
	// Dir is the directory containing the corpus markdown files.
	Dir string `mapstructure:"dir"`
	// MaxChars caps the total corpus characters included per case.
	MaxChars int `mapstructure:"max_chars"`
}

// ResearchConfig holds AI URL discovery settings. When enabled, the context
// preparation step asks the text generation provider for supplementary
// evidence URLs about the beneficiary, merged with the caller-supplied set.
type ResearchConfig struct {
	// Enabled controls whether URL discovery runs during context preparation.
	Enabled bool `mapstructure:"enabled"`
	// MaxURLs caps the number of discovered URLs merged per case.
	MaxURLs int `mapstructure:"max_urls"`
}

// ProgressConfig holds in-memory progress store settings.
type ProgressConfig struct {
	// SweepInterval is how often expired progress entries are removed.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// MaxEntryAge is the maximum age of an in-memory progress entry.
	MaxEntryAge time.Duration `mapstructure:"max_entry_age"`
}

// KafkaConfig holds Kafka publisher settings for completion events.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic for case lifecycle events.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load reads configuration from defaults, an optional YAML file, and
// PETITION_-prefixed environment variables, then validates the result.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PETITION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/petition-service")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults carry it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets fills the mapstructure:"-" fields from the environment only,
// so secrets never come from config files.
func loadSecrets(cfg *Config) {
	cfg.LLM.OpenAI.APIKey = os.Getenv("PETITION_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("PETITION_LLM_ANTHROPIC_API_KEY")
	cfg.Server.AuthToken = os.Getenv("PETITION_SERVER_AUTH_TOKEN")
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "petition")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "petition_service")
	// "require" by default; override with PETITION_DATABASE_SSL_MODE=disable locally.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Temporal
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "petition")
	v.SetDefault("temporal.task_queue", "petition-tasks")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Text generation providers
	v.SetDefault("llm.primary_provider", "anthropic")
	v.SetDefault("llm.secondary_provider", "openai")
	v.SetDefault("llm.timeout", "300s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", "1s")
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Evidence URL fetcher
	v.SetDefault("fetcher.timeout", "30s")
	v.SetDefault("fetcher.max_body_bytes", 1048576)
	v.SetDefault("fetcher.max_chars", 10000)
	v.SetDefault("fetcher.rate_per_second", 2.0)
	v.SetDefault("fetcher.burst", 4)
	v.SetDefault("fetcher.user_agent", "petition-service/1.0")
	v.SetDefault("fetcher.allow_private_networks", false)

	// Knowledge corpus
	v.SetDefault("knowledge.dir", "knowledge")
	v.SetDefault("knowledge.max_chars", 50000)

	// URL discovery
	v.SetDefault("research.enabled", false)
	v.SetDefault("research.max_urls", 15)

	// In-memory progress store
	v.SetDefault("progress.sweep_interval", "2h")
	v.SetDefault("progress.max_entry_age", "4h")

	// Kafka events
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.petition_service.cases")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.LLM.PrimaryProvider == "" {
		return fmt.Errorf("llm primary provider is required")
	}
	if c.LLM.MaxRetries <= 0 {
		return fmt.Errorf("llm max_retries must be positive")
	}

	// Validate that configured providers have their required API keys set.
	for _, provider := range []string{c.LLM.PrimaryProvider, c.LLM.SecondaryProvider} {
		switch strings.ToLower(provider) {
		case "anthropic":
			if c.LLM.Anthropic.APIKey == "" {
				return fmt.Errorf("provider %q requires PETITION_LLM_ANTHROPIC_API_KEY to be set", provider)
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return fmt.Errorf("provider %q requires PETITION_LLM_OPENAI_API_KEY to be set", provider)
			}
		case "":
			// Secondary provider is optional.
		default:
			return fmt.Errorf("unsupported text generation provider: %q", provider)
		}
	}

	if c.Fetcher.RatePerSecond <= 0 {
		return fmt.Errorf("fetcher rate_per_second must be positive")
	}
	if c.Progress.SweepInterval <= 0 {
		return fmt.Errorf("progress sweep_interval must be positive")
	}
	if c.Progress.MaxEntryAge <= 0 {
		return fmt.Errorf("progress max_entry_age must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	return nil
}
