// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// PollInterval is how often the SSE stream checks for new events.
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlConfig governs the browser engine and per-company traversal.
type CrawlConfig struct {
	// Engine is "chromedp" (headless browser) or "colly" (static HTML).
	Engine       string        `mapstructure:"engine"`
	NavTimeout   time.Duration `mapstructure:"nav_timeout"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	ConsentDelay time.Duration `mapstructure:"consent_delay"`
	MaxSubpages  int           `mapstructure:"max_subpages"`
	UserAgent    string        `mapstructure:"user_agent"`
	Headless     bool          `mapstructure:"headless"`
	NoSandbox    bool          `mapstructure:"no_sandbox"`
	ExecPath     string        `mapstructure:"exec_path"`
}

// EnrichConfig selects the language-model provider.
type EnrichConfig struct {
	// Provider is "groq" or "gemini".
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
}

// StorageConfig selects the blob backend for uploads and output workbooks.
type StorageConfig struct {
	// Backend is "local", "gcs" or "memory".
	Backend      string `mapstructure:"backend"`
	BaseDir      string `mapstructure:"base_dir"`
	GCSBucket    string `mapstructure:"gcs_bucket"`
	Prefix       string `mapstructure:"prefix"`
	OutputKey    string `mapstructure:"output_key"`
	UploadPrefix string `mapstructure:"upload_prefix"`
}

// DatabaseConfig enables the Postgres result store when DSN is set.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxConns     int32  `mapstructure:"max_conns"`
	RunsTable    string `mapstructure:"runs_table"`
	ResultsTable string `mapstructure:"results_table"`
}

// PubSubConfig enables company_done notifications when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ProgressConfig tunes the progress hub and its sinks.
type ProgressConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	SinkTimeout    time.Duration `mapstructure:"sink_timeout"`
	LogEvents      bool          `mapstructure:"log_events"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig controls tracing. Spans are exported to Cloud Trace only
// when ProjectID is set.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	ProjectID   string `mapstructure:"project_id"`
}

// Engine names.
const (
	EngineChromedp = "chromedp"
	EngineColly    = "colly"
)

// DotEnvFile is read before the environment is consulted. A missing file is
// ignored.
var DotEnvFile = ".env"

// Load builds a Config from an optional YAML file, the environment and
// defaults, in that order of precedence after the environment.
func Load(path string) (Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Crawl.Engine = strings.ToLower(strings.TrimSpace(cfg.Crawl.Engine))
	cfg.Enrich.Provider = strings.ToLower(strings.TrimSpace(cfg.Enrich.Provider))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// bindAliases lets the enrichment key and model come from the conventional
// GROQ_* variables as well as the prefixed ones.
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"enrich.api_key": {"CRAWLER_ENRICH_API_KEY", "GROQ_API_KEY"},
		"enrich.model":   {"CRAWLER_ENRICH_MODEL", "GROQ_MODEL_NAME"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.poll_interval", 300*time.Millisecond)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("crawl.engine", EngineChromedp)
	v.SetDefault("crawl.nav_timeout", 90*time.Second)
	v.SetDefault("crawl.settle_delay", 2*time.Second)
	v.SetDefault("crawl.consent_delay", time.Second)
	v.SetDefault("crawl.max_subpages", 3)
	v.SetDefault("crawl.headless", true)
	v.SetDefault("crawl.no_sandbox", false)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; company-intel-crawler/1.0)")
	v.SetDefault("enrich.provider", "groq")
	v.SetDefault("enrich.model", "llama-3.3-70b-versatile")
	v.SetDefault("enrich.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("enrich.timeout", 60*time.Second)
	v.SetDefault("enrich.temperature", 0.2)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.output_key", "output.xlsx")
	v.SetDefault("storage.upload_prefix", "uploads")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 100)
	v.SetDefault("progress.max_batch_wait", 250*time.Millisecond)
	v.SetDefault("progress.sink_timeout", 10*time.Second)
	v.SetDefault("progress.log_events", true)
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.service_name", "company-intel-crawler")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.PollInterval <= 0 {
		return fmt.Errorf("server.poll_interval must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Crawl.Engine {
	case EngineChromedp, EngineColly:
	default:
		return fmt.Errorf("crawl.engine must be %q or %q, got %q", EngineChromedp, EngineColly, c.Crawl.Engine)
	}
	if c.Crawl.NavTimeout <= 0 {
		return fmt.Errorf("crawl.nav_timeout must be > 0")
	}
	if c.Crawl.MaxSubpages < 0 {
		return fmt.Errorf("crawl.max_subpages must be >= 0")
	}
	switch c.Enrich.Provider {
	case "groq", "gemini":
	default:
		return fmt.Errorf("enrich.provider must be groq or gemini, got %q", c.Enrich.Provider)
	}
	if c.Enrich.Timeout <= 0 {
		return fmt.Errorf("enrich.timeout must be > 0")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend must be local, gcs or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.OutputKey == "" {
		return fmt.Errorf("storage.output_key is required")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}
