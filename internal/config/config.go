package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/finmetrics/internal/decumulate"
	"github.com/sells-group/finmetrics/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Tushare    TushareConfig    `yaml:"tushare" mapstructure:"tushare"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Decumulate DecumulateConfig `yaml:"decumulate" mapstructure:"decumulate"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// TushareConfig holds Tushare Pro API settings.
type TushareConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// Timeout returns the per-request timeout.
func (c TushareConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryPolicy builds the retry policy for upstream calls. MaxRetries counts
// retries, not attempts.
func (c TushareConfig) RetryPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.MaxAttempts = c.MaxRetries + 1
	return p
}

// AnthropicConfig holds the summary model settings. An empty key disables
// summaries.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FetchConfig configures the collector worker pool.
type FetchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// DecumulateConfig configures the cumulative heuristic. Biases are
// "cumulative" or "discrete"; FieldBias is keyed by net_profit, revenue or
// cost.
type DecumulateConfig struct {
	DefaultBias string            `yaml:"default_bias" mapstructure:"default_bias"`
	FieldBias   map[string]string `yaml:"field_bias" mapstructure:"field_bias"`
}

// Options parses the configured biases.
func (c DecumulateConfig) Options() (decumulate.Options, error) {
	def, err := decumulate.ParseBias(c.DefaultBias)
	if err != nil {
		return decumulate.Options{}, eris.Wrap(err, "config: decumulate.default_bias")
	}
	opts := decumulate.Options{Default: def}
	for field, s := range c.FieldBias {
		b, err := decumulate.ParseBias(s)
		if err != nil {
			return decumulate.Options{}, eris.Wrapf(err, "config: decumulate.field_bias.%s", field)
		}
		if opts.FieldBias == nil {
			opts.FieldBias = make(map[string]decumulate.Bias)
		}
		opts.FieldBias[field] = b
	}
	return opts, nil
}

// CacheConfig configures the SQLite response cache and run log.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// StoreConfig configures the Postgres metrics store.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures spreadsheet output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures run-health alerting in serve mode.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	SkeletonRateThreshold float64 `yaml:"skeleton_rate_threshold" mapstructure:"skeleton_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FINMETRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("tushare.token", "")
	v.SetDefault("tushare.base_url", "http://api.tushare.pro")
	v.SetDefault("tushare.timeout_secs", 30)
	v.SetDefault("tushare.rate_per_minute", 200)
	v.SetDefault("tushare.max_retries", 2)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 800)
	v.SetDefault("fetch.max_concurrency", 4)
	v.SetDefault("decumulate.default_bias", "cumulative")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "finmetrics.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("store.database_url", "")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.skeleton_rate_threshold", 0.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
