package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding"

	"github.com/sells-group/geonames/internal/geofile"
)

// Config holds the full application configuration.
type Config struct {
	Reader ReaderConfig `yaml:"reader" mapstructure:"reader"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Load   LoadConfig   `yaml:"load" mapstructure:"load"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ReaderConfig sets the default file kind and character encoding of inputs.
type ReaderConfig struct {
	Kind     string `yaml:"kind" mapstructure:"kind"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// FetchConfig configures dump downloads.
type FetchConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// StoreConfig configures the load targets.
type StoreConfig struct {
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// LoadConfig configures multi-file loads.
type LoadConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FileKind parses the configured reader kind.
func (c ReaderConfig) FileKind() (geofile.FileKind, error) {
	return geofile.ParseFileKind(c.Kind)
}

// TextEncoding resolves the configured encoding label. UTF-8 yields nil.
func (c ReaderConfig) TextEncoding() (encoding.Encoding, error) {
	return geofile.LookupEncoding(c.Encoding)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEONAMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("reader.kind", "auto")
	v.SetDefault("reader.encoding", "utf-8")
	v.SetDefault("fetch.base_url", "https://download.geonames.org/export/dump")
	v.SetDefault("fetch.user_agent", "geonames-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 2)
	v.SetDefault("fetch.temp_dir", "/tmp/geonames")
	v.SetDefault("store.sqlite_path", "geonames.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.batch_size", 5000)
	v.SetDefault("load.concurrency", 2)

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

// Validate checks the settings a command mode depends on. Modes: read, fetch,
// load, load-postgres.
func (c *Config) Validate(mode string) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, err := c.Reader.FileKind(); err != nil {
		errs = append(errs, fmt.Errorf("reader.kind: %w", err))
	}
	if _, err := c.Reader.TextEncoding(); err != nil {
		errs = append(errs, fmt.Errorf("reader.encoding: %w", err))
	}

	switch mode {
	case "read":
	case "fetch":
		check(c.Fetch.BaseURL != "", "fetch.base_url is required")
		check(c.Fetch.TimeoutSecs > 0, "fetch.timeout_secs must be > 0")
		check(c.Fetch.MaxRetries >= 0, "fetch.max_retries must be >= 0")
		check(c.Fetch.RatePerSec > 0, "fetch.rate_per_sec must be > 0")
	case "load", "load-postgres":
		if mode == "load" {
			check(c.Store.SQLitePath != "", "store.sqlite_path is required")
		} else {
			check(c.Store.DatabaseURL != "", "store.database_url is required")
		}
		check(c.Store.BatchSize > 0, "store.batch_size must be > 0")
		check(c.Load.Concurrency >= 1 && c.Load.Concurrency <= 16,
			"load.concurrency must be between 1 and 16, got %d", c.Load.Concurrency)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Wrap(errors.Join(errs...), "config: validation failed")
	}
	return nil
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
