// Package config loads service configuration from an optional YAML file and
// PHARMADESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pharmadesk/internal/core/sequence"
)

// EnvPrefix is prepended to every environment variable, e.g. PHARMADESK_DATABASE_URL.
const EnvPrefix = "PHARMADESK"

// Config holds all configuration for the service.
type Config struct {
	HTTP        HTTPConfig          `mapstructure:"http"`
	Database    DatabaseConfig      `mapstructure:"database"`
	Log         LogConfig           `mapstructure:"log"`
	Idempotency IdempotencyConfig   `mapstructure:"idempotency"`
	Audit       AuditConfig         `mapstructure:"audit"`
	IDs         map[string]IDConfig `mapstructure:"ids"`
}

// HTTPConfig holds API server configuration.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL pool configuration.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// IdempotencyConfig controls X-Idempotency-Key handling.
type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// AuditConfig controls audit log storage.
type AuditConfig struct {
	// CompressThreshold is the payload size in bytes above which
	// audit changes are stored zstd-compressed
	CompressThreshold int `mapstructure:"compress_threshold"`
}

// IDConfig overrides prefix or width of a business-ID pattern.
type IDConfig struct {
	Prefix string `mapstructure:"prefix"`
	Width  int    `mapstructure:"width"`
}

// Load reads configuration. configFile may be empty, in which case
// pharmadesk.yaml is looked up in the working directory and /etc/pharmadesk.
// A missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pharmadesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pharmadesk")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about.
	_ = v.BindEnv("database.url")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("audit.compress_threshold", 1024)
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if _, err := c.Patterns(); err != nil {
		return err
	}
	return nil
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("database.url is required (set %s_DATABASE_URL)", EnvPrefix)
	}
	return nil
}

// Patterns returns the business-ID patterns with configured overrides applied.
func (c *Config) Patterns() (map[string]sequence.Pattern, error) {
	patterns := sequence.DefaultPatterns()
	for name, override := range c.IDs {
		p, ok := patterns[name]
		if !ok {
			return nil, fmt.Errorf("ids.%s: unknown sequence", name)
		}
		if override.Prefix != "" {
			p.Prefix = override.Prefix
		}
		if override.Width != 0 {
			p.Width = override.Width
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("ids.%s: %w", name, err)
		}
		patterns[name] = p
	}
	return patterns, nil
}
