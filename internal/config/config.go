package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goodtune/pqoptimizer/internal/storage"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "PQOPT"

// APIKeyEnv is the conventional provider credential variable, honored in addition to
// PQOPT_GEMINI_API_KEY.
const APIKeyEnv = "GEMINI_API_KEY"

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig defines listener addresses and HTTP behavior
type ServerConfig struct {
	BindAddress     string   `mapstructure:"bind_address"`
	HTTPPort        int      `mapstructure:"http_port"`
	MetricsPort     int      `mapstructure:"metrics_port"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimit       int      `mapstructure:"rate_limit"`        // requests per window per client
	RateLimitWindow string   `mapstructure:"rate_limit_window"` // e.g. "1m"
	ReadTimeout     string   `mapstructure:"read_timeout"`
	WriteTimeout    string   `mapstructure:"write_timeout"` // must outlast a provider round trip
}

// GeminiConfig defines the text-generation provider settings
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type   string       `mapstructure:"type"` // bolt, redis, sqlite or memory
	Path   string       `mapstructure:"path"` // file path for bolt and sqlite
	Key    string       `mapstructure:"key"`  // namespaced key holding the usage store
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// MemoryConfig defines the ephemeral in-memory backend
type MemoryConfig struct {
	Size int `mapstructure:"size"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AnalyticsConfig defines usage recording behavior
type AnalyticsConfig struct {
	RecordOnOptimize bool   `mapstructure:"record_on_optimize"`
	Language         string `mapstructure:"language"` // default display-language tag, e.g. "en-US"
	Timezone         string `mapstructure:"timezone"` // IANA zone used for day bucketing; empty = server local
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", APIKeyEnv); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.http_port", 3001)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_limit_window", "1m")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/pqoptimizer/usage.bolt")
	v.SetDefault("storage.key", "pq-optimizer-usage")
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.memory.size", 128)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Analytics defaults
	v.SetDefault("analytics.record_on_optimize", true)
	v.SetDefault("analytics.language", "")
	v.SetDefault("analytics.timezone", "")
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port")
	}

	for name, value := range map[string]string{
		"server.read_timeout":      cfg.Server.ReadTimeout,
		"server.write_timeout":     cfg.Server.WriteTimeout,
		"server.rate_limit_window": cfg.Server.RateLimitWindow,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	if cfg.Analytics.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Analytics.Timezone); err != nil {
			return fmt.Errorf("invalid analytics timezone %q: %w", cfg.Analytics.Timezone, err)
		}
	}

	if cfg.Storage.Key == "" {
		return fmt.Errorf("storage key is required")
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = storage.TypeBolt
	}
	if !storage.IsValidType(cfg.Storage.Type) {
		return fmt.Errorf("unsupported storage type: %s (expected one of %s)", cfg.Storage.Type, strings.Join(storage.Types(), ", "))
	}

	switch cfg.Storage.Type {
	case storage.TypeBolt, storage.TypeSQLite:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s storage", cfg.Storage.Type)
		}
		// Ensure storage directory exists
		if err := storage.EnsureParentDir(cfg.Storage.Path); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case storage.TypeRedis:
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required for redis storage")
		}
	}

	return nil
}

// Location resolves the analytics timezone, defaulting to the server's local zone.
func (c AnalyticsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Duration parses a duration string with a fallback
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
