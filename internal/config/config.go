package config

import (
	"errors"
	"log"
	"strings"

	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Audit     auditor.Options `mapstructure:"audit_logger"`
	History   HistoryConfig   `mapstructure:"history"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port                   string `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// HistoryConfig controls the in-memory ring of recent records and the local
// JSONL copy.
type HistoryConfig struct {
	BufferSize int    `mapstructure:"buffer_size"`
	LogDir     string `mapstructure:"log_dir"` // empty disables the file copy
}

type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN                    string `mapstructure:"dsn"`
	AuditRetentionDays     int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	AuditListKey  string `mapstructure:"audit_list_key"`
	AuditListMax  int    `mapstructure:"audit_list_max"`
	AuditTTLHours int    `mapstructure:"audit_ttl_hours"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Buffer  int    `mapstructure:"buffer"` // per-client queue
}

// AuthConfig guards the audit query endpoints. An empty AdminKey leaves
// them open.
type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

// RateLimitConfig limits the users API per client IP. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Println("No config file found, using defaults and env vars")
	}
	return load(v)
}

// load applies env overrides and defaults on top of whatever v already read.
// e.g. AUDIT_LOGGER_LOG_LATENCY=false, DATABASE_DSN=...
func load(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout_seconds", 5)
	v.SetDefault("log.level", "info")

	auditor.SetDefaults(v, "audit_logger.")

	v.SetDefault("history.buffer_size", 1000)
	v.SetDefault("history.log_dir", "")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("database.cleanup_interval_minutes", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.audit_list_key", "audit_logs")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("redis.audit_ttl_hours", 24*7)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.path", "/audit/stream")
	v.SetDefault("stream.buffer", 64)

	v.SetDefault("auth.admin_key", "")

	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 20)
}
