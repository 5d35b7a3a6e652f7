package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Avatar     AvatarConfig     `mapstructure:"avatar"`
	Display    DisplayConfig    `mapstructure:"display"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec"`
}

type DatabaseConfig struct {
	DSN                  string `mapstructure:"dsn"`
	Slaves               string `mapstructure:"slaves"`
	MaxOpenConns         int    `mapstructure:"max_open_conns"`
	MaxIdleConns         int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSec   int    `mapstructure:"conn_max_lifetime_sec"`
	ConnectRetries       int    `mapstructure:"connect_retries"`
	ConnectRetryDelaySec int    `mapstructure:"connect_retry_delay_sec"`
}

type MigrationsConfig struct {
	Path string `mapstructure:"path"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`

	LocalPath string `mapstructure:"local_path"`
	// PublicBaseURL prefixes object paths to build public references.
	PublicBaseURL string `mapstructure:"public_base_url"`

	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`
}

type AvatarConfig struct {
	MaxUploadSizeMB  int      `mapstructure:"max_upload_size_mb"`
	SupportedFormats []string `mapstructure:"supported_formats"`
	ThumbnailSize    int      `mapstructure:"thumbnail_size"`
	TempDir          string   `mapstructure:"temp_dir"`
	DefaultQuality   float64  `mapstructure:"default_quality"`
	DefaultMaxSize   int      `mapstructure:"default_max_size"`
}

// MaxUploadBytes is the hard byte-size ceiling of the format gate.
func (c AvatarConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

type DisplayConfig struct {
	ProbeTimeoutMs   int `mapstructure:"probe_timeout_ms"`
	ProbeCacheSize   int `mapstructure:"probe_cache_size"`
	ProbeCacheTTLSec int `mapstructure:"probe_cache_ttl_sec"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(path string) (*Config, error) {
	cfg := config.New()

	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		} else {
			return nil, fmt.Errorf("config.yaml not found")
		}
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = ""
	}

	if err := cfg.Load(configPath, envPath, "APP"); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	if err := cfg.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(appConfig)

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("storage_type", appConfig.Storage.Type).
		Str("temp_dir", appConfig.Avatar.TempDir).
		Int("max_upload_size_mb", appConfig.Avatar.MaxUploadSizeMB).
		Int("thumbnail_size", appConfig.Avatar.ThumbnailSize).
		Bool("kafka_enabled", appConfig.Kafka.Enabled).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Avatar.ThumbnailSize == 0 {
		cfg.Avatar.ThumbnailSize = 150
	}
	if cfg.Avatar.DefaultQuality == 0 {
		cfg.Avatar.DefaultQuality = 0.8
	}
	if cfg.Avatar.DefaultMaxSize == 0 {
		cfg.Avatar.DefaultMaxSize = 400
	}
	if cfg.Avatar.TempDir == "" {
		cfg.Avatar.TempDir = os.TempDir()
	}
	if len(cfg.Avatar.SupportedFormats) == 0 {
		cfg.Avatar.SupportedFormats = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if cfg.Display.ProbeTimeoutMs == 0 {
		cfg.Display.ProbeTimeoutMs = 3000
	}
	if cfg.Display.ProbeCacheSize == 0 {
		cfg.Display.ProbeCacheSize = 1024
	}
	if cfg.Display.ProbeCacheTTLSec == 0 {
		cfg.Display.ProbeCacheTTLSec = 60
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "avatar"
	}
	cfg.Storage.PublicBaseURL = strings.TrimRight(cfg.Storage.PublicBaseURL, "/")
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}

	// Database
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if cfg.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must be non-negative")
	}

	// Migrations
	if cfg.Migrations.Path == "" {
		return fmt.Errorf("migrations.path is required")
	}

	// Kafka
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers must contain at least one broker")
		}
		if cfg.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
		if cfg.Kafka.GroupID == "" {
			return fmt.Errorf("kafka.group_id is required")
		}
	}

	// Storage
	if cfg.Storage.Type == "" {
		return fmt.Errorf("storage.type is required (local|s3)")
	}
	if cfg.Storage.Type != "local" && cfg.Storage.Type != "s3" {
		return fmt.Errorf("storage.type must be 'local' or 's3'")
	}
	if cfg.Storage.Type == "local" {
		if cfg.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required for local storage")
		}
		if cfg.Storage.PublicBaseURL == "" {
			return fmt.Errorf("storage.public_base_url is required for local storage")
		}
	}
	if cfg.Storage.Type == "s3" {
		if cfg.Storage.S3Endpoint == "" {
			return fmt.Errorf("storage.s3_endpoint is required for s3 storage")
		}
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for s3 storage")
		}
		if cfg.Storage.S3AccessKey == "" || cfg.Storage.S3SecretKey == "" {
			return fmt.Errorf("storage.s3_access_key and storage.s3_secret_key are required for s3 storage")
		}
	}

	// Avatar
	if cfg.Avatar.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("avatar.max_upload_size_mb must be positive")
	}
	if cfg.Avatar.ThumbnailSize < 16 || cfg.Avatar.ThumbnailSize > 512 {
		return fmt.Errorf("avatar.thumbnail_size must be between 16 and 512")
	}
	if cfg.Avatar.DefaultQuality < 0 || cfg.Avatar.DefaultQuality > 1 {
		return fmt.Errorf("avatar.default_quality must be between 0 and 1")
	}
	if cfg.Avatar.DefaultMaxSize < 50 || cfg.Avatar.DefaultMaxSize > 2000 {
		return fmt.Errorf("avatar.default_max_size must be between 50 and 2000")
	}
	for _, f := range cfg.Avatar.SupportedFormats {
		if !strings.HasPrefix(f, "image/") {
			return fmt.Errorf("avatar.supported_formats entries must be image mime types, got %q", f)
		}
	}

	if cfg.Logging.Level == "" {
		return fmt.Errorf("logging.level is required")
	}

	return nil
}
