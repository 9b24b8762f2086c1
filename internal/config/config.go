package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/strmforge/strmforge/internal/metadata/tmdb"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Session  SessionConfig  `mapstructure:"session"`
	TMDB     tmdb.Config    `mapstructure:"tmdb"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminPassword string `mapstructure:"admin_password"`
}

// StorageConfig holds the storage client defaults applied to every
// connected backend.
type StorageConfig struct {
	RateLimitInterval time.Duration `mapstructure:"rate_limit_interval"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity     int           `mapstructure:"cache_capacity"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// ScanConfig holds the per-session scan and materialize defaults.
type ScanConfig struct {
	ScanDelay      time.Duration `mapstructure:"scan_delay"`
	UploadDelay    time.Duration `mapstructure:"upload_delay"`
	NamingLanguage string        `mapstructure:"naming_language"`
	UseCopy        bool          `mapstructure:"use_copy"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.strmforge")
	}

	v.SetEnvPrefix("STRMFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.TMDB.APIKey == "" {
		cfg.TMDB.APIKey = EmbeddedTMDBKey
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.path", "./data/strmforge.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("storage.rate_limit_interval", time.Duration(0))
	v.SetDefault("storage.cache_ttl", 5*time.Minute)
	v.SetDefault("storage.cache_capacity", 100)
	v.SetDefault("storage.retry_attempts", 3)
	v.SetDefault("storage.request_timeout", 60*time.Second)

	v.SetDefault("scan.scan_delay", time.Duration(0))
	v.SetDefault("scan.upload_delay", time.Duration(0))
	v.SetDefault("scan.naming_language", "zh")
	v.SetDefault("scan.use_copy", true)

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", time.Hour)

	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("tmdb.language", "zh-CN")
	v.SetDefault("tmdb.timeout", 30)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
