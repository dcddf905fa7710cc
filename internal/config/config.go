package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "foodstagram.yaml"

// EnvPrefix prefixes every environment override, e.g. FOODSTAGRAM_AI_API_KEY.
const EnvPrefix = "FOODSTAGRAM"

// Config is the API server configuration.
type Config struct {
	Port        string          `mapstructure:"port" yaml:"port"`
	DatabaseURL string          `mapstructure:"database_url" yaml:"database_url"`
	LogLevel    string          `mapstructure:"log_level" yaml:"log_level"`
	SessionTTL  time.Duration   `mapstructure:"session_ttl" yaml:"session_ttl"`
	AI          AIConfig        `mapstructure:"ai" yaml:"ai"`
	RateLimit   RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
	Storage     StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Server      ServerConfig    `mapstructure:"server" yaml:"server"`
}

type ServerConfig struct {
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers" yaml:"trust_proxy_headers"`
}

type AIConfig struct {
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Model      string        `mapstructure:"model" yaml:"model"`
	VideoModel string        `mapstructure:"video_model" yaml:"video_model"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryMax   int           `mapstructure:"retry_max" yaml:"retry_max"`
}

type RateLimitConfig struct {
	MaxRequests     int           `mapstructure:"max_requests" yaml:"max_requests"`
	WindowMinutes   int           `mapstructure:"window_minutes" yaml:"window_minutes"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// Window converts WindowMinutes to a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

type StorageConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	LocalRoot       string        `mapstructure:"local_root" yaml:"local_root"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	Retention       time.Duration `mapstructure:"retention" yaml:"retention"`
	S3Bucket        string        `mapstructure:"s3_bucket" yaml:"s3_bucket"`
	S3Region        string        `mapstructure:"s3_region" yaml:"s3_region"`
	S3Endpoint      string        `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// Storage drivers.
const (
	DriverNone  = "none"
	DriverLocal = "local"
	DriverS3    = "s3"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("session_ttl", 30*24*time.Hour)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.video_model", "veo-3.1-fast-generate-preview")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.retry_max", 2)

	v.SetDefault("ratelimit.max_requests", 10)
	v.SetDefault("ratelimit.window_minutes", 1)
	v.SetDefault("ratelimit.cleanup_interval", 5*time.Minute)

	v.SetDefault("storage.driver", DriverNone)
	v.SetDefault("storage.local_root", ".foodstagram/media")
	v.SetDefault("storage.base_url", "http://localhost:8080")
	v.SetDefault("storage.retention", 7*24*time.Hour)
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")

	v.SetDefault("server.trust_proxy_headers", false)
}

// Load reads defaults, then the config file, then FOODSTAGRAM_* environment
// variables. An empty path looks for foodstagram.yaml in the working directory
// and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("ratelimit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.WindowMinutes <= 0 {
		return fmt.Errorf("ratelimit.window_minutes must be positive, got %d", c.RateLimit.WindowMinutes)
	}
	switch c.Storage.Driver {
	case DriverNone, DriverLocal, DriverS3:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// Redacted returns the config as YAML with secrets masked.
func (c Config) Redacted() ([]byte, error) {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.AI.APIKey = mask(c.AI.APIKey)
	c.Storage.SecretAccessKey = mask(c.Storage.SecretAccessKey)
	if c.DatabaseURL != "" {
		c.DatabaseURL = mask(c.DatabaseURL)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
