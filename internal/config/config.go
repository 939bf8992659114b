package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Instagram InstagramConfig `yaml:"instagram"`
	Proxy     ProxyConfig     `yaml:"proxy"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	APIKey         string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	AllowedOrigins []string      `yaml:"allowed_origins" envconfig:"CORS_ALLOWED_ORIGINS"`
	LogLevel       string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	// StrictResolveStatus answers failed resolutions with 4xx/5xx instead of 200.
	StrictResolveStatus bool `yaml:"strict_resolve_status" envconfig:"STRICT_RESOLVE_STATUS"`
}

// InstagramConfig holds post-metadata lookup configuration.
type InstagramConfig struct {
	GraphQLURL string        `yaml:"graphql_url" envconfig:"INSTAGRAM_GRAPHQL_URL"`
	DocID      string        `yaml:"doc_id" envconfig:"INSTAGRAM_DOC_ID"`
	AppID      string        `yaml:"app_id" envconfig:"INSTAGRAM_APP_ID"`
	UserAgent  string        `yaml:"user_agent" envconfig:"INSTAGRAM_USER_AGENT"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"INSTAGRAM_TIMEOUT"`
}

// ProxyConfig holds media proxy configuration. The classification thresholds
// track Instagram's blocking behavior and are expected to change.
type ProxyConfig struct {
	Timeout            time.Duration `yaml:"timeout" envconfig:"PROXY_TIMEOUT"`
	Delay              time.Duration `yaml:"delay" envconfig:"PROXY_DELAY"`
	MinBodyBytes       int           `yaml:"min_body_bytes" envconfig:"PROXY_MIN_BYTES"`
	MaxBodyBytes       int64         `yaml:"max_body_bytes" envconfig:"PROXY_MAX_BYTES"`
	BlockedTypes       []string      `yaml:"blocked_content_types" envconfig:"PROXY_BLOCKED_TYPES"`
	DefaultContentType string        `yaml:"default_content_type" envconfig:"PROXY_DEFAULT_CONTENT_TYPE"`
	UserAgent          string        `yaml:"user_agent" envconfig:"PROXY_USER_AGENT"`
	Referer            string        `yaml:"referer" envconfig:"PROXY_REFERER"`
	AcceptLanguage     string        `yaml:"accept_language" envconfig:"PROXY_ACCEPT_LANGUAGE"`
	CacheMaxAge        time.Duration `yaml:"cache_max_age" envconfig:"PROXY_CACHE_MAX_AGE"`
}

const (
	defaultMobileUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	defaultDesktopUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"
)

// Default returns the configuration used when neither file nor environment set a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
			LogLevel: "info",
		},
		Instagram: InstagramConfig{
			GraphQLURL: "https://www.instagram.com/graphql/query",
			DocID:      "8845758582119845",
			AppID:      "936619743392459",
			UserAgent:  defaultDesktopUA,
			Timeout:    20 * time.Second,
		},
		Proxy: ProxyConfig{
			Timeout:            20 * time.Second,
			Delay:              100 * time.Millisecond,
			MinBodyBytes:       5000,
			MaxBodyBytes:       200 << 20,
			BlockedTypes:       []string{"text/html"},
			DefaultContentType: "image/jpeg",
			UserAgent:          defaultMobileUA,
			Referer:            "https://www.instagram.com/",
			AcceptLanguage:     "en-US,en;q=0.9",
			CacheMaxAge:        time.Hour,
		},
	}
}

// Load reads configuration from file and environment variables.
// File values override defaults; environment variables override both.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	if _, err := ParseLevel(c.Server.LogLevel); err != nil {
		return err
	}
	if c.Instagram.GraphQLURL == "" {
		return fmt.Errorf("INSTAGRAM_GRAPHQL_URL is required")
	}
	if c.Instagram.DocID == "" {
		return fmt.Errorf("INSTAGRAM_DOC_ID is required")
	}
	if c.Instagram.Timeout <= 0 {
		return fmt.Errorf("INSTAGRAM_TIMEOUT must be positive")
	}
	if c.Proxy.Timeout <= 0 {
		return fmt.Errorf("PROXY_TIMEOUT must be positive")
	}
	if c.Proxy.Delay < 0 {
		return fmt.Errorf("PROXY_DELAY must not be negative")
	}
	if c.Proxy.MinBodyBytes < 0 {
		return fmt.Errorf("PROXY_MIN_BYTES must not be negative")
	}
	if c.Proxy.MaxBodyBytes <= int64(c.Proxy.MinBodyBytes) {
		return fmt.Errorf("PROXY_MAX_BYTES must exceed PROXY_MIN_BYTES")
	}
	if c.Proxy.DefaultContentType == "" {
		return fmt.Errorf("PROXY_DEFAULT_CONTENT_TYPE is required")
	}
	if strings.TrimSpace(c.Proxy.UserAgent) == "" {
		return fmt.Errorf("PROXY_USER_AGENT is required")
	}
	if strings.TrimSpace(c.Proxy.Referer) == "" {
		return fmt.Errorf("PROXY_REFERER is required")
	}
	// A zero write timeout means the server never cuts the response
	if c.Server.WriteTimeout > 0 && c.Proxy.Timeout+c.Proxy.Delay >= c.Server.WriteTimeout {
		return fmt.Errorf("PROXY_TIMEOUT plus PROXY_DELAY (%v) must be below SERVER_WRITE_TIMEOUT (%v)",
			c.Proxy.Timeout+c.Proxy.Delay, c.Server.WriteTimeout)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", level)
	}
}
