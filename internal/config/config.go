package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"share2care/pkg/tz"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	GatewayURL        string
	GatewayTimeout    time.Duration
	PollInterval      time.Duration
	ReviewThrottle    time.Duration
	PageSize          int
	Timezone          string
	Location          *time.Location
	HTTPAddr          string
	SessionBackend    string
	RedisURL          string
	DatabaseURL       string
	MigrationsPath    string
	AMQPURL           string
	DiscordWebhookURL string
	DefaultLocale     string
	AppEnv            string
	LogLevel          string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	// .env is optional when the variables come from the environment (Docker, CI).
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		GatewayURL:        env("GATEWAY_URL", ""),
		Timezone:          env("TIMEZONE", "Local"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		SessionBackend:    strings.ToLower(env("SESSION_BACKEND", BackendMemory)),
		RedisURL:          env("REDIS_URL", ""),
		DatabaseURL:       env("DATABASE_URL", ""),
		MigrationsPath:    env("MIGRATIONS_PATH", "migrations"),
		AMQPURL:           env("AMQP_URL", ""),
		DiscordWebhookURL: env("DISCORD_WEBHOOK_URL", ""),
		DefaultLocale:     env("DEFAULT_LOCALE", "en"),
		AppEnv:            env("APP_ENV", "development"),
		LogLevel:          env("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.GatewayTimeout, err = duration(env("GATEWAY_TIMEOUT", "10s"), "GATEWAY_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = duration(env("POLL_INTERVAL", "30s"), "POLL_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.ReviewThrottle, err = duration(env("REVIEW_THROTTLE", "200ms"), "REVIEW_THROTTLE"); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = cast.ToIntE(env("PAGE_SIZE", "10")); err != nil {
		return nil, fmt.Errorf("config: PAGE_SIZE must be an integer: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func duration(raw, key string) (time.Duration, error) {
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration (%q): %w", key, raw, err)
	}
	return d, nil
}

// validate checks the loaded values and resolves the timezone.
func (c *Config) validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("config: GATEWAY_URL is required")
	}
	if err := absoluteURL(c.GatewayURL, "GATEWAY_URL", "http", "https"); err != nil {
		return err
	}

	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("config: GATEWAY_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: POLL_INTERVAL must be positive")
	}
	if c.ReviewThrottle < 0 {
		return fmt.Errorf("config: REVIEW_THROTTLE must not be negative")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("config: PAGE_SIZE must be at least 1")
	}

	loc, err := tz.Load(c.Timezone)
	if err != nil {
		return fmt.Errorf("config: TIMEZONE %q is unknown: %w", c.Timezone, err)
	}
	c.Location = loc

	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required with SESSION_BACKEND=redis")
		}
		if err := absoluteURL(c.RedisURL, "REDIS_URL", "redis", "rediss"); err != nil {
			return err
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required with SESSION_BACKEND=postgres")
		}
		if err := absoluteURL(c.DatabaseURL, "DATABASE_URL", "postgres", "postgresql"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: SESSION_BACKEND must be memory, redis or postgres, got %q", c.SessionBackend)
	}

	if c.AMQPURL != "" {
		if err := absoluteURL(c.AMQPURL, "AMQP_URL", "amqp", "amqps"); err != nil {
			return err
		}
	}
	return nil
}

func absoluteURL(raw, key string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s is invalid (%q): %w", key, raw, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("config: %s is invalid (%q): missing host", key, raw)
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("config: %s must use %s (%q)", key, strings.Join(schemes, " or "), raw)
}
