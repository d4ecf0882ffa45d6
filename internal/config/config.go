package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Personify server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Dispatch DispatchConfig
	AI       AIConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port    int
	Env     string
	BaseURL string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// DispatchConfig configures the delayed-dispatch service that calls the
// processing webhook back after Delay.
type DispatchConfig struct {
	BaseURL        string
	Token          string
	SigningKey     string
	NextSigningKey string
	Delay          time.Duration
	Timeout        time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	OpenAI           OpenAIConfig
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

var validProviders = map[string]bool{
	"openai": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    envInt("PERSONIFY_PORT", 8080),
			Env:     envString("PERSONIFY_ENV", "development"),
			BaseURL: envString("PERSONIFY_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Dispatch: DispatchConfig{
			BaseURL:        envString("DISPATCH_BASE_URL", "https://qstash.upstash.io"),
			Token:          os.Getenv("DISPATCH_TOKEN"),
			SigningKey:     os.Getenv("DISPATCH_SIGNING_KEY"),
			NextSigningKey: os.Getenv("DISPATCH_NEXT_SIGNING_KEY"),
			Delay:          envDurationSecs("DISPATCH_DELAY_SECS", 60*time.Second),
			Timeout:        envDuration("DISPATCH_TIMEOUT", 10*time.Second),
		},
		AI: AIConfig{
			Provider:         envString("AI_PROVIDER", "openai"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			MaxRetries:       envInt("AI_MAX_RETRIES", 3),
			RetryBaseDelay:   envDurationSecs("AI_RETRY_BASE_DELAY_SECS", 2*time.Second),
			OpenAI: OpenAIConfig{
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  envDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: envDuration("JWT_REFRESH_TOKEN_TTL", 168*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in the production environment.
// Failure diagnostics omit stack traces in production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("PERSONIFY_BASE_URL must start with http:// or https://, got %q", c.Server.BaseURL)
	}

	if c.Dispatch.Token == "" {
		return fmt.Errorf("DISPATCH_TOKEN is required")
	}
	if c.Dispatch.SigningKey == "" {
		return fmt.Errorf("DISPATCH_SIGNING_KEY is required")
	}
	if c.Dispatch.Delay <= 0 {
		return fmt.Errorf("DISPATCH_DELAY_SECS must be positive")
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of openai, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
