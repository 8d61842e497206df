// Package config reads the server configuration from the environment.
//
// Values come from real environment variables first. A .env file in the
// working directory, if present, fills in whatever is not already set
// (godotenv never overrides an existing variable).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DBPath       string
	ClientOrigin string
	LogLevel     string
	LogFormat    string

	Auth   AuthConfig
	AI     AIConfig
	GitHub GitHubConfig
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// RateLimit is the number of AI requests a single user may make per minute.
	RateLimit int
}

type GitHubConfig struct {
	// Token is an optional server-wide token that raises the public API rate limit.
	Token        string
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// OAuthEnabled reports whether the account-linking flow can be offered.
func (g GitHubConfig) OAuthEnabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load builds a Config from the environment, applying defaults, and checks
// the values that the server cannot start without.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	port := getEnvInt("PORT", 8080)

	cfg := Config{
		Port:         port,
		DBPath:       getEnv("DB_PATH", "data/prodevhub.db"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:3000"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		AI: AIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			BaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:     getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			RateLimit: getEnvInt("AI_RATE_LIMIT", 10),
		},
		GitHub: GitHubConfig{
			Token:        os.Getenv("GITHUB_TOKEN"),
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/auth/github/callback", port)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that makes the config unusable.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.AI.RateLimit <= 0 {
		return fmt.Errorf("config: AI_RATE_LIMIT must be positive, got %d", c.AI.RateLimit)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt falls back to the default when the value does not parse, so a
// typo cannot silently turn the port into 0.
func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(strings.TrimSpace(valueStr)); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "15m" or "168h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(strings.TrimSpace(valueStr)); err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}
