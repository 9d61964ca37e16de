package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Assistant     AssistantConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	RunMigrations bool
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       string
}

// AssistantConfig tunes the turn pipeline and its maintenance jobs.
type AssistantConfig struct {
	ConfirmationWindow time.Duration
	SessionTTL         time.Duration
	DefaultLocale      string
	// SweepSchedule is a cron spec for expiring stale commands and sessions.
	SweepSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:          getEnv("POSTGRES_HOST", "localhost"),
			Port:          getEnvAsInt("POSTGRES_PORT", 5469),
			User:          getEnv("POSTGRES_USER", "postgres"),
			Password:      getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:      getEnv("POSTGRES_DB", "echo-dev"),
			SSLMode:       getEnv("POSTGRES_SSLMODE", "disable"),
			RunMigrations: getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			AccessTokenTTL: getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
		Assistant: AssistantConfig{
			ConfirmationWindow: getEnvAsDuration("ASSISTANT_CONFIRMATION_WINDOW", 2*time.Minute),
			SessionTTL:         getEnvAsDuration("ASSISTANT_SESSION_TTL", 30*time.Minute),
			DefaultLocale:      getEnv("ASSISTANT_DEFAULT_LOCALE", "pt-BR"),
			SweepSchedule:      getEnv("ASSISTANT_SWEEP_SCHEDULE", "@every 1m"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.Assistant.ConfirmationWindow <= 0 {
		return nil, errors.New("ASSISTANT_CONFIRMATION_WINDOW must be positive")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr is the listen address of the API server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
