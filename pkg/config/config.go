package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Server        ServerConfig
	Database      DatabaseConfig
	Storage       StorageConfig
	LLM           LLMConfig
	Observability ObservabilityConfig
	Form          FormConfig
}

type AppConfig struct {
	Name     string
	Env      string // dev / test / prod
	LogLevel string
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	MaxUploadMB        int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// TestURL replaces the DSN when the app runs in test/ci mode.
	TestURL string
	env     string
}

type StorageConfig struct {
	LocalPath string
}

type LLMConfig struct {
	Provider  string
	Model     string
	MaxTokens int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type FormConfig struct {
	Currency          string
	TempRetentionDays int
	CleanupSchedule   string
}

// Load reads configuration from environment variables, after loading the
// env file that matches APP_ENV (.env.test for test/ci, .env otherwise).
func Load() (*Config, error) {
	// A missing env file is fine; the process environment still applies.
	_ = godotenv.Load(envFile())

	appEnv := strings.ToLower(getEnv("APP_ENV", "dev"))

	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "AutoQM"),
			Env:      appEnv,
			LogLevel: getEnv("LOG_LEVEL", "INFO"),
		},
		Server: ServerConfig{
			Host:               getEnv("APP_HOST", "127.0.0.1"),
			Port:               getEnvAsInt("APP_PORT", 8000),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 100),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			MaxUploadMB:        getEnvAsInt("SERVER_MAX_UPLOAD_MB", 32),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "autoqm"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TestURL:  getEnv("TEST_DATABASE_URL", ""),
			env:      appEnv,
		},
		Storage: StorageConfig{
			LocalPath: getEnv("FILE_STORAGE_ROOT", "./data/files"),
		},
		LLM: LLMConfig{
			Provider:  getEnv("LLM_PROVIDER", "stub"),
			Model:     getEnv("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvAsInt("MAX_LLM_TOKENS", 2000),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Form: FormConfig{
			Currency:          getEnv("FORM_CURRENCY", "TWD"),
			TempRetentionDays: getEnvAsInt("FORM_TEMP_RETENTION_DAYS", 30),
			CleanupSchedule:   getEnv("FORM_CLEANUP_SCHEDULE", "0 3 * * *"),
		},
	}

	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("invalid APP_PORT: %d", cfg.Server.Port)
	}

	return cfg, nil
}

// IsTest reports whether the app runs in test or ci mode
func (c *AppConfig) IsTest() bool {
	return c.Env == "test" || c.Env == "ci"
}

// SlogLevel maps LOG_LEVEL onto a slog level
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DSN returns the database connection string.
// In test/ci mode TEST_DATABASE_URL wins when it is set.
func (c *DatabaseConfig) DSN() string {
	if (c.env == "test" || c.env == "ci") && c.TestURL != "" {
		return c.TestURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the listen address for the API server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envFile() string {
	switch strings.ToLower(os.Getenv("APP_ENV")) {
	case "test", "ci":
		return ".env.test"
	default:
		return ".env"
	}
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
