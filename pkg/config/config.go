package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Import        ImportConfig
	Storage       StorageConfig
	Notify        NotifyConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	MaxUploadBytes     int64
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ImportConfig controls how bank spreadsheets are read and submitted.
type ImportConfig struct {
	HeaderOffset      int // rows above the header row
	DateColumn        string
	DetailColumn      string
	AmountColumn      string
	DateDayShift      int // 0 = calendar date as written; -1 reproduces the legacy shift
	DedupWithinBatch  bool
	SubmitConcurrency int
	CurrencyCode      string
}

type StorageConfig struct {
	UploadPath    string
	RetentionDays int
	SweepSchedule string
}

type NotifyConfig struct {
	ResendAPIKey string
	EmailFrom    string
	EmailTo      []string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 100),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxUploadBytes:     int64(getEnvAsInt("SERVER_MAX_UPLOAD_MB", 10)) << 20,
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "gastos"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Import: ImportConfig{
			HeaderOffset:      getEnvAsInt("IMPORT_HEADER_OFFSET", 2),
			DateColumn:        getEnv("IMPORT_DATE_COLUMN", "Fecha"),
			DetailColumn:      getEnv("IMPORT_DETAIL_COLUMN", "Detalle"),
			AmountColumn:      getEnv("IMPORT_AMOUNT_COLUMN", "Monto cargo ($)"),
			DateDayShift:      getEnvAsInt("IMPORT_DATE_DAY_SHIFT", 0),
			DedupWithinBatch:  getEnvAsBool("IMPORT_DEDUP_WITHIN_BATCH", false),
			SubmitConcurrency: getEnvAsInt("IMPORT_SUBMIT_CONCURRENCY", 1),
			CurrencyCode:      getEnv("IMPORT_CURRENCY", "CLP"),
		},
		Storage: StorageConfig{
			UploadPath:    getEnv("STORAGE_UPLOAD_PATH", "./uploads"),
			RetentionDays: getEnvAsInt("STORAGE_RETENTION_DAYS", 30),
			SweepSchedule: getEnv("STORAGE_SWEEP_SCHEDULE", "0 3 * * *"),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "Gastos <gastos@localhost>"),
			EmailTo:      getEnvAsList("NOTIFY_EMAIL_TO", nil),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Import.HeaderOffset < 0 {
		return nil, errors.New("IMPORT_HEADER_OFFSET must not be negative")
	}
	if cfg.Import.SubmitConcurrency < 1 {
		cfg.Import.SubmitConcurrency = 1
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

// Addr returns the listen address for the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewLogger builds the process logger from the log settings.
func (c *LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
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

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
