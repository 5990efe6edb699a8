package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// API server Configuration
	API APIConfig

	// Web front end Configuration
	Web WebConfig

	// Onboarding reminder Configuration
	Reminder ReminderConfig

	// Asynqmon dashboard Configuration
	Monitor MonitorConfig

	// Outgoing e-mail Configuration
	Mail MailConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// APIConfig holds the API server configuration
type APIConfig struct {
	Addr        string
	CORSOrigins []string
}

// WebConfig holds the web front end configuration
type WebConfig struct {
	Addr          string
	PublicURL     string // Base for links in e-mails
	SessionSecret string
	SecureCookies bool
	Backend       string // api, stub
	APIURL        string
	StubLatency   time.Duration
}

// ReminderConfig controls the onboarding reminder scan
type ReminderConfig struct {
	Schedule string        // Cron expression, 5 fields
	After    time.Duration // How long after sign-up a reminder is due
}

// MonitorConfig holds the asynqmon configuration
type MonitorConfig struct {
	Addr string
}

// MailConfig holds outgoing e-mail settings
type MailConfig struct {
	From string
}

// Backend values for WebConfig.Backend
const (
	BackendAPI  = "api"
	BackendStub = "stub"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	stubLatency, err := durationEnv("STUB_LATENCY", 1500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	reminderAfter, err := durationEnv("REMINDER_AFTER", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnv("WEB_BACKEND", BackendAPI))
	if backend != BackendAPI && backend != BackendStub {
		return nil, fmt.Errorf("invalid WEB_BACKEND %q, must be one of: api, stub", backend)
	}

	return &Config{
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "optivoo.sqlite"),
		},
		Redis: RedisConfig{
			Address: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		API: APIConfig{
			Addr:        getEnv("API_ADDR", ":8080"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Web: WebConfig{
			Addr:          getEnv("WEB_ADDR", ":3000"),
			PublicURL:     strings.TrimRight(getEnv("WEB_PUBLIC_URL", "http://localhost:3000"), "/"),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
			SecureCookies: strings.EqualFold(os.Getenv("WEB_SECURE_COOKIES"), "true"),
			Backend:       backend,
			APIURL:        getEnv("API_URL", "http://localhost:8080"),
			StubLatency:   stubLatency,
		},
		Reminder: ReminderConfig{
			Schedule: getEnv("REMINDER_SCHEDULE", "0 9 * * *"),
			After:    reminderAfter,
		},
		Monitor: MonitorConfig{
			Addr: getEnv("ASYNQMON_ADDR", ":8090"),
		},
		Mail: MailConfig{
			From: getEnv("MAIL_FROM", "Optivoo CRM <no-reply@optivoo.com>"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
