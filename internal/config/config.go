package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	Environment    string

	// Admin gate
	AdminJWTSecret       string
	AdminAllowlistEmails []string

	// Voter identity
	IPHashSalt string

	// Tournament constants. Defaults mirror the production bracket; every
	// one is env-overridable for staging and test runs.
	StartScore        int
	ScorePerVote      int
	MatchDuration     time.Duration
	EventCutoff       time.Duration
	VoteCooldown      time.Duration
	SchedulerInterval time.Duration
}

// Load loads configuration from environment variables. A .env file is
// honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		Environment:    getEnv("ENVIRONMENT", "production"),

		AdminJWTSecret:       getEnv("ADMIN_JWT_SECRET", ""),
		AdminAllowlistEmails: parseList(getEnv("ADMIN_ALLOWLIST_EMAILS", "")),

		IPHashSalt: getEnv("IP_HASH_SALT", ""),

		StartScore:        getIntEnv("CP_START", 1000),
		ScorePerVote:      getIntEnv("CP_PER_VOTE", 1),
		MatchDuration:     time.Duration(getIntEnv("MATCH_DURATION_HOURS", 72)) * time.Hour,
		EventCutoff:       time.Duration(getIntEnv("EVENT_CUTOFF_SECONDS", 30)) * time.Second,
		VoteCooldown:      time.Duration(getIntEnv("VOTE_COOLDOWN_SECONDS", 30)) * time.Second,
		SchedulerInterval: time.Duration(getIntEnv("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
	}, nil
}

// IsDevelopment reports whether the app runs in a development environment.
// The test-only admin endpoints are gated on this.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "local"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseList splits a comma-separated env value into trimmed entries.
func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
