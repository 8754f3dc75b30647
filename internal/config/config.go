package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr     string
	RedisAddrs   []string
	RedisPass    string
	RedisCluster bool

	CORSOrigins    []string
	TrustedProxies []string

	// Feature flags
	FeatureFlags        []string
	FeatureFlagCacheTTL time.Duration

	// Notifications
	HistoryLimit        int
	SweepInterval       time.Duration
	BroadcastRecipients []string
	EventRateLimit      int
	EventRateWindow     time.Duration

	// Email
	AppBaseURL          string
	EmailSimulatedDelay time.Duration

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFromName string
	SMTPSecure   bool
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8000"),
		RedisAddrs:   getEnvSlice("REDIS_ADDR", nil),
		RedisPass:    getEnv("REDIS_PASS", ""),
		RedisCluster: strings.ToLower(getEnv("REDIS_CLUSTER", "false")) == "true",

		CORSOrigins:    getEnvSlice("CORS_ALLOWED_ORIGINS", nil),
		TrustedProxies: getEnvSlice("TRUSTED_PROXIES", nil),

		FeatureFlags:        getEnvSlice("FEATURE_FLAGS", []string{"notifications"}),
		FeatureFlagCacheTTL: getEnvDuration("FEATURE_FLAG_CACHE_TTL", 30*time.Second),

		HistoryLimit:        getEnvInt("NOTIFY_HISTORY_LIMIT", 100),
		SweepInterval:       getEnvDuration("NOTIFY_SWEEP_INTERVAL", time.Minute),
		BroadcastRecipients: getEnvSlice("NOTIFY_BROADCAST_USERS", nil),
		EventRateLimit:      getEnvInt("EVENT_RATE_LIMIT", 120),
		EventRateWindow:     getEnvDuration("EVENT_RATE_WINDOW", time.Minute),

		AppBaseURL:          getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailSimulatedDelay: getEnvDuration("EMAIL_SIMULATED_DELAY", time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "465"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Clinic Admin"),
		SMTPSecure:   strings.ToLower(getEnv("SMTP_SECURE", "true")) == "true",
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
