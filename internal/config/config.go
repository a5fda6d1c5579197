package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds client configuration
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string
	LogFile   string

	// Decision service
	APIBaseURL     string
	APIBearerToken string
	APITimeout     time.Duration

	// Speech-to-text feed
	TranscribeFeedURL string

	// Orchestrator tuning
	MirrorQueueSize int
	MaxAutoHops     int

	// Operational endpoints
	MetricsAddr string

	// Simulator (cmd/triage-sim)
	SimPort string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		LogFile:           getEnv("LOG_FILE", ""),
		APIBaseURL:        getEnv("TRIAGE_API_URL", "http://localhost:8095"),
		APIBearerToken:    getEnv("TRIAGE_API_TOKEN", ""),
		APITimeout:        getEnvAsDuration("TRIAGE_API_TIMEOUT", 30*time.Second),
		TranscribeFeedURL: getEnv("TRANSCRIBE_FEED_URL", ""),
		MirrorQueueSize:   getEnvAsInt("MIRROR_QUEUE_SIZE", 64),
		MaxAutoHops:       getEnvAsInt("MAX_AUTO_HOPS", 25),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
		SimPort:           getEnv("SIM_PORT", "8095"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
