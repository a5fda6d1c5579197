package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8095", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 64, cfg.MirrorQueueSize)
	assert.Equal(t, 25, cfg.MaxAutoHops)
	assert.Equal(t, "8095", cfg.SimPort)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRIAGE_API_URL", "https://triage.example.com")
	t.Setenv("TRIAGE_API_TIMEOUT", "5s")
	t.Setenv("MAX_AUTO_HOPS", "10")
	t.Setenv("MIRROR_QUEUE_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://triage.example.com", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, 10, cfg.MaxAutoHops)
	// Invalid values fall back to defaults.
	assert.Equal(t, 64, cfg.MirrorQueueSize)
}
