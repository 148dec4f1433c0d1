package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DISPATCH_SCHEDULE", "")
	t.Setenv("REMINDER_STALE_AFTER", "")
	t.Setenv("ALERT_EMAILS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "@every 1m", cfg.DispatchSchedule)
	assert.Equal(t, 15*time.Minute, cfg.ReminderStale)
	assert.Empty(t, cfg.AlertEmails)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REMINDER_STALE_AFTER", "2m")
	t.Setenv("PUSH_RATE", "nope")
	t.Setenv("ALERT_EMAILS", "a@x.io, b@x.io,,")
	t.Setenv("APP_BASE_URL", "https://example.com/")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.ReminderStale)
	assert.Equal(t, float64(5), cfg.PushRate)
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, cfg.AlertEmails)
	assert.Equal(t, "https://example.com", cfg.AppBaseURL)
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("JOB_TIMEOUT", "0s")
	t.Setenv("REMINDER_STALE_AFTER", "-5m")

	cfg := Load()
	assert.Equal(t, 55*time.Second, cfg.JobTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReminderStale)
}
