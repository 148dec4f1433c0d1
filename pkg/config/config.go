package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	ProjectID        string
	CredentialsJSON  string
	CorsHosts        []string
	AppBaseURL       string
	DispatchSchedule string
	ClosureSchedule  string
	ReminderStale    time.Duration
	JobTimeout       time.Duration
	PushRate         float64
	ResendKey        string
	AlertFrom        string
	AlertEmails      []string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v\n", err)
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		ProjectID:        getEnv("FIREBASE_PROJECT_ID", ""),
		CredentialsJSON:  getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		CorsHosts:        splitList(getEnv("CORS_HOSTS", "http://localhost:5173")),
		AppBaseURL:       strings.TrimRight(getEnv("APP_BASE_URL", "https://quiniela.app"), "/"),
		DispatchSchedule: getEnv("DISPATCH_SCHEDULE", "@every 1m"),
		ClosureSchedule:  getEnv("CLOSURE_SCHEDULE", "@every 5m"),
		ReminderStale:    getDuration("REMINDER_STALE_AFTER", 15*time.Minute),
		JobTimeout:       getDuration("JOB_TIMEOUT", 55*time.Second),
		PushRate:         getFloat("PUSH_RATE", 5),
		ResendKey:        getEnv("RESEND_KEY", ""),
		AlertFrom:        getEnv("ALERT_FROM", "quiniela@resend.dev"),
		AlertEmails:      splitList(getEnv("ALERT_EMAILS", "")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("Invalid duration for %s (%q), using %s\n", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		log.Printf("Invalid number for %s (%q), using %v\n", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
