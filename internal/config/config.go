// Package config loads and validates process configuration from environment
// variables. Detection thresholds live in a separate hot-reloadable settings
// file (see service.FileSettings); only values that require a restart to
// change belong here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all process-level configuration for the visit detection server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// SettingsFile is the path of the hot-reloadable detection settings
	// YAML. Defaults to "detection.yaml"; the file may be absent, in which
	// case built-in defaults apply.
	SettingsFile string

	// SweepInterval is how often the cleanup sweeper runs. Defaults to 5m.
	SweepInterval time.Duration

	// MQTTBroker enables the MQTT notifier when non-empty, e.g.
	// "tcp://localhost:1883". Empty disables MQTT publishing.
	MQTTBroker string

	// MQTTClientID identifies this process to the broker.
	// Defaults to "wayfarer-visits".
	MQTTClientID string

	// MQTTTopicPrefix is the topic root for visit events; the user id is
	// appended per message. Defaults to "wayfarer/visits".
	MQTTTopicPrefix string

	// MaxBodyBytes caps inbound request body sizes. Defaults to 64 KiB —
	// ping payloads are tiny.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or
// naming the first variable that fails to parse.
func Load() (Config, error) {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		SettingsFile:    getEnv("SETTINGS_FILE", "detection.yaml"),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "wayfarer-visits"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "wayfarer/visits"),
		MaxBodyBytes:    64 * 1024,
	}

	sweep := getEnv("SWEEP_INTERVAL", "5m")
	d, err := time.ParseDuration(sweep)
	if err != nil {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL: invalid duration %q: %w", sweep, err)
	}
	if d <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL: must be positive, got %q", sweep)
	}
	cfg.SweepInterval = d

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
