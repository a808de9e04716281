package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	BaseURL     string
	SnapshotURL string

	HTTPAddr string
	LogLevel string

	JournalDSN string

	LostConnectionAlertDelay time.Duration
	WriteTimeout             time.Duration
	FetchTimeout             time.Duration
}

func FromEnv() (Config, error) {
	var c Config
	c.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TMDB_BASE_URL")), "/")
	c.SnapshotURL = strings.TrimSpace(os.Getenv("TMDB_SNAPSHOT_URL"))

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.JournalDSN = strings.TrimSpace(os.Getenv("JOURNAL_DSN"))

	var err error
	if c.LostConnectionAlertDelay, err = duration("LOST_CONNECTION_ALERT_DELAY", 3500*time.Millisecond); err != nil {
		return c, err
	}
	if c.WriteTimeout, err = duration("WRITE_TIMEOUT", 3*time.Second); err != nil {
		return c, err
	}
	if c.FetchTimeout, err = duration("FETCH_TIMEOUT", 10*time.Second); err != nil {
		return c, err
	}

	if c.BaseURL == "" {
		return c, fmt.Errorf("TMDB_BASE_URL is empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return c, fmt.Errorf("TMDB_BASE_URL must be an http or https URL, got %q", c.BaseURL)
	}
	if c.SnapshotURL != "" && !strings.Contains(c.SnapshotURL, "{slug}") {
		return c, fmt.Errorf("TMDB_SNAPSHOT_URL must contain {slug}")
	}

	return c, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}
