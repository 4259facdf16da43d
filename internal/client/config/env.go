package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	envServerURL      = "NOTES_SERVER_URL"
	envDataDir        = "NOTES_DATA_DIR"
	envRequestTimeout = "NOTES_REQUEST_TIMEOUT"
	envRPS            = "NOTES_RPS"
	envViewMode       = "NOTES_VIEW_MODE"
	envLogLevel       = "NOTES_LOG_LEVEL"
)

// loadDotEnv reads .env from the working directory into the process
// environment without overriding variables that are already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		panic(fmt.Errorf("load .env: %w", err))
	}
}

// parseEnv overlays cfg with NOTES_* variables. Malformed numbers and
// durations panic.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	loadDotEnv()

	if v, ok := lookup(envServerURL); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := lookup(envDataDir); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := lookup(envRequestTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s: %w", envRequestTimeout, err))
		}
		cfg.RequestTimeout = d
	}
	if v, ok := lookup(envRPS); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(fmt.Errorf("%s: %w", envRPS, err))
		}
		cfg.RequestsPerSecond = rps
	}
	if v, ok := lookup(envViewMode); ok && v != "" {
		cfg.ViewMode = v
	}
	if v, ok := lookup(envLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
}
