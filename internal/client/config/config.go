package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the notes CLI.
type Config struct {
	ServerURL           string
	DataDir             string
	RequestTimeout      time.Duration
	RequestsPerSecond   float64
	PreviewFetchTimeout time.Duration
	ViewMode            string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080/api"
	c.DataDir = ".notekeeper"
	c.RequestTimeout = 30 * time.Second
	c.RequestsPerSecond = 10
	c.PreviewFetchTimeout = 30 * time.Second
	c.ViewMode = "grid"
	c.LogLevel = "info"
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q must be an absolute http(s) URL", c.ServerURL)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data dir must not be empty")
	}
	if c.RequestTimeout <= 0 || c.PreviewFetchTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests per second must not be negative")
	}
	switch strings.ToLower(c.ViewMode) {
	case "grid", "list":
	default:
		return fmt.Errorf("view mode %q must be grid or list", c.ViewMode)
	}
	return nil
}

// LoadConfig constructs a Config from defaults, JSON, environment and flags,
// in that order. It panics on unreadable or malformed input.
func LoadConfig() *Config {
	return load(os.Args[1:], os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg, args)
	parseEnv(cfg, lookup)
	parseFlags(cfg, args)
	return cfg
}
