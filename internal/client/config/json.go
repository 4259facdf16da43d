package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// leave the current value untouched.
type JSONConfig struct {
	ServerURL           string         `json:"server_url"`
	DataDir             string         `json:"data_dir"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	RequestsPerSecond   *float64       `json:"requests_per_second"`
	PreviewFetchTimeout timex.Duration `json:"preview_fetch_timeout"`
	ViewMode            string         `json:"view_mode"`
	LogLevel            string         `json:"log_level"`
}

// parseJSON overlays cfg with the file named by -c/-config. No flag, no
// change. Read and decode errors panic.
func parseJSON(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *jc.RequestsPerSecond
	}
	if jc.PreviewFetchTimeout.Duration > 0 {
		cfg.PreviewFetchTimeout = jc.PreviewFetchTimeout.Duration
	}
	if jc.ViewMode != "" {
		cfg.ViewMode = jc.ViewMode
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
