// Package config loads runtime configuration for the notes CLI.
//
// Sources & precedence (later wins)
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via -c or -config.
//  3. Environment variables (see parseEnv); a .env file in the working
//     directory is loaded first when present.
//  4. Command-line flags (see parseFlags).
//
// Supported flags
//
//	-a string   backend base URL, e.g. http://localhost:8080/api
//	-d string   local data directory
//	-t int      request timeout (seconds)
//	-v string   view mode: grid or list
//	-l string   log level: debug, info, warn, error
//
// Environment
//
//	NOTES_SERVER_URL, NOTES_DATA_DIR, NOTES_REQUEST_TIMEOUT ("30s"),
//	NOTES_RPS, NOTES_VIEW_MODE, NOTES_LOG_LEVEL
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "30s" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8080/api",
//	  "data_dir": ".notekeeper",
//	  "request_timeout": "30s",
//	  "requests_per_second": 10,
//	  "preview_fetch_timeout": "30s",
//	  "view_mode": "grid",
//	  "log_level": "info"
//	}
package config
