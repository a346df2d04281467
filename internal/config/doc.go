// Package config loads runtime configuration for the worryless shell.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   seed server name
//	-a string   seed server base URL
//	-d string   data directory for the credential vault
//	-t int      backend request timeout (seconds)
//	-m string   Prometheus listen address (empty disables)
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so values can be
// either strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_name": "local",
//	  "server_url": "http://localhost:8065",
//	  "data_dir": "/home/me/.config/worryless",
//	  "request_timeout": "10s",
//	  "user_page_size": 100,
//	  "metrics_addr": "127.0.0.1:9090",
//	  "log_level": "info"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
