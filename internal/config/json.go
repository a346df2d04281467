package config

import (
	"encoding/json"
	"os"

	"github.com/ita-prog/worryless/internal/flagx"
	"github.com/ita-prog/worryless/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the request timeout
// either as a string like "10s" or as integer nanoseconds.
type JsonConfig struct {
	ServerName     string         `json:"server_name"`
	ServerURL      string         `json:"server_url"`
	DataDir        string         `json:"data_dir"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	UserPageSize   int            `json:"user_page_size"`
	MetricsAddr    string         `json:"metrics_addr"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via -c or -config (flagx.JsonConfigFlags). With no file the config is
// left untouched; an unreadable or invalid file panics. Only keys present
// in the JSON override the corresponding Config fields.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerName != "" {
		cfg.ServerName = jc.ServerName
	}
	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.UserPageSize != 0 {
		cfg.UserPageSize = jc.UserPageSize
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
