package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the worryless shell.
//
// Fields:
//   - ServerName/ServerURL: the seed backend server used until the vault
//     has entries of its own.
//   - DataDir: directory for the credential vault (database + secret file).
//   - RequestTimeout: per-request HTTP timeout for backend calls.
//   - UserPageSize: page size for the user-directory walk.
//   - MetricsAddr: listen address for the Prometheus endpoint; empty
//     disables the listener.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerName     string
	ServerURL      string
	DataDir        string
	RequestTimeout time.Duration
	UserPageSize   int
	MetricsAddr    string
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerName = "local"
	c.ServerURL = "http://localhost:8065"
	c.DataDir = defaultDataDir()
	c.RequestTimeout = 10 * time.Second
	c.UserPageSize = 100
	c.MetricsAddr = ""
	c.LogLevel = "info"
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".worryless"
	}
	return filepath.Join(base, "worryless")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
