package config

import (
	"flag"
	"os"
	"time"

	"github.com/ita-prog/worryless/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   seed server name (default from Config)
//	-a string   seed server base URL
//	-d string   data directory for the credential vault
//	-t int      backend request timeout in seconds
//	-m string   Prometheus listen address, empty disables
//	-l string   log level (debug|info|warn|error)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-a", "-d", "-t", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerName, "s", cfg.ServerName, "seed server name")
	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "seed server base URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory for the credential vault")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "backend request timeout (in seconds)")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address (empty disables)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
