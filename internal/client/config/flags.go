package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/picsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server (default from Config)
//	-i int      online check interval in seconds (default from Config)
//	-w int      reconciliation worker count (default from Config)
//	-u int      auto-unselect delay in milliseconds (default from Config)
//	-d string   sqlite DSN of the local checksum cache (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-w", "-u", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVar(&cfg.WorkerCount, "w", cfg.WorkerCount, "reconciliation worker count")
	unselectDelay := fs.Int("u", int(cfg.UnselectDelay.Milliseconds()), "auto-unselect delay (in milliseconds)")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "sqlite DSN of the local checksum cache")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.UnselectDelay = time.Duration(*unselectDelay) * time.Millisecond
}
