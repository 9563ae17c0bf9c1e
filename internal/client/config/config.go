package config

import "time"

// Config holds runtime settings for the picsync CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - WorkerCount: reconciliation pool size (simultaneous existence lookups).
//   - UnselectDelay: grace period before selections that turned out to
//     already exist remotely are dropped.
//   - CacheDSN: sqlite DSN of the local checksum cache.
//
// Units: intervals are time.Duration values (e.g., 3*time.Second).
type Config struct {
	ServerBaseURL       string
	OnlineCheckInterval time.Duration
	WorkerCount         int
	UnselectDelay       time.Duration
	CacheDSN            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.WorkerCount = 10
	c.UnselectDelay = 700 * time.Millisecond
	c.CacheDSN = "scancache.db"
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
