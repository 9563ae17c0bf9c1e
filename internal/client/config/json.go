package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/picsync/internal/flagx"
	"github.com/dmitrijs2005/picsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerBaseURL       string         `json:"server_base_url"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	WorkerCount         int            `json:"worker_count"`
	UnselectDelay       timex.Duration `json:"unselect_delay"`
	CacheDSN            string         `json:"cache_dsn"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies known fields into the provided Config.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
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

	cfg.ServerBaseURL = jc.ServerBaseURL
	cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	if jc.WorkerCount > 0 {
		cfg.WorkerCount = jc.WorkerCount
	}
	cfg.UnselectDelay = time.Duration(jc.UnselectDelay.Duration)
	if jc.CacheDSN != "" {
		cfg.CacheDSN = jc.CacheDSN
	}
}
