// Package config loads runtime configuration for the picsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend HTTP API
//	-i int      online status check interval (seconds)
//	-w int      reconciliation worker count
//	-u int      auto-unselect delay (milliseconds)
//	-d string   sqlite DSN of the local checksum cache
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8080",
//	  "online_check_interval": "3s",
//	  "worker_count": 10,
//	  "unselect_delay": "700ms",
//	  "cache_dsn": "scancache.db"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
