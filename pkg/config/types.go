package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent imghash configuration stored as config.toml
// in the .imghash/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Index       IndexConfig       `toml:"index"`
	API         APIConfig         `toml:"api"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Watch       WatchConfig       `toml:"watch"`
}

// IndexConfig holds settings for the MVP similarity index and the item layer
// built on top of it.
type IndexConfig struct {
	// Path is the filesystem path to the SQLite database file.
	Path string `toml:"path,omitempty"`

	// Hasher selects the perceptual hash algorithm: "block" for BlockHash
	// (64-bit average hash) or "dct" for DCTHash.
	Hasher string `toml:"hasher,omitempty"`

	// DCTSize is the DCT coefficient block size (8, 16, 24, or 32) used when
	// Hasher is "dct". Ignored otherwise.
	DCTSize int `toml:"dct_size,omitempty"`

	// AutoBalanceThreshold is stored under index.auto_balance_threshold. No
	// command reads it: the index never re-balances on its own, and
	// "imghash balance" takes its settings from its own flags. A zero value is
	// replaced by the default when the config is loaded.
	AutoBalanceThreshold int `toml:"auto_balance_threshold,omitempty"`

	// AutoVantageTarget is stored under index.auto_vantage_target. No command
	// reads it: the index never promotes vantage points on its own, and
	// "imghash vantage-point auto" takes its target from --target. A zero
	// value is replaced by the default when the config is loaded.
	AutoVantageTarget int `toml:"auto_vantage_target,omitempty"`
}

// APIConfig holds HTTP and MCP API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig holds settings for the event publisher. When KafkaBrokers
// is empty, the index uses the no-op publisher.
type EventStreamConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `toml:"kafka_topic,omitempty"`
}

// WatchConfig holds settings for the directory ingest watcher.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"index.path": {
		get: func(c *Config) string { return c.Index.Path },
		set: func(c *Config, v string) error { c.Index.Path = v; return nil },
	},
	"index.hasher": {
		get: func(c *Config) string { return c.Index.Hasher },
		set: func(c *Config, v string) error { c.Index.Hasher = v; return nil },
	},
	"index.dct_size": {
		get: func(c *Config) string {
			if c.Index.DCTSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Index.DCTSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for index.dct_size: %w", err)
			}
			c.Index.DCTSize = n
			return nil
		},
	},
	"index.auto_balance_threshold": {
		get: func(c *Config) string {
			if c.Index.AutoBalanceThreshold == 0 {
				return ""
			}
			return strconv.Itoa(c.Index.AutoBalanceThreshold)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for index.auto_balance_threshold: %w", err)
			}
			c.Index.AutoBalanceThreshold = n
			return nil
		},
	},
	"index.auto_vantage_target": {
		get: func(c *Config) string {
			if c.Index.AutoVantageTarget == 0 {
				return ""
			}
			return strconv.Itoa(c.Index.AutoVantageTarget)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for index.auto_vantage_target: %w", err)
			}
			c.Index.AutoVantageTarget = n
			return nil
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"eventstream.kafka_brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.KafkaBrokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.EventStream.KafkaBrokers = nil
				return nil
			}
			c.EventStream.KafkaBrokers = strings.Split(v, ",")
			return nil
		},
	},
	"eventstream.kafka_topic": {
		get: func(c *Config) string { return c.EventStream.KafkaTopic },
		set: func(c *Config, v string) error { c.EventStream.KafkaTopic = v; return nil },
	},
	"watch.debounce_ms": {
		get: func(c *Config) string {
			if c.Watch.DebounceMS == 0 {
				return ""
			}
			return strconv.Itoa(c.Watch.DebounceMS)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for watch.debounce_ms: %w", err)
			}
			c.Watch.DebounceMS = n
			return nil
		},
	},
}
