// Package config loads copyctl's optional TOML configuration file,
// grounded on the teacher's registry_config.go: a raw intermediate struct
// unmarshaled with github.com/pelletier/go-toml, then copied into the
// public shape callers use.
package config

import (
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// FileName is the config file copyctl looks for in the current directory.
const FileName = ".copyctlrc"

// Config holds the knobs that tune the ambient behavior of the copy/move
// core: how long to pause for timestamp-ordering integrity, how long an
// RA call may run before it's considered hung, and whether a repo->WC
// directory copy across a foreign UUID is still attempted (and left
// disjoint) or rejected outright before any checkout occurs.
type Config struct {
	SleepForTimestamps time.Duration
	RATimeout          time.Duration
	AllowForeignCheckout bool
}

// Default returns the configuration copyctl uses when no .copyctlrc is
// present or one of its fields is left unset.
func Default() Config {
	return Config{
		SleepForTimestamps:   time.Millisecond,
		RATimeout:            2 * time.Minute,
		AllowForeignCheckout: true,
	}
}

type rawConfig struct {
	SleepForTimestampsMS int  `toml:"sleep_for_timestamps_ms"`
	RATimeoutSeconds     int  `toml:"ra_timeout_seconds"`
	AllowForeignCheckout *bool `toml:"allow_foreign_checkout"`
}

// Load reads a TOML config from r, falling back to Default for any field
// the document leaves zero.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	var raw rawConfig
	if err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, errors.Wrap(err, "parsing config as TOML")
	}

	if raw.SleepForTimestampsMS > 0 {
		cfg.SleepForTimestamps = time.Duration(raw.SleepForTimestampsMS) * time.Millisecond
	}
	if raw.RATimeoutSeconds > 0 {
		cfg.RATimeout = time.Duration(raw.RATimeoutSeconds) * time.Second
	}
	if raw.AllowForeignCheckout != nil {
		cfg.AllowForeignCheckout = *raw.AllowForeignCheckout
	}
	return cfg, nil
}
