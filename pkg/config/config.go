// Package config loads the global ~/.rojo.toml configuration file: a small
// set of process-wide defaults that command-line flags can override,
// mirroring the teacher's own split between a global TOML configuration
// file and per-invocation flags.
package config

import (
	"os"
	"time"

	"github.com/rojosync/rojo/pkg/encoding"
	"github.com/rojosync/rojo/pkg/filesystem"
)

// Config holds the global defaults read from ~/.rojo.toml.
type Config struct {
	// NonInteractive, when true, makes build/syncback behave as though
	// --non-interactive were passed on every invocation.
	NonInteractive bool `toml:"nonInteractive"`
	// NoTrash, when true, makes build/syncback behave as though --no-trash
	// were passed on every invocation.
	NoTrash bool `toml:"noTrash"`
	// TrashRetentionHours overrides housekeeping's default retention period
	// for the trash subdirectory. Zero means "use the package default".
	TrashRetentionHours int `toml:"trashRetentionHours"`
}

// TrashRetention returns the configured trash retention as a Duration, or
// fallback if unset.
func (c Config) TrashRetention(fallback time.Duration) time.Duration {
	if c.TrashRetentionHours <= 0 {
		return fallback
	}
	return time.Duration(c.TrashRetentionHours) * time.Hour
}

// Load reads the global configuration file, returning the zero Config
// (all defaults disabled) if it doesn't exist.
func Load() (Config, error) {
	var cfg Config
	err := encoding.LoadAndUnmarshalTOML(filesystem.RojoConfigurationPath, &cfg)
	if err != nil && os.IsNotExist(err) {
		return Config{}, nil
	}
	return cfg, err
}
