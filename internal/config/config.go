// Package config loads the CLI/daemon settings file, grounded on
// loadFromConfig (main.go)'s TOML-decode-into-struct idiom and its
// Duration wrapper type (settings.go), generalized from satellite
// scheduling knobs to the reminders interpreter's ambient settings:
// default script path, locale pack selection, OMIT-seed holidays,
// daemon poll interval, output format, color toggle.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/midbel/toml"
)

// Duration wraps time.Duration for TOML decoding, carried over from
// settings.go's Duration type (same Set/String shape the toml decoder
// dispatches to via its Setter-like interface).
type Duration struct {
	time.Duration
}

func (d *Duration) String() string { return d.Duration.String() }

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err == nil {
		d.Duration = v
	}
	return err
}

// Format is an output-format selector for the driver's emitters.
type Format string

const (
	FormatPlain Format = "plain"
	FormatCal   Format = "simple-cal"
	FormatJSON  Format = "json"
)

// Config is the decoded settings file shape.
type Config struct {
	Script   string `toml:"script"`
	Locale   string `toml:"locale"`
	TimeZone string `toml:"timezone"`
	Color    bool   `toml:"color"`
	Format   Format `toml:"format"`

	Daemon struct {
		Poll    Duration `toml:"poll"`
		Enabled bool     `toml:"-"`
	} `toml:"daemon"`

	Omit struct {
		Holidays string `toml:"holidays"` // e.g. "US" — ISO-ish country code for rickar/cal seeding
		FromYear int    `toml:"from-year"`
		ToYear   int    `toml:"to-year"`
	} `toml:"omit"`

	StringCap   int      `toml:"string-cap"`
	ExprTimeout Duration `toml:"expr-timeout"` // wall-clock budget per directive's expression work; 0 disables
}

// Default returns the settings used when no config file is given.
func Default() Config {
	var c Config
	c.Format = FormatPlain
	c.Daemon.Poll = Duration{60 * time.Second}
	c.StringCap = 4096
	return c
}

// Load decodes path into a Config seeded with Default(), mirroring
// main.go's toml.DecodeFile(file, &c) call and its badUsage-wrapped
// error path (here left to the caller via the returned error, so
// cmd/remind can apply its own *Error wrapping).
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if err := toml.DecodeFile(path, &c); err != nil {
		return c, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return c, nil
}

// ResolveScriptPath implements the environment rule: DOTREMINDERS
// overrides HOME-derived ~/.reminders, and an explicit cfg.Script (or a
// CLI positional argument, handled by the caller) takes precedence over
// both.
func ResolveScriptPath(cfg Config, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg.Script != "" {
		return cfg.Script
	}
	if p := os.Getenv("DOTREMINDERS"); p != "" {
		return p
	}
	if home := os.Getenv("HOME"); home != "" {
		return home + "/.reminders"
	}
	return ".reminders"
}
