package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqlscope/internal/cli/output"
)

// Validate checks the configuration for values no command could use.
func (c *Config) Validate() error {
	var errs []error
	if !output.ValidMode(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(output.Modes, ", "), c.OutputFormat))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Caret == "" {
		errs = append(errs, errors.New("caret marker must not be empty"))
	}
	return errors.Join(errs...)
}

// ParseLevel parses a log level name: debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: want debug, info, warn or error", s)
	}
	return level, nil
}

// Level returns the configured log level, or warn when it does not parse.
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}
