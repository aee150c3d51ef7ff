// Package config loads sqlscope CLI configuration.
//
// Values are layered, lowest to highest: built-in defaults, sqlscope.yaml,
// SQLSCOPE_* environment variables, then explicitly set flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	// Schema is the schema source: a YAML path, a database DSN
	// (postgres://, duckdb:, sqlite:) or catalog:<db>#<name>[@version].
	Schema       string        `koanf:"schema"`
	Caret        string        `koanf:"caret"`
	OutputFormat string        `koanf:"output"`
	Timeout      time.Duration `koanf:"timeout"`
	LogLevel     string        `koanf:"log_level"`
	Verbose      bool          `koanf:"verbose"`
	HistoryFile  string        `koanf:"history_file"`
	Catalog      string        `koanf:"catalog"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultCaret       = "<caret>"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTimeout     = 5 * time.Second
	DefaultLogLevel    = "warn"
	DefaultHistoryFile = ".sqlscope/history"
	DefaultCatalog     = ".sqlscope/catalog.db"
)

// Defaults returns a config holding only default values.
func Defaults() *Config {
	return &Config{
		Caret:        DefaultCaret,
		OutputFormat: DefaultOutput,
		Timeout:      DefaultTimeout,
		LogLevel:     DefaultLogLevel,
		HistoryFile:  DefaultHistoryFile,
		Catalog:      DefaultCatalog,
	}
}
