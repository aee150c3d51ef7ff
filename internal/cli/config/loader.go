package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqlscope/pkg/schema/introspect"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// configNames are the config file names looked for, in order.
var configNames = []string{"sqlscope.yaml", "sqlscope.yml"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
// Returns "" if none is found within maxUpwardSearchLevels.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// isFilePath reports whether a schema source names a file on disk rather
// than a database or a stored snapshot.
func isFilePath(source string) bool {
	return source != "" && !introspect.IsDSN(source) &&
		!strings.HasPrefix(source, "catalog:") && !strings.Contains(source, "://")
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// SetCurrentConfig replaces the loaded configuration. Used for testing.
func SetCurrentConfig(cfg *Config) {
	currentConfig = cfg
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// Without an explicit cfgFile, sqlscope.yaml is searched upward from the
// working directory; the directory it is found in becomes the project root
// that relative paths in the file are resolved against. Paths given as
// flags stay relative to the working directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFileUsed = ""

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd

	if cfgFile == "" {
		cfgFile = findConfigUpward(cwd)
	}
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			cfgFile = abs
		}
		projectRoot = filepath.Dir(cfgFile)
	}

	// 1. Load defaults
	d := Defaults()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"caret":        d.Caret,
		"output":       d.OutputFormat,
		"timeout":      d.Timeout,
		"log_level":    d.LogLevel,
		"verbose":      false,
		"history_file": d.HistoryFile,
		"catalog":      d.Catalog,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Load environment variables (SQLSCOPE_ prefix)
	// Transform: SQLSCOPE_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider("SQLSCOPE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SQLSCOPE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Paths set by anything below the flags are relative to the project root.
	// Capture them before flags are layered on top.
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if isFilePath(cfg.Schema) {
		cfg.Schema = resolvePathRelativeTo(cfg.Schema, projectRoot)
	}
	cfg.HistoryFile = resolvePathRelativeTo(cfg.HistoryFile, projectRoot)
	cfg.Catalog = resolvePathRelativeTo(cfg.Catalog, projectRoot)

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		flagConf := koanf.New(".")
		if err := flagConf.Load(posflag.ProviderWithFlag(flags, ".", flagConf, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		if err := flagConf.Unmarshal("", &cfg); err != nil {
			return nil, fmt.Errorf("unable to decode flags: %w", err)
		}
		if flagConf.Exists("schema") && isFilePath(cfg.Schema) {
			cfg.Schema, _ = filepath.Abs(cfg.Schema)
		}
		if flagConf.Exists("history_file") && cfg.HistoryFile != "" {
			cfg.HistoryFile, _ = filepath.Abs(cfg.HistoryFile)
		}
		if flagConf.Exists("catalog") && cfg.Catalog != "" {
			cfg.Catalog, _ = filepath.Abs(cfg.Catalog)
		}
		if err := k.Merge(flagConf); err != nil {
			return nil, fmt.Errorf("failed to merge flags: %w", err)
		}
	}

	cfg.ProjectRoot = projectRoot

	// Database DSNs may carry credentials from the environment.
	cfg.Schema = expandEnvVars(cfg.Schema)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.New(slog.DiscardHandler)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// envVarPattern matches ${VAR}.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR}
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}
