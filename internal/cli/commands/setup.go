// Package commands implements the sqlscope CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlscope/internal/cli/config"
	"github.com/leapstack-labs/sqlscope/internal/cli/output"
	"github.com/leapstack-labs/sqlscope/internal/provider"
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/resolve"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Provider *provider.Provider

	queries atomic.Int64
}

// NewCommandContext creates a CommandContext with the configured schema
// loaded into its provider.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutSchema(cmd)
	if err := cmdCtx.LoadSchema(cmd.Context(), cmdCtx.Cfg.Schema); err != nil {
		return nil, err
	}
	return cmdCtx, nil
}

// NewCommandContextWithoutSchema creates a CommandContext with an empty
// schema. Useful for commands that bring their own source.
func NewCommandContextWithoutSchema(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Provider: provider.New(logger),
	}
}

// LoadSchema loads source into the provider.
func (c *CommandContext) LoadSchema(ctx context.Context, source string) error {
	catalog, err := provider.LoadSchema(ctx, source, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to load schema %q: %w", source, err)
	}
	version := c.Provider.SetSchema(catalog)
	c.Logger.Debug("schema ready", "source", source, "entities", catalog.Len(), "version", version)
	return nil
}

// ParseQuery parses text as the next version of the document at uri, so
// repeated queries in one session never see a stale tree.
func (c *CommandContext) ParseQuery(uri, text string) (*ast.Tree, error) {
	version := c.queries.Add(1)
	return c.Provider.Tree(uri, text, int(version))
}

// WithTimeout bounds one resolution by the configured timeout. A zero
// timeout means no deadline.
func (c *CommandContext) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Cfg.Timeout)
}

// getConfig returns the loaded configuration, or defaults when the command
// runs without the root (as in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Defaults()
}

// readQuery returns the query text from a file flag, the arguments, or
// stdin when there are neither or the only argument is "-".
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return string(data), nil
}

var (
	errNoCaret        = errors.New("no caret marker in query")
	errMultipleCarets = errors.New("more than one caret marker in query")
)

// splitCaret removes the caret marker from text and returns the offset it
// stood at.
func splitCaret(text, marker string) (string, int, error) {
	offset := strings.Index(text, marker)
	if offset < 0 {
		return "", 0, fmt.Errorf("%w %q", errNoCaret, marker)
	}
	if strings.Count(text, marker) > 1 {
		return "", 0, fmt.Errorf("%w %q", errMultipleCarets, marker)
	}
	return text[:offset] + text[offset+len(marker):], offset, nil
}

// definitionInfo is the printable form of a definition.
type definitionInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Type     string `json:"type,omitempty"`
	Location string `json:"location"`
	Text     string `json:"text,omitempty"`
}

// maxSnippet limits the query text shown for in-query targets.
const maxSnippet = 40

func describe(r *resolve.Resolver, def resolve.Definition) definitionInfo {
	info := definitionInfo{
		Name: def.Name(),
		Kind: resolve.DescribeKind(def),
	}
	if typed, ok := def.(interface{ Type() string }); ok {
		info.Type = typed.Type()
	}
	loc := r.Locate(def.Target())
	info.Location = loc.String()
	if loc.InQuery {
		info.Text = snippet(r.Tree().Source, loc.Span)
	}
	return info
}

func snippet(source string, span token.Span) string {
	start, end := span.Start.Offset, span.End.Offset
	if start < 0 || end > len(source) || start >= end {
		return ""
	}
	text := strings.Join(strings.Fields(source[start:end]), " ")
	if len(text) > maxSnippet {
		text = text[:maxSnippet-3] + "..."
	}
	return text
}

func definitionRows(infos []definitionInfo) [][]string {
	rows := make([][]string, len(infos))
	for i, d := range infos {
		name := d.Name
		if name == "" {
			name = "(anonymous)"
		}
		rows[i] = []string{name, d.Kind, d.Type, d.Location}
	}
	return rows
}

var definitionHeader = []string{"Name", "Kind", "Type", "Location"}

// kindNoun names what a name node refers to.
func kindNoun(k ast.Kind) string {
	switch k {
	case ast.KindColumnName:
		return "column"
	case ast.KindSelectedTableName, ast.KindDefinedTableName:
		return "table"
	case ast.KindBindParameter:
		return "parameter"
	}
	return strings.ToLower(k.String())
}
