package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlscope/internal/provider"
	"github.com/leapstack-labs/sqlscope/pkg/schema/introspect"
)

const (
	replPrompt     = "sqlscope> "
	replContPrompt = "     ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Resolve and complete queries interactively",
		Long: `Start an interactive session against the configured schema.

Statements end with a semicolon and may span lines. A statement that
contains the caret marker resolves the name at the caret, or lists
completions when the caret is not on a name. Any other statement prints
its result columns.

With --watch, a YAML schema file is reloaded whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}

	// Read into the config by key; see config.LoadConfig.
	cmd.Flags().String("history-file", "", "REPL history file (default: .sqlscope/history)")
	cmd.Flags().Bool("watch", false, "Reload the schema file when it changes")

	return cmd
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	session := newREPLSession(cmd, cmdCtx)

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		stop, err := watchSchemaFile(cmd.Context(), cmdCtx)
		if err != nil {
			return err
		}
		defer stop()
	}

	historyFile := cmdCtx.Cfg.HistoryFile
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o750); err != nil {
			cmdCtx.Logger.Warn("history disabled", "error", err)
			historyFile = ""
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    session.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	source := cmdCtx.Cfg.Schema
	if source == "" {
		source = "(empty)"
	}
	cmdCtx.Renderer.Println(fmt.Sprintf("sqlscope REPL (schema: %s)", source))
	cmdCtx.Renderer.Muted("Type .help for commands, .quit to exit")
	cmdCtx.Renderer.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if session.handleLine(line) {
			return nil
		}
		if session.pending() {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// watchSchemaFile reloads the configured schema file in the background until
// the returned stop function is called.
func watchSchemaFile(ctx context.Context, cmdCtx *CommandContext) (func(), error) {
	source := cmdCtx.Cfg.Schema
	if !isSchemaFile(source) {
		return nil, fmt.Errorf("--watch needs a schema file, got %q", source)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cmdCtx.Provider.WatchSchema(ctx, source); err != nil {
			cmdCtx.Logger.Warn("schema watch stopped", "path", source, "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func isSchemaFile(source string) bool {
	return source != "" &&
		!strings.HasPrefix(source, provider.CatalogPrefix) &&
		!introspect.IsDSN(source) &&
		!strings.Contains(source, "://")
}

// replSession holds the state of one REPL independent of the terminal.
type replSession struct {
	cmd    *cobra.Command
	cmdCtx *CommandContext
	buf    strings.Builder
}

func newREPLSession(cmd *cobra.Command, cmdCtx *CommandContext) *replSession {
	return &replSession{cmd: cmd, cmdCtx: cmdCtx}
}

func (s *replSession) pending() bool { return s.buf.Len() > 0 }

func (s *replSession) reset() { s.buf.Reset() }

// handleLine processes one line of input and reports whether the session
// should end.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !s.pending() && strings.HasPrefix(line, ".") {
		return s.dotCommand(line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}
	text := s.buf.String()
	s.buf.Reset()

	if err := s.evaluate(text); err != nil {
		s.cmdCtx.Renderer.Error(err.Error())
	}
	s.cmdCtx.Renderer.Println()
	return false
}

func (s *replSession) evaluate(text string) error {
	if !strings.Contains(text, s.cmdCtx.Cfg.Caret) {
		results, err := expandColumns(s.cmd, s.cmdCtx, text)
		if err != nil {
			return err
		}
		return renderColumns(s.cmdCtx.Renderer, results)
	}

	// A caret on a name resolves it. Anywhere else the statement may not
	// even parse until something is written there, so complete instead.
	result, err := resolveAtCaret(s.cmd, s.cmdCtx, text)
	if err == nil {
		return renderResolve(s.cmdCtx.Renderer, result)
	}
	completions, cerr := completeAtCaret(s.cmd, s.cmdCtx, text)
	if cerr != nil {
		return err
	}
	return renderComplete(s.cmdCtx.Renderer, completions)
}

func (s *replSession) dotCommand(line string) bool {
	parts := strings.Fields(line)
	r := s.cmdCtx.Renderer
	c, _ := s.cmdCtx.Provider.Schema()

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(r.Writer(), s.cmdCtx.Cfg.Caret)
	case ".tables":
		if err := showEntities(r, c); err != nil {
			r.Error(err.Error())
		}
	case ".columns":
		if len(parts) < 2 {
			r.Error("usage: .columns <table>")
			return false
		}
		if err := showEntity(r, c, parts[1]); err != nil {
			r.Error(err.Error())
		}
	case ".reload":
		if err := s.cmdCtx.LoadSchema(s.cmd.Context(), s.cmdCtx.Cfg.Schema); err != nil {
			r.Error(err.Error())
			return false
		}
		reloaded, version := s.cmdCtx.Provider.Schema()
		r.Success(fmt.Sprintf("Reloaded %d entities (version %d)", reloaded.Len(), version))
	default:
		r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", parts[0]))
	}
	return false
}

// completer offers dot commands and the entity names of the current schema.
func (s *replSession) completer() *readline.PrefixCompleter {
	names := func(string) []string {
		c, _ := s.cmdCtx.Provider.Schema()
		return c.Names()
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".columns", readline.PcItemDynamic(names)),
		readline.PcItem(".reload"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItemDynamic(names),
	)
}

func printREPLHelp(w io.Writer, caret string) {
	_, _ = fmt.Fprintf(w, `
Commands:
  .help            Show this help message
  .tables          List schema entities
  .columns <name>  Show the fields of an entity
  .reload          Reload the configured schema
  .quit / .exit    Exit the REPL

Statements end with a semicolon (;). Put %s in a statement to resolve
the name under it, or to list completions where no name is written yet.
`, caret)
}
