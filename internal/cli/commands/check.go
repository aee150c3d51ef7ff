package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlscope/internal/cli/output"
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/parser"
)

// ErrProblemsFound is returned by check when any reference is unresolved
// or any file does not parse.
var ErrProblemsFound = errors.New("problems found")

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Jobs int
}

// Diagnostic is one problem in a checked file.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Report names that resolve to nothing",
		Long: `Parse each query file and resolve every column, table and bind parameter
reference in it. References that resolve to nothing and files that do not
parse are reported; the command fails when there are any.

Files are checked concurrently.`,
		Example: `  sqlscope check queries/*.sql
  sqlscope check --schema sqlite:app.db -o json report.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Files checked in parallel (default: number of CPUs)")

	return cmd
}

func runCheck(cmd *cobra.Command, files []string, opts *CheckOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	diags, err := checkFiles(cmd.Context(), cmdCtx, files, opts.Jobs)
	if err != nil {
		return err
	}
	renderDiagnostics(cmdCtx.Renderer, files, diags)
	if len(diags) > 0 {
		return fmt.Errorf("%w: %d in %d files", ErrProblemsFound, len(diags), len(files))
	}
	return nil
}

// checkFiles checks files concurrently and returns the diagnostics in file
// order.
func checkFiles(ctx context.Context, cmdCtx *CommandContext, files []string, jobs int) ([]Diagnostic, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	perFile := make([][]Diagnostic, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			diags, err := checkFile(gctx, cmdCtx, file)
			if err != nil {
				return err
			}
			perFile[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Diagnostic
	for _, diags := range perFile {
		all = append(all, diags...)
	}
	return all, nil
}

func checkFile(ctx context.Context, cmdCtx *CommandContext, file string) ([]Diagnostic, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	doc := cmdCtx.Provider.GetOrParse(file, string(data), 1)
	if doc.Err != nil {
		d := Diagnostic{File: file, Kind: "syntax", Message: doc.Err.Error()}
		var perr *parser.ParseError
		if errors.As(doc.Err, &perr) {
			d.Line, d.Column, d.Message = perr.Pos.Line, perr.Pos.Column, perr.Message
		}
		return []Diagnostic{d}, nil
	}

	tree := doc.Tree
	var names []ast.NodeID
	tree.Walk(tree.Root(), func(id ast.NodeID) bool {
		if tree.Kind(id).IsName() {
			names = append(names, id)
		}
		return true
	})

	ctx, cancel := cmdCtx.WithTimeout(ctx)
	defer cancel()

	r := cmdCtx.Provider.Resolver(tree)
	var diags []Diagnostic
	for _, id := range names {
		_, ok, err := r.Resolve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		if ok {
			continue
		}
		kind := kindNoun(tree.Kind(id))
		pos := tree.Span(id).Start
		diags = append(diags, Diagnostic{
			File:    file,
			Line:    pos.Line,
			Column:  pos.Column,
			Kind:    kind,
			Name:    tree.Text(id),
			Message: fmt.Sprintf("unresolved %s %q", kind, tree.Text(id)),
		})
	}
	cmdCtx.Logger.Debug("checked file", "file", file, "names", len(names), "problems", len(diags))
	return diags, nil
}

func renderDiagnostics(r *output.Renderer, files []string, diags []Diagnostic) {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if diags == nil {
			diags = []Diagnostic{}
		}
		_ = r.JSON(diags)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(2, fmt.Sprintf("Check (%d files, %d problems)", len(files), len(diags))))
		r.Println()
		if len(diags) == 0 {
			return
		}
		rows := make([][]string, len(diags))
		for i, d := range diags {
			rows[i] = []string{d.File, strconv.Itoa(d.Line), strconv.Itoa(d.Column), d.Kind, d.Message}
		}
		r.Table([]string{"File", "Line", "Column", "Kind", "Message"}, rows)
	default:
		s := r.Styles()
		for _, d := range diags {
			r.Println(fmt.Sprintf("%s:%d:%d: %s", s.Accent.Render(d.File), d.Line, d.Column, d.Message))
		}
		if len(diags) == 0 {
			r.Success(fmt.Sprintf("%d files, no problems", len(files)))
		}
	}
}
