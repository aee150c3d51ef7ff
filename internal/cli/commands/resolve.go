package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlscope/internal/cli/output"
	"github.com/leapstack-labs/sqlscope/pkg/ast"
)

// ResolveOptions holds options for the resolve command.
type ResolveOptions struct {
	File string
}

// resolveResult is the outcome of resolving the name at the caret.
type resolveResult struct {
	Reference  string          `json:"reference"`
	Kind       string          `json:"kind"`
	Resolved   bool            `json:"resolved"`
	Definition *definitionInfo `json:"definition,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	opts := &ResolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve [query]",
		Short: "Find the definition of the name at the caret",
		Long: `Resolve the column, table or bind parameter at the caret marker to the
place that defines it: a schema entity or field, a CTE, a subquery, a
result column alias, or a parameter of the host call.

The caret marker defaults to <caret> and can be changed with the caret
config key. The query is read from the arguments, --file, or stdin.`,
		Example: `  # Resolve a column through a table alias
  sqlscope resolve "SELECT u.na<caret>me FROM user u"

  # Resolve against a live database
  sqlscope resolve --schema postgres://localhost/app -f query.sql

  # Machine-readable output
  sqlscope resolve -o json "WITH c AS (SELECT 1 AS n) SELECT n<caret> FROM c"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")

	return cmd
}

func runResolve(cmd *cobra.Command, args []string, opts *ResolveOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	text, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	result, err := resolveAtCaret(cmd, cmdCtx, text)
	if err != nil {
		return err
	}
	return renderResolve(cmdCtx.Renderer, result)
}

func resolveAtCaret(cmd *cobra.Command, cmdCtx *CommandContext, text string) (*resolveResult, error) {
	sql, offset, err := splitCaret(text, cmdCtx.Cfg.Caret)
	if err != nil {
		return nil, err
	}
	tree, err := cmdCtx.ParseQuery("query", sql)
	if err != nil {
		return nil, err
	}

	node := nameAt(tree, offset)
	if node == ast.NoNode {
		return nil, fmt.Errorf("%w at offset %d", errNoName, offset)
	}

	ctx, cancel := cmdCtx.WithTimeout(cmd.Context())
	defer cancel()

	r := cmdCtx.Provider.Resolver(tree)
	def, ok, err := r.Resolve(ctx, node)
	if err != nil {
		return nil, err
	}

	result := &resolveResult{
		Reference: tree.Text(node),
		Kind:      kindNoun(tree.Kind(node)),
		Resolved:  ok,
	}
	if ok {
		info := describe(r, def)
		result.Definition = &info
	}
	return result, nil
}

var errNoName = errors.New("no column, table or parameter name")

// nameAt returns the name node at offset, looking through a column
// reference to its column name.
func nameAt(tree *ast.Tree, offset int) ast.NodeID {
	node := tree.NodeAt(offset)
	if tree.Kind(node) == ast.KindColumnRefExpr {
		node = tree.ColumnRefName(node)
	}
	if !tree.Kind(node).IsName() {
		return ast.NoNode
	}
	return node
}

func renderResolve(r *output.Renderer, result *resolveResult) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(2, fmt.Sprintf("%s `%s`", result.Kind, result.Reference)))
		r.Println()
		if !result.Resolved {
			r.Println("Unresolved.")
			return nil
		}
		d := result.Definition
		r.Println("- " + output.FormatKeyValue("Definition", d.Name))
		r.Println("- " + output.FormatKeyValue("Kind", d.Kind))
		if d.Type != "" {
			r.Println("- " + output.FormatKeyValue("Type", d.Type))
		}
		r.Println("- " + output.FormatKeyValue("Location", d.Location))
		if d.Text != "" {
			r.Println("- " + output.FormatKeyValue("Text", "`"+d.Text+"`"))
		}
		return nil
	default:
		s := r.Styles()
		if !result.Resolved {
			r.Println(s.Warning.Render(fmt.Sprintf("%s %s: unresolved", result.Kind, result.Reference)))
			return nil
		}
		d := result.Definition
		line := fmt.Sprintf("%s %s -> %s %s", result.Kind, result.Reference, d.Kind, s.Bold.Render(d.Name))
		if d.Type != "" {
			line += " " + s.Muted.Render(d.Type)
		}
		r.Println(line)
		r.Println("  " + s.Accent.Render(d.Location))
		if d.Text != "" {
			r.Println("  " + s.Muted.Render(d.Text))
		}
		return nil
	}
}
