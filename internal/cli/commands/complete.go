package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlscope/internal/cli/output"
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// completionIdent is inserted at the caret so that an incomplete name still
// parses into a name node.
const completionIdent = "sqlscope_completion"

// CompleteOptions holds options for the complete command.
type CompleteOptions struct {
	File string
}

// completeResult lists what could be written at the caret.
type completeResult struct {
	Kind       string           `json:"kind"`
	Prefix     string           `json:"prefix"`
	Candidates []definitionInfo `json:"candidates"`
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	opts := &CompleteOptions{}
	cmd := &cobra.Command{
		Use:   "complete [query]",
		Short: "List the names that could be written at the caret",
		Long: `List the columns, tables or bind parameters visible at the caret marker,
in scope order, filtered by what is already typed before the caret.

The caret may sit in an empty spot ("SELECT <caret> FROM t"), inside a
name, or after a qualifier ("u.<caret>").`,
		Example: `  # Columns visible in a select list
  sqlscope complete "SELECT <caret> FROM user u JOIN book b ON b.user_id = u.id"

  # Tables for a FROM clause, filtered by prefix
  sqlscope complete "SELECT * FROM bo<caret>"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")

	return cmd
}

func runComplete(cmd *cobra.Command, args []string, opts *CompleteOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	text, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	result, err := completeAtCaret(cmd, cmdCtx, text)
	if err != nil {
		return err
	}
	return renderComplete(cmdCtx.Renderer, result)
}

func completeAtCaret(cmd *cobra.Command, cmdCtx *CommandContext, text string) (*completeResult, error) {
	sql, offset, err := splitCaret(text, cmdCtx.Cfg.Caret)
	if err != nil {
		return nil, err
	}
	sql = sql[:offset] + completionIdent + sql[offset:]

	tree, err := cmdCtx.ParseQuery("completion", sql)
	if err != nil {
		return nil, err
	}
	node := nameAt(tree, offset)
	if node == ast.NoNode {
		return nil, fmt.Errorf("nothing to complete at offset %d", offset)
	}

	// What the user typed before the caret, without the sigil of a parameter.
	typed := sql[tree.Span(node).Start.Offset:offset]
	typed = strings.TrimLeft(typed, "?:@$")

	ctx, cancel := cmdCtx.WithTimeout(cmd.Context())
	defer cancel()

	r := cmdCtx.Provider.Resolver(tree)
	defs, err := r.Candidates(ctx, node)
	if err != nil {
		return nil, err
	}

	result := &completeResult{
		Kind:       kindNoun(tree.Kind(node)),
		Prefix:     typed,
		Candidates: []definitionInfo{},
	}
	prefix := schema.FoldName(typed)
	for _, def := range defs {
		if def.Name() == "" || !strings.HasPrefix(schema.FoldName(def.Name()), prefix) {
			continue
		}
		result.Candidates = append(result.Candidates, describe(r, def))
	}
	return result, nil
}

func renderComplete(r *output.Renderer, result *completeResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}
	r.Header(2, fmt.Sprintf("%s candidates (%d)", result.Kind, len(result.Candidates)))
	if len(result.Candidates) == 0 {
		r.Muted("(none)")
		return nil
	}
	r.Table(definitionHeader, definitionRows(result.Candidates))
	return nil
}
