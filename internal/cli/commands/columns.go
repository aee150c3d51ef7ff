package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlscope/internal/cli/output"
	"github.com/leapstack-labs/sqlscope/pkg/ast"
)

// ColumnsOptions holds options for the columns command.
type ColumnsOptions struct {
	File string
}

// statementColumns is the expanded result of one select statement.
type statementColumns struct {
	Statement int              `json:"statement"`
	Columns   []definitionInfo `json:"columns"`
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	opts := &ColumnsOptions{}
	cmd := &cobra.Command{
		Use:   "columns [query]",
		Short: "Show the result columns of each select statement",
		Long: `Show the output columns of every SELECT in the query, with wildcards
expanded through tables, CTEs and subqueries. Expressions without an alias
are listed as anonymous columns. Other statements are skipped.`,
		Example: `  sqlscope columns "SELECT u.*, b.title FROM user u JOIN book b ON b.user_id = u.id"
  sqlscope columns -f report.sql -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")

	return cmd
}

func runColumns(cmd *cobra.Command, args []string, opts *ColumnsOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	text, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	results, err := expandColumns(cmd, cmdCtx, text)
	if err != nil {
		return err
	}
	return renderColumns(cmdCtx.Renderer, results)
}

func expandColumns(cmd *cobra.Command, cmdCtx *CommandContext, text string) ([]statementColumns, error) {
	tree, err := cmdCtx.ParseQuery("query", text)
	if err != nil {
		return nil, err
	}
	r := cmdCtx.Provider.Resolver(tree)

	ctx, cancel := cmdCtx.WithTimeout(cmd.Context())
	defer cancel()

	results := []statementColumns{}
	for i, stmt := range tree.Statements(tree.Root()) {
		if tree.Kind(stmt) != ast.KindSelectStmt {
			continue
		}
		cols, err := r.ExpandResultColumns(ctx, stmt)
		if err != nil {
			return nil, err
		}
		sc := statementColumns{Statement: i + 1, Columns: make([]definitionInfo, len(cols))}
		for j, col := range cols {
			sc.Columns[j] = describe(r, col)
		}
		results = append(results, sc)
	}
	return results, nil
}

func renderColumns(r *output.Renderer, results []statementColumns) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}
	if len(results) == 0 {
		r.Muted("(no select statements)")
		return nil
	}
	for _, sc := range results {
		r.Header(2, fmt.Sprintf("Statement %d (%d columns)", sc.Statement, len(sc.Columns)))
		rows := definitionRows(sc.Columns)
		for i := range rows {
			rows[i] = append([]string{strconv.Itoa(i + 1)}, rows[i]...)
		}
		r.Table(append([]string{"#"}, definitionHeader...), rows)
	}
	return nil
}
