package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlscope/internal/cli/config"
	"github.com/leapstack-labs/sqlscope/internal/cli/testutil"
	"github.com/leapstack-labs/sqlscope/internal/provider"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// useConfig installs a configuration for commands run without the root,
// starting from defaults with the test schema.
func useConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testutil.SchemaYAML), 0o644))

	cfg := config.Defaults()
	cfg.Schema = schemaPath
	cfg.OutputFormat = "json"
	cfg.Catalog = filepath.Join(dir, "state", "catalog.db")
	cfg.HistoryFile = filepath.Join(dir, "state", "history")
	if mutate != nil {
		mutate(cfg)
	}
	config.SetCurrentConfig(cfg)
	t.Cleanup(config.ResetConfig)
	return cfg
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// newTestContext builds a CommandContext around a capturing renderer with
// the test schema loaded.
func newTestContext(t *testing.T, tr *testutil.TestRenderer) *CommandContext {
	t.Helper()
	c, err := schema.ParseBytes([]byte(testutil.SchemaYAML), "schema.yaml")
	require.NoError(t, err)

	cfg := config.Defaults()
	p := provider.New(nil)
	p.SetSchema(c)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(t.Context()),
		Renderer: tr.Renderer,
		Provider: p,
	}
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewResolveCommand(), "resolve [query]", []string{"file"}},
		{NewCompleteCommand(), "complete [query]", []string{"file"}},
		{NewColumnsCommand(), "columns [query]", []string{"file"}},
		{NewCheckCommand(), "check <file>...", []string{"jobs"}},
		{NewSchemaCommand(), "schema", nil},
		{NewREPLCommand(), "repl", []string{"history-file", "watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestSchemaCommand_Subcommands(t *testing.T) {
	cmd := NewSchemaCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"show", "import", "snapshots", "delete"}, names)
}

func TestSplitCaret(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantSQL    string
		wantOffset int
		wantErr    error
	}{
		{"middle", "SELECT a<caret>b", "SELECT ab", 8, nil},
		{"start", "<caret>SELECT 1", "SELECT 1", 0, nil},
		{"missing", "SELECT 1", "", 0, errNoCaret},
		{"twice", "SELECT <caret>a, <caret>b", "", 0, errMultipleCarets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, offset, err := splitCaret(tt.text, "<caret>")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func spanOf(start, end int) token.Span {
	return token.Span{
		Start: token.Position{Line: 1, Column: start + 1, Offset: start},
		End:   token.Position{Line: 1, Column: end + 1, Offset: end},
	}
}

func TestSnippet(t *testing.T) {
	src := "SELECT   a,\n  b FROM t"
	assert.Equal(t, "SELECT a, b FROM t", snippet(src, spanOf(0, len(src))))
	assert.Equal(t, "", snippet(src, spanOf(5, 2)))

	long := strings.Repeat("x", 60)
	got := snippet(long, spanOf(0, 60))
	assert.Len(t, got, maxSnippet)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestReadQuery(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(file, []byte("SELECT 1"), 0o644))

	tests := []struct {
		name  string
		args  []string
		file  string
		stdin string
		want  string
	}{
		{"args joined", []string{"SELECT", "1"}, "", "", "SELECT 1"},
		{"file wins", []string{"ignored"}, file, "", "SELECT 1"},
		{"stdin", nil, "", "SELECT 2", "SELECT 2"},
		{"dash reads stdin", []string{"-"}, "", "SELECT 3", "SELECT 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.stdin))
			got, err := readQuery(cmd, tt.args, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := readQuery(&cobra.Command{}, nil, filepath.Join(dir, "missing.sql"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		want     resolveResult
		wantType string
		wantLoc  string
	}{
		{
			name:     "column through alias",
			query:    "SELECT u.na<caret>me FROM user u",
			want:     resolveResult{Reference: "name", Kind: "column", Resolved: true},
			wantType: "TEXT",
			wantLoc:  "schema.yaml:",
		},
		{
			name:    "table",
			query:   "SELECT * FROM bo<caret>ok",
			want:    resolveResult{Reference: "book", Kind: "table", Resolved: true},
			wantLoc: "schema.yaml:",
		},
		{
			name:    "cte column",
			query:   "WITH c AS (SELECT 1 AS n) SELECT n<caret> FROM c",
			want:    resolveResult{Reference: "n", Kind: "column", Resolved: true},
			wantLoc: "query:1:",
		},
		{
			name:  "unknown column",
			query: "SELECT u.nick<caret>name FROM user u",
			want:  resolveResult{Reference: "nickname", Kind: "column"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, nil)

			out, _, err := execute(t, NewResolveCommand(), "", tt.query)
			require.NoError(t, err)

			var got resolveResult
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want.Reference, got.Reference)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Resolved, got.Resolved)
			if !tt.want.Resolved {
				assert.Nil(t, got.Definition)
				return
			}
			require.NotNil(t, got.Definition)
			assert.Equal(t, tt.want.Reference, got.Definition.Name)
			assert.Equal(t, tt.wantType, got.Definition.Type)
			assert.Contains(t, got.Definition.Location, tt.wantLoc)
		})
	}
}

func TestResolveCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"no caret", "SELECT id FROM user", "no caret marker"},
		{"not a name", "SEL<caret>ECT id FROM user", "no column, table or parameter name"},
		{"syntax error", "SELECT id FROM<caret>", "parse error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, nil)
			_, _, err := execute(t, NewResolveCommand(), "", tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveCommand_Stdin(t *testing.T) {
	useConfig(t, nil)

	out, _, err := execute(t, NewResolveCommand(), "SELECT ti<caret>tle FROM book", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"reference": "title"`)
}

func TestResolveCommand_CustomCaret(t *testing.T) {
	useConfig(t, func(c *config.Config) { c.Caret = "|" })

	out, _, err := execute(t, NewResolveCommand(), "", "SELECT em|ail FROM user")
	require.NoError(t, err)
	assert.Contains(t, out, `"reference": "email"`)
}

func TestRenderResolve(t *testing.T) {
	resolved := &resolveResult{
		Reference: "name",
		Kind:      "column",
		Resolved:  true,
		Definition: &definitionInfo{
			Name:     "name",
			Kind:     "column",
			Type:     "TEXT",
			Location: "schema.yaml:4:9",
		},
	}

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderResolve(tr.Renderer, resolved))
		assert.Equal(t, "## column `name`\n\n"+
			"- **Definition:** name\n"+
			"- **Kind:** column\n"+
			"- **Type:** TEXT\n"+
			"- **Location:** schema.yaml:4:9\n", tr.Output())
		testutil.AssertValidMarkdown(t, tr.Output())
	})

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		require.NoError(t, renderResolve(tr.Renderer, resolved))
		assert.Equal(t, "column name -> column name TEXT\n  schema.yaml:4:9\n", tr.Output())
		testutil.AssertNoANSI(t, tr.Output())
	})

	t.Run("unresolved", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderResolve(tr.Renderer, &resolveResult{Reference: "x", Kind: "column"}))
		assert.Contains(t, tr.Output(), "Unresolved.")
	})
}

func candidateNames(t *testing.T, out string) []string {
	t.Helper()
	var got completeResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	names := make([]string, len(got.Candidates))
	for i, c := range got.Candidates {
		names[i] = c.Name
	}
	return names
}

func TestCompleteCommand(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    []string
		without []string
	}{
		{
			name:    "qualified column",
			query:   "SELECT u.<caret> FROM user u JOIN book b ON b.user_id = u.id",
			want:    []string{"id", "name", "email"},
			without: []string{"title"},
		},
		{
			name:  "unqualified column",
			query: "SELECT <caret> FROM user u JOIN book b ON b.user_id = u.id",
			want:  []string{"name", "email", "title", "user_id"},
		},
		{
			name:    "prefix",
			query:   "SELECT na<caret> FROM user",
			want:    []string{"name"},
			without: []string{"id", "email"},
		},
		{
			name:    "table",
			query:   "SELECT * FROM bo<caret>",
			want:    []string{"book"},
			without: []string{"user", "active_user"},
		},
		{
			name:  "cte",
			query: "WITH recent AS (SELECT id FROM book) SELECT * FROM re<caret>",
			want:  []string{"recent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, nil)

			out, _, err := execute(t, NewCompleteCommand(), "", tt.query)
			require.NoError(t, err)

			names := candidateNames(t, out)
			assert.Subset(t, names, tt.want)
			for _, n := range tt.without {
				assert.NotContains(t, names, n)
			}
		})
	}
}

func TestCompleteCommand_Markdown(t *testing.T) {
	useConfig(t, func(c *config.Config) { c.OutputFormat = "markdown" })

	out, _, err := execute(t, NewCompleteCommand(), "", "SELECT * FROM us<caret>")
	require.NoError(t, err)
	assert.Contains(t, out, "## table candidates (1)")
	assert.Contains(t, out, "| user ")
	testutil.AssertNoANSI(t, out)
}

func TestColumnsCommand(t *testing.T) {
	useConfig(t, nil)

	out, _, err := execute(t, NewColumnsCommand(), "",
		"SELECT u.*, b.title FROM user u JOIN book b ON b.user_id = u.id; UPDATE user SET name = 'x'; SELECT 1 + 1")
	require.NoError(t, err)

	var got []statementColumns
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Statement)
	var names []string
	for _, c := range got[0].Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "name", "email", "title"}, names)

	assert.Equal(t, 3, got[1].Statement)
	require.Len(t, got[1].Columns, 1)
	assert.Equal(t, "", got[1].Columns[0].Name)
	assert.Equal(t, "expression", got[1].Columns[0].Kind)
}

func TestColumnsCommand_Text(t *testing.T) {
	useConfig(t, func(c *config.Config) { c.OutputFormat = "markdown" })

	out, _, err := execute(t, NewColumnsCommand(), "", "SELECT 2 AS two")
	require.NoError(t, err)
	assert.Contains(t, out, "## Statement 1 (1 columns)")
	assert.Contains(t, out, "two")

	out, _, err = execute(t, NewColumnsCommand(), "", "DELETE FROM user")
	require.NoError(t, err)
	assert.Contains(t, out, "(no select statements)")
}
