package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlscope/internal/cli/config"
	"github.com/leapstack-labs/sqlscope/internal/cli/testutil"
)

func TestCheckCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	good := filepath.Join(dir, "queries", "good.sql")
	bad := filepath.Join(dir, "queries", "bad.sql")

	broken := filepath.Join(dir, "queries", "broken.sql")
	require.NoError(t, os.WriteFile(broken, []byte("SELECT id FROM"), 0o644))

	tests := []struct {
		name  string
		files []string
		want  []Diagnostic
	}{
		{
			name:  "clean",
			files: []string{good},
		},
		{
			name:  "unresolved column",
			files: []string{good, bad},
			want: []Diagnostic{{
				File: bad, Line: 2, Column: 10, Kind: "column", Name: "nickname",
				Message: `unresolved column "nickname"`,
			}},
		},
		{
			name:  "syntax error",
			files: []string{broken},
			want:  []Diagnostic{{File: broken, Line: 1, Kind: "syntax"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, func(c *config.Config) { c.Schema = filepath.Join(dir, "schema.yaml") })

			out, _, err := execute(t, NewCheckCommand(), "", tt.files...)
			if len(tt.want) == 0 {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrProblemsFound)
			}

			var got []Diagnostic
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.File, got[i].File)
				assert.Equal(t, want.Line, got[i].Line)
				assert.Equal(t, want.Kind, got[i].Kind)
				if want.Name != "" {
					assert.Equal(t, want, got[i])
				}
			}
		})
	}
}

func TestCheckFiles_Order(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.sql", "b.sql", "c.sql", "d.sql"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("SELECT missing FROM user"), 0o644))
		files = append(files, path)
	}

	tr := testutil.NewTestRendererJSON()
	cmdCtx := newTestContext(t, tr)

	diags, err := checkFiles(t.Context(), cmdCtx, files, 2)
	require.NoError(t, err)
	require.Len(t, diags, len(files))
	for i, d := range diags {
		assert.Equal(t, files[i], d.File)
		assert.Equal(t, "missing", d.Name)
	}
}

func TestCheckFiles_MissingFile(t *testing.T) {
	cmdCtx := newTestContext(t, testutil.NewTestRendererJSON())

	_, err := checkFiles(t.Context(), cmdCtx, []string{filepath.Join(t.TempDir(), "nope.sql")}, 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRenderDiagnostics(t *testing.T) {
	diags := []Diagnostic{{File: "q.sql", Line: 3, Column: 7, Kind: "table", Name: "usr", Message: `unresolved table "usr"`}}

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		renderDiagnostics(tr.Renderer, []string{"q.sql"}, diags)
		assert.Equal(t, "q.sql:3:7: unresolved table \"usr\"\n", tr.Output())
	})

	t.Run("text clean", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		renderDiagnostics(tr.Renderer, []string{"q.sql", "r.sql"}, nil)
		assert.Equal(t, "✓ 2 files, no problems\n", tr.Output())
	})

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		renderDiagnostics(tr.Renderer, []string{"q.sql"}, diags)
		assert.Contains(t, tr.Output(), "## Check (1 files, 1 problems)")
		assert.Contains(t, tr.Output(), "| q.sql | 3 | 7 | table |")
		testutil.AssertValidMarkdown(t, tr.Output())
	})

	t.Run("json empty", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		renderDiagnostics(tr.Renderer, nil, nil)
		assert.Equal(t, "[]\n", tr.Output())
	})
}
