package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlscope/internal/catalog"
	"github.com/leapstack-labs/sqlscope/internal/cli/output"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect schemas and manage stored snapshots",
		Long: `Inspect the configured schema and manage the local snapshot catalog.

A snapshot is a versioned copy of a schema kept in a SQLite file, so a
database only needs to be introspected once. Use a snapshot as a schema
source with catalog:<file>#<name>[@version].`,
	}

	cmd.AddCommand(newSchemaShowCommand())
	cmd.AddCommand(newSchemaImportCommand())
	cmd.AddCommand(newSchemaSnapshotsCommand())
	cmd.AddCommand(newSchemaDeleteCommand())

	return cmd
}

// SchemaShowOptions holds options for schema show.
type SchemaShowOptions struct {
	YAML bool
}

func newSchemaShowCommand() *cobra.Command {
	opts := &SchemaShowOptions{}
	cmd := &cobra.Command{
		Use:   "show [entity]",
		Short: "List entities, or the fields of one entity",
		Example: `  sqlscope schema show
  sqlscope schema show user
  sqlscope schema show --schema postgres://localhost/app --yaml > schema.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, _ := cmdCtx.Provider.Schema()
			if opts.YAML {
				return writeSchemaYAML(cmdCtx.Renderer, c, args)
			}
			if len(args) == 1 {
				return showEntity(cmdCtx.Renderer, c, args[0])
			}
			return showEntities(cmdCtx.Renderer, c)
		},
	}

	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "Print the schema as a YAML schema file")

	return cmd
}

func writeSchemaYAML(r *output.Renderer, c *schema.Catalog, args []string) error {
	if len(args) == 1 {
		e, ok := c.Entity(args[0])
		if !ok {
			return fmt.Errorf("unknown entity %q", args[0])
		}
		c = schema.NewCatalog(e)
	}
	data, err := schema.Marshal(c)
	if err != nil {
		return err
	}
	_, err = r.Writer().Write(data)
	return err
}

func showEntities(r *output.Renderer, c *schema.Catalog) error {
	entities := c.Entities()
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entities)
	}
	r.Header(2, fmt.Sprintf("Entities (%d)", len(entities)))
	if len(entities) == 0 {
		r.Muted("(none)")
		return nil
	}
	rows := make([][]string, len(entities))
	for i, e := range entities {
		rows[i] = []string{e.Name, entityKind(e), strconv.Itoa(len(e.Fields)), e.Location.String()}
	}
	r.Table([]string{"Name", "Kind", "Fields", "Location"}, rows)
	return nil
}

func showEntity(r *output.Renderer, c *schema.Catalog, name string) error {
	e, ok := c.Entity(name)
	if !ok {
		return fmt.Errorf("unknown entity %q", name)
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(e)
	}
	r.Header(2, fmt.Sprintf("%s %s (%d fields)", entityKind(e), e.Name, len(e.Fields)))
	rows := make([][]string, len(e.Fields))
	for i, f := range e.Fields {
		rows[i] = []string{f.Name, f.Type, f.Location.String()}
	}
	r.Table([]string{"Field", "Type", "Location"}, rows)
	return nil
}

func entityKind(e *schema.Entity) string {
	if e.View {
		return "view"
	}
	return "table"
}

// SchemaImportOptions holds options for schema import.
type SchemaImportOptions struct {
	Name string
}

func newSchemaImportCommand() *cobra.Command {
	opts := &SchemaImportOptions{}
	cmd := &cobra.Command{
		Use:   "import [source]",
		Short: "Store a schema as a new snapshot version",
		Long: `Load a schema from a YAML file or a database DSN and store it in the
snapshot catalog as the next version of --name. Without a source argument
the configured schema is imported.`,
		Example: `  sqlscope schema import postgres://localhost/app --name app
  sqlscope schema import schema.yaml --name app --catalog ./snapshots.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaImport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Snapshot name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runSchemaImport(cmd *cobra.Command, args []string, opts *SchemaImportOptions) error {
	cmdCtx := NewCommandContextWithoutSchema(cmd)
	source := cmdCtx.Cfg.Schema
	if len(args) == 1 {
		source = args[0]
	}
	if source == "" {
		return fmt.Errorf("no schema source: pass one or set schema in the config")
	}
	if err := cmdCtx.LoadSchema(cmd.Context(), source); err != nil {
		return err
	}
	c, _ := cmdCtx.Provider.Schema()

	store, err := openCatalog(cmd, cmdCtx, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	version, err := store.SaveSnapshot(cmd.Context(), opts.Name, source, c)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Info("snapshot saved", "name", opts.Name, "version", version, "catalog", store.Path())

	if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
		return cmdCtx.Renderer.JSON(snapshotInfo{
			Name:     opts.Name,
			Version:  version,
			Source:   source,
			Entities: c.Len(),
		})
	}
	cmdCtx.Renderer.Success(fmt.Sprintf("Saved %s@%d (%d entities)", opts.Name, version, c.Len()))
	return nil
}

func newSchemaSnapshotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"ls"},
		Short:   "List stored snapshots",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutSchema(cmd)
			store, err := openCatalog(cmd, cmdCtx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snaps, err := store.ListSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			return renderSnapshots(cmdCtx.Renderer, snaps)
		},
	}
}

// snapshotInfo is the printable form of a catalog snapshot.
type snapshotInfo struct {
	Name      string `json:"name"`
	Version   int64  `json:"version"`
	Source    string `json:"source"`
	Entities  int    `json:"entities"`
	CreatedAt string `json:"created_at,omitempty"`
}

func renderSnapshots(r *output.Renderer, snaps []catalog.Snapshot) error {
	infos := make([]snapshotInfo, len(snaps))
	for i, s := range snaps {
		infos[i] = snapshotInfo{
			Name:      s.Name,
			Version:   s.Version,
			Source:    s.Source,
			Entities:  s.Entities,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		}
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	r.Header(2, fmt.Sprintf("Snapshots (%d)", len(infos)))
	if len(infos) == 0 {
		r.Muted("(none)")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, s := range infos {
		rows[i] = []string{s.Name, strconv.FormatInt(s.Version, 10), strconv.Itoa(s.Entities), s.Source, s.CreatedAt}
	}
	r.Table([]string{"Name", "Version", "Entities", "Source", "Created"}, rows)
	return nil
}

func newSchemaDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete every version of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutSchema(cmd)
			store, err := openCatalog(cmd, cmdCtx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.DeleteSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", catalog.ErrSnapshotNotFound, args[0])
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Deleted %d versions of %s", n, args[0]))
			return nil
		},
	}
}

// openCatalog opens and migrates the configured snapshot catalog. create
// makes the parent directory when it is missing.
func openCatalog(cmd *cobra.Command, cmdCtx *CommandContext, create bool) (*catalog.Store, error) {
	path := strings.TrimSpace(cmdCtx.Cfg.Catalog)
	if path == "" {
		return nil, fmt.Errorf("no catalog configured")
	}
	if path != ":memory:" {
		if create {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		} else if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	}

	store, err := catalog.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
