// Package introspect reads the tables, views and columns of a live database
// into a schema catalog, so queries can be resolved against the real thing
// instead of a hand-written schema file.
package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"   // postgres driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver

	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// Flavor names the database family, which decides the catalog query.
type Flavor string

// Supported flavors.
const (
	Postgres Flavor = "postgres"
	DuckDB   Flavor = "duckdb"
	SQLite   Flavor = "sqlite"
)

// ErrUnsupportedDSN is returned for a DSN whose scheme names no known driver.
var ErrUnsupportedDSN = errors.New("unsupported database DSN")

// informationSchemaQuery lists columns with the kind of their relation.
// Postgres and DuckDB both implement information_schema.
const informationSchemaQuery = `
	SELECT
		c.table_schema,
		c.table_name,
		c.column_name,
		c.data_type,
		t.table_type
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE c.table_schema NOT IN ('information_schema', 'pg_catalog')
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// sqliteQuery does the same for SQLite using the table-valued pragma.
const sqliteQuery = `
	SELECT
		'main',
		m.name,
		p.name,
		p.type,
		m.type
	FROM sqlite_master m
	JOIN pragma_table_info(m.name) p
	WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
	ORDER BY m.name, p.cid
`

type options struct {
	logger *slog.Logger
}

// Option configures Load.
type Option func(*options)

// WithLogger sets the logger used for debug events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Load reads every user table and view of db. Entities are located at
// "<flavor>:<schema>.<table>". When two schemas hold a relation of the same
// name the first one in schema order wins, since queries name tables
// without their schema.
func Load(ctx context.Context, db *sql.DB, flavor Flavor, opts ...Option) (*schema.Catalog, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	var query string
	switch flavor {
	case Postgres, DuckDB:
		query = informationSchemaQuery
	case SQLite:
		query = sqliteQuery
	default:
		return nil, fmt.Errorf("unknown database flavor %q", flavor)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	catalog := schema.NewCatalog()
	owner := make(map[string]string) // folded table name -> schema that owns it
	var current *schema.Entity
	var currentKey string

	for rows.Next() {
		var tableSchema, table, column, dataType, kind string
		if err := rows.Scan(&tableSchema, &table, &column, &dataType, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}

		key := schema.FoldName(table)
		if s, ok := owner[key]; ok && s != tableSchema {
			o.logger.Debug("skipping shadowed relation",
				slog.String("schema", tableSchema), slog.String("table", table), slog.String("owner", s))
			continue
		}

		if current == nil || currentKey != tableSchema+"."+table {
			current = &schema.Entity{
				Name:     table,
				View:     isView(kind),
				Location: schema.Location{URI: fmt.Sprintf("%s:%s.%s", flavor, tableSchema, table)},
			}
			currentKey = tableSchema + "." + table
			owner[key] = tableSchema
			catalog.Add(current)
		}
		current.Fields = append(current.Fields, &schema.Field{
			Name:     column,
			Type:     dataType,
			Location: current.Location,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	o.logger.Debug("loaded database schema",
		slog.String("flavor", string(flavor)), slog.Int("entities", catalog.Len()))
	return catalog, nil
}

func isView(kind string) bool {
	return strings.EqualFold(kind, "VIEW")
}

// ParseDSN maps a DSN to the database/sql driver name, the driver's data
// source and the flavor:
//
//	postgres://user@host/db   pgx
//	postgresql://...          pgx
//	duckdb:path/to.db         duckdb (duckdb: alone is in-memory)
//	sqlite:path/to.db         sqlite
func ParseDSN(dsn string) (driver, source string, flavor Flavor, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, Postgres, nil
	case strings.HasPrefix(dsn, "duckdb:"):
		return "duckdb", strings.TrimPrefix(dsn, "duckdb:"), DuckDB, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if path == "" {
			return "", "", "", fmt.Errorf("%w: sqlite DSN without a path", ErrUnsupportedDSN)
		}
		return "sqlite", path, SQLite, nil
	}
	return "", "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
}

// IsDSN reports whether s looks like a database DSN rather than a file path.
func IsDSN(s string) bool {
	_, _, _, err := ParseDSN(s)
	return err == nil
}

// Open connects to the database a DSN names and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, Flavor, error) {
	driver, source, flavor, err := ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s connection: %w", flavor, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping %s: %w", flavor, err)
	}
	return db, flavor, nil
}

// LoadDSN opens dsn, loads its schema and closes the connection.
func LoadDSN(ctx context.Context, dsn string, opts ...Option) (*schema.Catalog, error) {
	db, flavor, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return Load(ctx, db, flavor, opts...)
}
