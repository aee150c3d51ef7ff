package introspect

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlscope/internal/testutil"
)

var columns = []string{"table_schema", "table_name", "column_name", "data_type", "table_type"}

func TestLoad_InformationSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").WillReturnRows(
		sqlmock.NewRows(columns).
			AddRow("public", "users", "id", "integer", "BASE TABLE").
			AddRow("public", "users", "email", "text", "BASE TABLE").
			AddRow("public", "active_users", "id", "integer", "VIEW").
			AddRow("staging", "users", "legacy_id", "integer", "BASE TABLE"),
	)

	catalog, err := Load(context.Background(), db, Postgres, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"active_users", "users"}, catalog.Names())

	users, ok := catalog.Entity("USERS")
	require.True(t, ok)
	assert.False(t, users.View)
	assert.Equal(t, "postgres:public.users", users.Location.URI)
	require.Len(t, users.Fields, 2, "the staging table is shadowed")
	assert.Equal(t, "email", users.Fields[1].Name)
	assert.Equal(t, "text", users.Fields[1].Type)

	view, ok := catalog.Entity("active_users")
	require.True(t, ok)
	assert.True(t, view.View)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery("information_schema").WillReturnError(assert.AnError)

		_, err = Load(context.Background(), db, DuckDB)
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to query column metadata")
	})

	t.Run("row error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery("information_schema").WillReturnRows(
			sqlmock.NewRows(columns).
				AddRow("main", "t", "a", "INTEGER", "BASE TABLE").
				RowError(0, assert.AnError),
		)

		_, err = Load(context.Background(), db, DuckDB)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("unknown flavor", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		_, err = Load(context.Background(), db, Flavor("oracle"))
		assert.ErrorContains(t, err, "unknown database flavor")
	})
}

func TestLoad_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`
		CREATE TABLE user (id INTEGER PRIMARY KEY, name TEXT, email TEXT);
		CREATE TABLE book (id INTEGER PRIMARY KEY, title TEXT, user_id INTEGER REFERENCES user(id));
		CREATE VIEW active_user AS SELECT id, name FROM user;
	`)
	require.NoError(t, err)

	catalog, err := Load(context.Background(), db, SQLite)
	require.NoError(t, err)
	assert.Equal(t, []string{"active_user", "book", "user"}, catalog.Names())

	user, ok := catalog.Entity("user")
	require.True(t, ok)
	require.Len(t, user.Fields, 3)
	assert.Equal(t, "id", user.Fields[0].Name)
	assert.Equal(t, "INTEGER", user.Fields[0].Type)

	view, ok := catalog.Entity("active_user")
	require.True(t, ok)
	assert.True(t, view.View)
	assert.Len(t, view.Fields, 2)

	// Open by DSN reaches the same database.
	loaded, err := LoadDSN(context.Background(), "sqlite:"+path)
	require.NoError(t, err)
	assert.Equal(t, catalog.Names(), loaded.Names())
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		driver string
		source string
		flavor Flavor
		err    bool
	}{
		{dsn: "postgres://u@localhost/app", driver: "pgx", source: "postgres://u@localhost/app", flavor: Postgres},
		{dsn: "postgresql://u@localhost/app", driver: "pgx", source: "postgresql://u@localhost/app", flavor: Postgres},
		{dsn: "duckdb:warehouse.db", driver: "duckdb", source: "warehouse.db", flavor: DuckDB},
		{dsn: "duckdb:", driver: "duckdb", source: "", flavor: DuckDB},
		{dsn: "sqlite:app.db", driver: "sqlite", source: "app.db", flavor: SQLite},
		{dsn: "sqlite:", err: true},
		{dsn: "schema.yaml", err: true},
		{dsn: "mysql://localhost", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, source, flavor, err := ParseDSN(tt.dsn)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnsupportedDSN)
				assert.False(t, IsDSN(tt.dsn))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.flavor, flavor)
			assert.True(t, IsDSN(tt.dsn))
		})
	}
}
