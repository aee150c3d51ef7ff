// Package catalog persists schema snapshots in a local SQLite database so a
// schema fetched once from a live database can be resolved against offline.
//
// Snapshots are versioned per name: saving under an existing name adds a
// new version and keeps the old ones.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot matches a name and version.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrClosed is returned when the store is used before Open or after Close.
	ErrClosed = errors.New("catalog store not open")
)

// Store is a SQLite-backed snapshot store.
type Store struct {
	db   *sql.DB
	path string
}

// Snapshot describes one stored version.
type Snapshot struct {
	Name      string
	Version   int64
	Source    string
	Entities  int
	CreatedAt time.Time
}

// Open opens (creating if needed) the store at path. Use ":memory:" for a
// throwaway store. Migrate must run before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveSnapshot stores c as the next version of name and returns that version.
// source records where the schema came from, e.g. a DSN or file path.
func (s *Store) SaveSnapshot(ctx context.Context, name, source string, c *schema.Catalog) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	if name == "" {
		return 0, errors.New("snapshot name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE name = ?`, name,
	).Scan(&version); err != nil {
		return 0, fmt.Errorf("next snapshot version: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (name, version, source, created_at) VALUES (?, ?, ?, ?)`,
		name, version, source, time.Now().UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	entityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_entities (snapshot_id, position, name, is_view, uri, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare entity insert: %w", err)
	}
	defer func() { _ = entityStmt.Close() }()

	fieldStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_fields (snapshot_id, entity_position, position, name, type, uri, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare field insert: %w", err)
	}
	defer func() { _ = fieldStmt.Close() }()

	for i, e := range c.Entities() {
		loc := e.Location
		if _, err := entityStmt.ExecContext(ctx, id, i, e.Name, e.View, loc.URI, loc.Line, loc.Column); err != nil {
			return 0, fmt.Errorf("insert entity %s: %w", e.Name, err)
		}
		for j, f := range e.Fields {
			loc := f.Location
			if _, err := fieldStmt.ExecContext(ctx, id, i, j, f.Name, f.Type, loc.URI, loc.Line, loc.Column); err != nil {
				return 0, fmt.Errorf("insert field %s.%s: %w", e.Name, f.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return version, nil
}

// LoadSnapshot returns a stored schema. Version 0 means the latest.
func (s *Store) LoadSnapshot(ctx context.Context, name string, version int64) (*schema.Catalog, int64, error) {
	if s.db == nil {
		return nil, 0, ErrClosed
	}

	query := `SELECT id, version FROM snapshots WHERE name = ? AND version = ?`
	args := []any{name, version}
	if version == 0 {
		query = `SELECT id, version FROM snapshots WHERE name = ? ORDER BY version DESC LIMIT 1`
		args = args[:1]
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s", ErrSnapshotNotFound, describe(name, version))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get snapshot: %w", err)
	}

	entities, err := s.loadEntities(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if err := s.loadFields(ctx, id, entities); err != nil {
		return nil, 0, err
	}
	return schema.NewCatalog(entities...), version, nil
}

func (s *Store) loadEntities(ctx context.Context, id int64) ([]*schema.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, is_view, uri, line, col FROM snapshot_entities
		WHERE snapshot_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []*schema.Entity
	for rows.Next() {
		e := &schema.Entity{}
		if err := rows.Scan(&e.Name, &e.View, &e.Location.URI, &e.Location.Line, &e.Location.Column); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

func (s *Store) loadFields(ctx context.Context, id int64, entities []*schema.Entity) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_position, name, type, uri, line, col FROM snapshot_fields
		WHERE snapshot_id = ?
		ORDER BY entity_position, position
	`, id)
	if err != nil {
		return fmt.Errorf("query fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var pos int
		f := &schema.Field{}
		if err := rows.Scan(&pos, &f.Name, &f.Type, &f.Location.URI, &f.Location.Line, &f.Location.Column); err != nil {
			return fmt.Errorf("scan field: %w", err)
		}
		if pos < 0 || pos >= len(entities) {
			return fmt.Errorf("field %s belongs to missing entity %d", f.Name, pos)
		}
		entities[pos].Fields = append(entities[pos].Fields, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate fields: %w", err)
	}
	return nil
}

// ListSnapshots returns every stored version, newest first within a name.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.version, s.source, s.created_at,
			(SELECT COUNT(*) FROM snapshot_entities e WHERE e.snapshot_id = s.id)
		FROM snapshots s
		ORDER BY s.name, s.version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var created int64
		if err := rows.Scan(&snap.Name, &snap.Version, &snap.Source, &created, &snap.Entities); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshot removes every version of name and reports how many there were.
func (s *Store) DeleteSnapshot(ctx context.Context, name string) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := `SELECT id FROM snapshots WHERE name = ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_fields WHERE snapshot_id IN (`+ids+`)`, name); err != nil {
		return 0, fmt.Errorf("delete fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_entities WHERE snapshot_id IN (`+ids+`)`, name); err != nil {
		return 0, fmt.Errorf("delete entities: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

func describe(name string, version int64) string {
	if version == 0 {
		return name
	}
	return fmt.Sprintf("%s@%d", name, version)
}
