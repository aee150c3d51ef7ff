package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlscope/internal/catalog"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
	"github.com/leapstack-labs/sqlscope/pkg/schema/introspect"
)

// CatalogPrefix introduces a stored snapshot: catalog:<db>#<name>[@version].
const CatalogPrefix = "catalog:"

// LoadSchema turns a schema source into a catalog. A source is one of
//
//	schema.yaml                    YAML file
//	postgres://... duckdb:... sqlite:...   live database
//	catalog:snapshots.db#app@3     stored snapshot (latest without @version)
//
// An empty source yields an empty catalog.
func LoadSchema(ctx context.Context, source string, logger *slog.Logger) (*schema.Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case source == "":
		return schema.NewCatalog(), nil

	case strings.HasPrefix(source, CatalogPrefix):
		path, name, version, err := ParseCatalogSource(source)
		if err != nil {
			return nil, err
		}
		store, err := catalog.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		c, v, err := store.LoadSnapshot(ctx, name, version)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded schema snapshot", "path", path, "name", name, "version", v)
		return c, nil

	case introspect.IsDSN(source):
		return introspect.LoadDSN(ctx, source, introspect.WithLogger(logger))

	case strings.Contains(source, "://"):
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownSource, source)
	}

	return schema.LoadFile(source)
}

// ParseCatalogSource splits catalog:<db>#<name>[@version]. Version 0 means
// the latest.
func ParseCatalogSource(source string) (path, name string, version int64, err error) {
	rest, ok := strings.CutPrefix(source, CatalogPrefix)
	if !ok {
		return "", "", 0, fmt.Errorf("%w: %q", schema.ErrUnknownSource, source)
	}
	path, name, ok = strings.Cut(rest, "#")
	if !ok || path == "" || name == "" {
		return "", "", 0, fmt.Errorf("%w: want catalog:<db>#<name>, got %q", schema.ErrUnknownSource, source)
	}
	if n, v, found := strings.Cut(name, "@"); found {
		version, err = strconv.ParseInt(v, 10, 64)
		if err != nil || version < 1 || n == "" {
			return "", "", 0, fmt.Errorf("%w: bad snapshot version in %q", schema.ErrUnknownSource, source)
		}
		name = n
	}
	return path, name, version, nil
}
