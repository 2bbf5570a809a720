package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate creates schema when it is missing and applies the embedded migrations in
// file name order (fs.Glob sorts). Every migration is idempotent, so Migrate runs on each start.
// Tables are created unqualified and land in the first schema of the connection's
// search_path.
func Migrate(ctx context.Context, exec pgExecutor, schema string) ([]string, error) {
	schema = strings.TrimSpace(schema)
	if schema != "" {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create schema %s: %w", schema, err)
		}
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	applied := make([]string, 0, len(names))
	for _, name := range names {
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := exec.Exec(ctx, string(body)); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		applied = append(applied, strings.TrimPrefix(name, "migrations/"))
	}
	return applied, nil
}
