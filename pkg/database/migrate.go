package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	schema "github.com/Obel-arg/catch-influencer-sub003/pkg/database/sql"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

const (
	PostgresSchema   = "postgres"
	ClickHouseSchema = "clickhouse"
)

// ApplySchema runs the embedded .sql files under dir in name order. Files
// are split on ';' so drivers without multi-statement support work too.
// Every statement is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB, dir string, logger logging.Logger) error {
	return applySchemaFS(ctx, db, schema.Content, dir, logger)
}

func applySchemaFS(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger logging.Logger) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schema dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		statements := SplitStatements(string(raw))
		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
		logger.WithFields(logging.Fields{
			"schema":     dir,
			"file":       name,
			"statements": len(statements),
		}).Info("Applied schema file")
	}
	return nil
}

// SplitStatements splits a script on ';' and drops blank statements.
func SplitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
