package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"bounty_hunter/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type migration struct {
	Name string
	SQL  string
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		out = append(out, migration{Name: name, SQL: string(body)})
	}
	return out, nil
}

// Migrate applies the embedded migrations that have not been recorded in
// schema_migrations yet. Each one runs in its own transaction.
func (r *Repository) Migrate(ctx context.Context) (int, error) {
	log := logger.Logger()

	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		return 0, err
	}

	var applied []string
	if err := r.db.SelectContext(ctx, &applied, "SELECT name FROM schema_migrations"); err != nil {
		return 0, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	count := 0
	for _, m := range migrations {
		if done[m.Name] {
			continue
		}

		err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			query, args, err := squirrel.
				Insert("schema_migrations").
				Columns("name").
				Values(m.Name).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, query, args...)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("failed to apply %s: %w", m.Name, err)
		}

		log.Info("Applied migration", zap.String("name", m.Name))
		count++
	}

	return count, nil
}
