package postgres

import (
	"context"
	"errors"

	"github.com/uptrace/bun/migrate"

	pgmigrations "trivia-quiz/internal/infra/postgres/migrations"
)

// Migrate applies pending migrations and returns the applied group.
func Migrate(ctx context.Context, dsn string) (*migrate.MigrationGroup, error) {
	if dsn == "" {
		return nil, errors.New("postgres url not configured")
	}
	db := OpenDB(dsn)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}
	return migrator.Migrate(ctx)
}
