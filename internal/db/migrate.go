package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/Spok95/school-portal/internal/db/migrations"
)

// Migrate накатывает встроенные миграции goose.
func Migrate(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, database, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
