package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Spok95/school-portal/internal/metrics"
)

// Open открывает пул pgx через database/sql и проверяет соединение.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	database.SetMaxOpenConns(20)
	database.SetMaxIdleConns(10)
	database.SetConnMaxIdleTime(5 * time.Minute)

	if err := Ping(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return database, nil
}

// Ping проверяет БД и пишет латентность в метрики.
func Ping(ctx context.Context, database *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := database.PingContext(ctx); err != nil {
		return err
	}
	metrics.ObserveDBPing(time.Since(t0))
	return nil
}
