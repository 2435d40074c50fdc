// Package migrations embeds the goose SQL migrations of the auth database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// FS holds the *.sql migrations.
//
//go:embed *.sql
var FS embed.FS

// Apply runs all pending migrations on db.
func Apply(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	return nil
}

// Up applies migrations through an existing pgx pool.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	// goose требует *sql.DB, получаем его из pgxpool
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	return Apply(ctx, sqlDB)
}
