package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/udisondev/realmd/internal/db/migrations"
)

// authTables очищаются между тестами. realmlist и build_info остаются с
// данными seed миграции.
var authTables = []string{
	"TRUNCATE account CASCADE",
	"TRUNCATE ip_banned",
	"TRUNCATE ip2nation",
	"TRUNCATE logs_ip_actions",
}

// TestDB — мигрированная база в PostgreSQL testcontainer.
type TestDB struct {
	Pool *pgxpool.Pool
	DSN  string
}

// SetupTestDB поднимает PostgreSQL 16 через модуль postgres, применяет
// миграции и регистрирует остановку контейнера в tb.Cleanup.
func SetupTestDB(tb testing.TB) *TestDB {
	tb.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("realmd_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Fatalf("starting postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("getting connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		tb.Fatalf("connecting to test db: %v", err)
	}
	tb.Cleanup(pool.Close)

	if err := migrations.Up(ctx, pool); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}

	return &TestDB{Pool: pool, DSN: dsn}
}

// Reset удаляет аккаунты, баны и журнал входов.
func (d *TestDB) Reset(tb testing.TB) {
	tb.Helper()
	for _, q := range authTables {
		if _, err := d.Pool.Exec(context.Background(), q); err != nil {
			tb.Fatalf("cleanup %q: %v", q, err)
		}
	}
}
