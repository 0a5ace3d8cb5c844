// Package storetest opens an isolated, migrated database for tests that need
// Postgres. Tests skip when DATABASE_URL is unset.
package storetest

import (
    "context"
    "os"
    "testing"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"

    "ledger.hh/internal/store"
)

// Open returns a pool whose search_path is the given schema, so packages
// running in parallel do not truncate each other's tables. The schema is
// migrated and emptied before Open returns.
func Open(t *testing.T, schema string) *pgxpool.Pool {
    t.Helper()

    dbURL := os.Getenv("DATABASE_URL")
    if dbURL == "" {
        t.Skip("DATABASE_URL is not set")
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()

    admin, err := pgx.Connect(ctx, dbURL)
    if err != nil {
        t.Fatalf("db connection: %v", err)
    }
    _, err = admin.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize())
    admin.Close(ctx)
    if err != nil {
        t.Fatalf("create schema: %v", err)
    }

    cfg, err := pgxpool.ParseConfig(dbURL)
    if err != nil {
        t.Fatalf("parse database url: %v", err)
    }
    cfg.ConnConfig.RuntimeParams["search_path"] = schema
    cfg.MaxConns = 16

    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil {
        t.Fatalf("db pool: %v", err)
    }
    t.Cleanup(pool.Close)

    if err := store.Migrate(ctx, pool); err != nil {
        t.Fatalf("migrate: %v", err)
    }
    Reset(t, pool)
    return pool
}

// Reset empties every table and restarts the id sequences.
func Reset(t *testing.T, pool *pgxpool.Pool) {
    t.Helper()

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    if _, err := pool.Exec(ctx, "TRUNCATE idempotency_keys, transactions, accounts, users RESTART IDENTITY CASCADE"); err != nil {
        t.Fatalf("reset db: %v", err)
    }
}

// Balance reads an account's fiat balance directly.
func Balance(t *testing.T, pool *pgxpool.Pool, accountID int64) int64 {
    t.Helper()

    var balance int64
    err := pool.QueryRow(context.Background(), "SELECT balance FROM accounts WHERE id = $1", accountID).Scan(&balance)
    if err != nil {
        t.Fatalf("get balance: %v", err)
    }
    return balance
}

// LedgerSum returns the row count and the sum of completed fiat amounts
// recorded against an account.
func LedgerSum(t *testing.T, pool *pgxpool.Pool, accountID int64) (int, int64) {
    t.Helper()

    var (
        count int
        sum   int64
    )
    err := pool.QueryRow(context.Background(), `
        SELECT COUNT(*), COALESCE(SUM(amount), 0)::bigint
        FROM transactions
        WHERE account_id = $1 AND status = 'completed'
    `, accountID).Scan(&count, &sum)
    if err != nil {
        t.Fatalf("ledger summary: %v", err)
    }
    return count, sum
}
