package store

import (
    "context"
    _ "embed"
    "fmt"
    "strings"

    "github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate applies the embedded schema. Every statement is idempotent, so it
// runs on each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
    for _, stmt := range strings.Split(schema, ";") {
        s := strings.TrimSpace(stmt)
        if s == "" {
            continue
        }
        if _, err := pool.Exec(ctx, s); err != nil {
            return fmt.Errorf("apply schema: %w", err)
        }
    }
    return nil
}
