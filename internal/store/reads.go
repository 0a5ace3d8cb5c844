package store

import (
    "context"
    "time"
)

const (
    DefaultRecentLimit = 10
    MaxRecentLimit     = 100
)

func (s *Store) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
    return getTransaction(ctx, s.pool, id)
}

// RecentTransactions lists a user's transactions newest first by created_at.
// Backdated rows sort by their supplied date, not by insertion time.
func (s *Store) RecentTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
    return s.listTransactions(ctx, `
        SELECT `+transactionColumns+`
        FROM transactions
        WHERE account_id IN (SELECT id FROM accounts WHERE user_id = $1)
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `, userID, clampLimit(limit))
}

func (s *Store) AccountTransactions(ctx context.Context, accountID int64, limit int) ([]Transaction, error) {
    return s.listTransactions(ctx, `
        SELECT `+transactionColumns+`
        FROM transactions
        WHERE account_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `, accountID, clampLimit(limit))
}

func (s *Store) listTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
    rows, err := s.pool.Query(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []Transaction{}
    for rows.Next() {
        t, err := scanTransaction(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// Dashboard aggregates the primary account's completed activity per month
// since the start of the month `months` back. Statistics are computed on
// every call, so a backdated row changes the figures of the month it is
// dated in from then on.
func (s *Store) Dashboard(ctx context.Context, userID int64, months int, now time.Time) (Dashboard, error) {
    acc, err := primaryAccount(ctx, s.pool, userID)
    if err != nil {
        return Dashboard{}, err
    }
    if months <= 0 {
        months = 12
    }
    now = now.UTC()
    since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

    rows, err := s.pool.Query(ctx, `
        SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS month,
               COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0)::bigint,
               COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)::bigint
        FROM transactions
        WHERE account_id = $1
          AND status = $2
          AND type <> $3
          AND created_at >= $4
        GROUP BY 1
        ORDER BY 1
    `, acc.ID, StatusCompleted, TypeCurrencySwap, since)
    if err != nil {
        return Dashboard{}, err
    }
    defer rows.Close()

    d := Dashboard{Account: acc, Monthly: []MonthlyStat{}}
    for rows.Next() {
        var m MonthlyStat
        if err := rows.Scan(&m.Month, &m.Deposits, &m.Expenses); err != nil {
            return Dashboard{}, err
        }
        m.Month = time.Date(m.Month.Year(), m.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
        d.Monthly = append(d.Monthly, m)
    }
    if err := rows.Err(); err != nil {
        return Dashboard{}, err
    }

    d.Recent, err = s.AccountTransactions(ctx, acc.ID, DefaultRecentLimit)
    if err != nil {
        return Dashboard{}, err
    }
    return d, nil
}

func clampLimit(limit int) int {
    if limit <= 0 {
        return DefaultRecentLimit
    }
    if limit > MaxRecentLimit {
        return MaxRecentLimit
    }
    return limit
}
