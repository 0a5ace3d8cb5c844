package store

import (
    "context"
    "errors"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"
)

const (
    codeUniqueViolation     = "23505"
    codeForeignKeyViolation = "23503"
    codeCheckViolation      = "23514"
)

type Store struct {
    pool          *pgxpool.Pool
    transferLimit int64
}

type Option func(*Store)

// WithTransferLimit caps a single user transfer, in minor units. Zero means no cap.
func WithTransferLimit(limit int64) Option {
    return func(s *Store) {
        s.transferLimit = limit
    }
}

func New(pool *pgxpool.Pool, opts ...Option) *Store {
    s := &Store{pool: pool}
    for _, opt := range opts {
        opt(s)
    }
    return s
}

func (s *Store) Ping(ctx context.Context) error {
    return s.pool.Ping(ctx)
}

type querier interface {
    Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
    QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
    tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return err
    }
    defer func() {
        _ = tx.Rollback(ctx)
    }()

    if err := fn(tx); err != nil {
        return err
    }
    return tx.Commit(ctx)
}

const accountColumns = `id, account_number, user_id, currency, balance, btc_balance, status, is_primary, COALESCE(hold_message, ''), created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
    var a Account
    err := row.Scan(
        &a.ID,
        &a.AccountNumber,
        &a.UserID,
        &a.Currency,
        &a.Balance,
        &a.BTCBalance,
        &a.Status,
        &a.IsPrimary,
        &a.HoldMessage,
        &a.CreatedAt,
        &a.UpdatedAt,
    )
    return a, err
}

func (s *Store) GetAccount(ctx context.Context, id int64) (Account, error) {
    return getAccount(ctx, s.pool, id)
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (Account, error) {
    return accountByNumber(ctx, s.pool, number)
}

func (s *Store) PrimaryAccount(ctx context.Context, userID int64) (Account, error) {
    return primaryAccount(ctx, s.pool, userID)
}

func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]Account, error) {
    rows, err := s.pool.Query(ctx, `
        SELECT `+accountColumns+`
        FROM accounts
        WHERE user_id = $1
        ORDER BY is_primary DESC, id
    `, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := []Account{}
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
    var u User
    err := s.pool.QueryRow(ctx, `
        SELECT id, email, name, role, created_at
        FROM users
        WHERE id = $1
    `, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return User{}, ErrUserNotFound
        }
        return User{}, err
    }
    return u, nil
}

// OpenAccount adds an account for an existing user. The first account a
// user owns becomes primary.
func (s *Store) OpenAccount(ctx context.Context, userID int64, currency string) (Account, error) {
    var acc Account
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        var locked int64
        if err := tx.QueryRow(ctx, "SELECT id FROM users WHERE id = $1 FOR UPDATE", userID).Scan(&locked); err != nil {
            if errors.Is(err, pgx.ErrNoRows) {
                return ErrUserNotFound
            }
            return err
        }
        var hasPrimary bool
        if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE user_id = $1 AND is_primary)", userID).Scan(&hasPrimary); err != nil {
            return err
        }
        var err error
        acc, err = createAccount(ctx, tx, userID, currency, !hasPrimary)
        return err
    })
    if err != nil {
        return Account{}, err
    }
    return acc, nil
}

func getAccount(ctx context.Context, q querier, id int64) (Account, error) {
    a, err := scanAccount(q.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return Account{}, ErrAccountNotFound
        }
        return Account{}, err
    }
    return a, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, id int64) (Account, error) {
    a, err := scanAccount(tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1 FOR UPDATE", id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return Account{}, ErrAccountNotFound
        }
        return Account{}, err
    }
    return a, nil
}

// lockAccounts takes row locks in ascending id order so two transfers
// running in opposite directions cannot deadlock.
func lockAccounts(ctx context.Context, tx pgx.Tx, a, b int64) error {
    first, second := a, b
    if first > second {
        first, second = second, first
    }
    if _, err := lockAccount(ctx, tx, first); err != nil {
        return err
    }
    _, err := lockAccount(ctx, tx, second)
    return err
}

func accountByNumber(ctx context.Context, q querier, number string) (Account, error) {
    a, err := scanAccount(q.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE account_number = $1", number))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return Account{}, ErrAccountNotFound
        }
        return Account{}, err
    }
    return a, nil
}

func primaryAccount(ctx context.Context, q querier, userID int64) (Account, error) {
    a, err := scanAccount(q.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE user_id = $1 AND is_primary", userID))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return Account{}, ErrNoPrimaryAccount
        }
        return Account{}, err
    }
    return a, nil
}

func userName(ctx context.Context, q querier, userID int64) (string, error) {
    var name string
    err := q.QueryRow(ctx, "SELECT name FROM users WHERE id = $1", userID).Scan(&name)
    if errors.Is(err, pgx.ErrNoRows) {
        return "", ErrUserNotFound
    }
    return name, err
}

func createAccount(ctx context.Context, tx pgx.Tx, userID int64, currency string, primary bool) (Account, error) {
    for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
        sp, err := tx.Begin(ctx)
        if err != nil {
            return Account{}, err
        }
        a, err := scanAccount(sp.QueryRow(ctx, `
            INSERT INTO accounts (account_number, user_id, currency, is_primary)
            VALUES ($1, $2, $3, $4)
            RETURNING `+accountColumns,
            newAccountNumber(), userID, currency, primary,
        ))
        if err == nil {
            return a, sp.Commit(ctx)
        }
        _ = sp.Rollback(ctx)
        if !isConstraintViolation(err, codeUniqueViolation, "accounts_account_number_key") {
            return Account{}, err
        }
    }
    return Account{}, errGenerateExhausted
}

func isUniqueViolation(err error) bool {
    return isConstraintViolation(err, codeUniqueViolation, "")
}

func isConstraintViolation(err error, code, constraint string) bool {
    var pgErr *pgconn.PgError
    if !errors.As(err, &pgErr) {
        return false
    }
    if pgErr.Code != code {
        return false
    }
    return constraint == "" || pgErr.ConstraintName == constraint
}
