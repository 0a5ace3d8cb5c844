package store

import (
    "context"
    "errors"
    "math"
    "time"

    "github.com/jackc/pgx/v5"
)

const transactionColumns = `id, reference, account_id, type, amount, btc_amount, currency, status,
    balance_after, btc_balance_after, from_account, to_account, description, metadata,
    COALESCE(transfer_group, ''), COALESCE(proof, ''), created_at, inserted_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
    var t Transaction
    err := row.Scan(
        &t.ID,
        &t.Reference,
        &t.AccountID,
        &t.Type,
        &t.Amount,
        &t.BTCAmount,
        &t.Currency,
        &t.Status,
        &t.BalanceAfter,
        &t.BTCBalanceAfter,
        &t.FromAccount,
        &t.ToAccount,
        &t.Description,
        &t.Metadata,
        &t.TransferGroup,
        &t.Proof,
        &t.CreatedAt,
        &t.InsertedAt,
        &t.UpdatedAt,
    )
    return t, err
}

// Apply runs one ledger posting in its own database transaction: the balance
// change and the transaction row commit together or not at all.
func (s *Store) Apply(ctx context.Context, p Posting) (Transaction, Account, error) {
    var (
        txn Transaction
        acc Account
    )
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        var err error
        txn, acc, err = apply(ctx, tx, p)
        return err
    })
    if err != nil {
        return Transaction{}, Account{}, err
    }
    return txn, acc, nil
}

// apply is the only path that changes a balance and records it. Callers
// compose several postings inside one tx when an operation touches more than
// one account.
func apply(ctx context.Context, tx pgx.Tx, p Posting) (Transaction, Account, error) {
    acc, err := mutateBalance(ctx, tx, p.AccountID, p.DeltaFiat, p.DeltaBTC, p.EnforceHold)
    if err != nil {
        return Transaction{}, Account{}, err
    }

    d := p.Draft
    if d.Status == "" {
        d.Status = StatusCompleted
    }
    if d.Currency == "" {
        d.Currency = acc.Currency
    }

    txn, err := insertTransaction(ctx, tx, transactionRow{
        accountID:       acc.ID,
        amount:          p.DeltaFiat,
        btcAmount:       p.DeltaBTC,
        balanceAfter:    &acc.Balance,
        btcBalanceAfter: &acc.BTCBalance,
        draft:           d,
    })
    if err != nil {
        return Transaction{}, Account{}, err
    }
    return txn, acc, nil
}

// mutateBalance locks the account row, checks the gates and writes the new
// balances. The returned account carries the values the UPDATE wrote.
func mutateBalance(ctx context.Context, tx pgx.Tx, accountID, deltaFiat, deltaBTC int64, enforceHold bool) (Account, error) {
    acc, err := lockAccount(ctx, tx, accountID)
    if err != nil {
        return Account{}, err
    }
    if acc.Blocked() {
        return Account{}, ErrAccountBlocked
    }
    if enforceHold && acc.OnHold() {
        return Account{}, &HoldError{Message: acc.HoldMessage}
    }

    fiat, ok := addChecked(acc.Balance, deltaFiat)
    if !ok {
        return Account{}, ErrInvalidAmount
    }
    btc, ok := addChecked(acc.BTCBalance, deltaBTC)
    if !ok {
        return Account{}, ErrInvalidAmount
    }
    if fiat < 0 || btc < 0 {
        return Account{}, ErrInsufficientBalance
    }

    err = tx.QueryRow(ctx, `
        UPDATE accounts
        SET balance = $2, btc_balance = $3, updated_at = now()
        WHERE id = $1
        RETURNING balance, btc_balance, updated_at
    `, acc.ID, fiat, btc).Scan(&acc.Balance, &acc.BTCBalance, &acc.UpdatedAt)
    if err != nil {
        if isConstraintViolation(err, codeCheckViolation, "") {
            return Account{}, ErrInsufficientBalance
        }
        return Account{}, err
    }
    return acc, nil
}

func addChecked(a, b int64) (int64, bool) {
    if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
        return 0, false
    }
    return a + b, true
}

type transactionRow struct {
    accountID       int64
    amount          int64
    btcAmount       int64
    balanceAfter    *int64
    btcBalanceAfter *int64
    proof           string
    draft           Draft
}

// insertTransaction writes the row under a savepoint so a reference
// collision can be retried without aborting the surrounding transaction.
func insertTransaction(ctx context.Context, tx pgx.Tx, row transactionRow) (Transaction, error) {
    metadata := row.draft.Metadata
    if metadata == nil {
        metadata = map[string]any{}
    }
    var createdAt *time.Time
    if row.draft.CreatedAt != nil {
        t := row.draft.CreatedAt.UTC()
        createdAt = &t
    }

    for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
        sp, err := tx.Begin(ctx)
        if err != nil {
            return Transaction{}, err
        }
        t, err := scanTransaction(sp.QueryRow(ctx, `
            INSERT INTO transactions (
                reference, account_id, type, amount, btc_amount, currency, status,
                balance_after, btc_balance_after, from_account, to_account, description,
                metadata, transfer_group, proof, created_at
            )
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
                NULLIF($14, ''), NULLIF($15, ''), COALESCE($16::timestamptz, now()))
            RETURNING `+transactionColumns,
            newReference(),
            row.accountID,
            row.draft.Type,
            row.amount,
            row.btcAmount,
            row.draft.Currency,
            row.draft.Status,
            row.balanceAfter,
            row.btcBalanceAfter,
            row.draft.FromAccount,
            row.draft.ToAccount,
            row.draft.Description,
            metadata,
            row.draft.TransferGroup,
            row.proof,
            createdAt,
        ))
        if err == nil {
            return t, sp.Commit(ctx)
        }
        _ = sp.Rollback(ctx)
        if !isConstraintViolation(err, codeUniqueViolation, "transactions_reference_key") {
            return Transaction{}, err
        }
    }
    return Transaction{}, errGenerateExhausted
}

func getTransaction(ctx context.Context, q querier, id int64) (Transaction, error) {
    t, err := scanTransaction(q.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return Transaction{}, ErrNotFound
        }
        return Transaction{}, err
    }
    return t, nil
}
