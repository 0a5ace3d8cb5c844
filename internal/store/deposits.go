package store

import (
    "context"
    "errors"

    "github.com/jackc/pgx/v5"
)

// CreateDeposit records a pending deposit on the user's primary account. The
// balance is untouched until the row is marked completed.
func (s *Store) CreateDeposit(ctx context.Context, in DepositInput) (Transaction, error) {
    if in.Amount <= 0 {
        return Transaction{}, ErrInvalidAmount
    }

    var txn Transaction
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        acc, err := primaryAccount(ctx, tx, in.UserID)
        if err != nil {
            return err
        }
        if acc.Blocked() {
            return ErrAccountBlocked
        }
        txn, err = insertTransaction(ctx, tx, transactionRow{
            accountID: acc.ID,
            amount:    in.Amount,
            proof:     in.Proof,
            draft: Draft{
                Type:        TypeDeposit,
                Status:      StatusPending,
                Currency:    acc.Currency,
                ToAccount:   acc.AccountNumber,
                Description: in.Description,
                Metadata:    map[string]any{"method": in.Method},
            },
        })
        return err
    })
    if err != nil {
        return Transaction{}, err
    }
    return txn, nil
}

// SubmitDepositProof attaches the confirmation hash to a pending deposit the
// user owns.
func (s *Store) SubmitDepositProof(ctx context.Context, userID int64, reference, proof string) (Transaction, error) {
    var txn Transaction
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        t, err := scanTransaction(tx.QueryRow(ctx, `
            SELECT `+transactionColumns+`
            FROM transactions
            WHERE reference = $1
              AND account_id IN (SELECT id FROM accounts WHERE user_id = $2)
            FOR UPDATE
        `, reference, userID))
        if err != nil {
            if errors.Is(err, pgx.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }
        if t.Type != TypeDeposit {
            return ErrNotDeposit
        }
        if t.Status != StatusPending {
            return ErrInvalidStatus
        }

        txn, err = scanTransaction(tx.QueryRow(ctx, `
            UPDATE transactions
            SET proof = $2, updated_at = now()
            WHERE id = $1
            RETURNING `+transactionColumns,
            t.ID, proof,
        ))
        return err
    })
    if err != nil {
        return Transaction{}, err
    }
    return txn, nil
}

// UpdateTransactionStatus moves a pending transaction to a terminal state.
// Completing a deposit applies its amount through the ledger engine and
// stamps the resulting balance on the row in the same transaction.
func (s *Store) UpdateTransactionStatus(ctx context.Context, id int64, status string) (Transaction, error) {
    var txn Transaction
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        t, err := scanTransaction(tx.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1 FOR UPDATE", id))
        if err != nil {
            if errors.Is(err, pgx.ErrNoRows) {
                return ErrNotFound
            }
            return err
        }

        if t.Status == status {
            txn = t
            return nil
        }
        if !CanTransition(t.Status, status) {
            return ErrInvalidStatus
        }

        if status != StatusCompleted {
            txn, err = scanTransaction(tx.QueryRow(ctx, `
                UPDATE transactions
                SET status = $2, updated_at = now()
                WHERE id = $1
                RETURNING `+transactionColumns,
                id, status,
            ))
            return err
        }

        if t.Type != TypeDeposit {
            return ErrNotDeposit
        }
        if t.Proof == "" {
            return ErrProofRequired
        }

        acc, err := mutateBalance(ctx, tx, t.AccountID, t.Amount, t.BTCAmount, false)
        if err != nil {
            return err
        }
        txn, err = scanTransaction(tx.QueryRow(ctx, `
            UPDATE transactions
            SET status = $2, balance_after = $3, btc_balance_after = $4, updated_at = now()
            WHERE id = $1
            RETURNING `+transactionColumns,
            id, status, acc.Balance, acc.BTCBalance,
        ))
        return err
    })
    if err != nil {
        return Transaction{}, err
    }
    return txn, nil
}
