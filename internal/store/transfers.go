package store

import (
    "context"
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
)

// Transfer debits the user's primary account and credits the account
// identified by in.ToAccount inside one database transaction. Either both
// rows persist or neither does.
func (s *Store) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
    if in.Amount <= 0 {
        return TransferResult{}, ErrInvalidAmount
    }
    if s.transferLimit > 0 && in.Amount > s.transferLimit {
        return TransferResult{}, ErrLimitExceeded
    }

    key := in.IdempotencyKey
    if key == "" {
        key = uuid.NewString()
    }
    fp := transferFingerprint(in)

    var res TransferResult
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        claimed, err := claimIdempotencyKey(ctx, tx, in.UserID, key, fp)
        if err != nil {
            return err
        }
        if !claimed {
            res, err = replayTransfer(ctx, tx, in.UserID, key, fp)
            return err
        }

        source, err := primaryAccount(ctx, tx, in.UserID)
        if err != nil {
            return err
        }
        dest, err := accountByNumber(ctx, tx, in.ToAccount)
        if err != nil {
            return err
        }
        if source.ID == dest.ID {
            return ErrSameAccount
        }
        if source.Currency != dest.Currency {
            return ErrCurrencyMismatch
        }

        res, err = postTransfer(ctx, tx, transferLegs{
            source:      source,
            dest:        dest,
            amount:      in.Amount,
            description: in.Description,
            enforceHold: true,
            debitMeta:   transferMetadata(in),
            creditMeta: map[string]any{
                "method": in.Method,
            },
        })
        if err != nil {
            return err
        }

        _, err = tx.Exec(ctx, `
            UPDATE idempotency_keys
            SET debit_tx_id = $3, credit_tx_id = $4
            WHERE user_id = $1 AND key = $2
        `, in.UserID, key, res.Debit.ID, res.Credit.ID)
        return err
    })
    if err != nil {
        return TransferResult{}, err
    }
    return res, nil
}

type transferLegs struct {
    source      Account
    dest        Account
    amount      int64
    description string
    enforceHold bool
    debitMeta   map[string]any
    creditMeta  map[string]any
    createdAt   *time.Time
}

// postTransfer locks both accounts and applies the debit then the credit.
// A failure on either leg is returned to the caller, whose rollback undoes
// the other.
func postTransfer(ctx context.Context, tx pgx.Tx, legs transferLegs) (TransferResult, error) {
    if err := lockAccounts(ctx, tx, legs.source.ID, legs.dest.ID); err != nil {
        return TransferResult{}, err
    }

    senderName, err := userName(ctx, tx, legs.source.UserID)
    if err != nil {
        return TransferResult{}, err
    }
    recipientName, err := userName(ctx, tx, legs.dest.UserID)
    if err != nil {
        return TransferResult{}, err
    }

    group := uuid.NewString()
    debitMeta := withField(legs.debitMeta, "recipientName", recipientName)
    creditMeta := withField(legs.creditMeta, "senderName", senderName)
    creditMeta["senderAccount"] = legs.source.AccountNumber

    debitDraft := Draft{
        Type:          TypeTransfer,
        FromAccount:   legs.source.AccountNumber,
        ToAccount:     legs.dest.AccountNumber,
        Description:   legs.description,
        Metadata:      debitMeta,
        TransferGroup: group,
        CreatedAt:     legs.createdAt,
    }

    debit, source, err := apply(ctx, tx, Posting{
        AccountID:   legs.source.ID,
        DeltaFiat:   -legs.amount,
        EnforceHold: legs.enforceHold,
        Draft:       debitDraft,
    })
    if err != nil {
        return TransferResult{}, err
    }

    creditDraft := debitDraft
    creditDraft.Type = TypeCredit
    creditDraft.Metadata = creditMeta

    credit, _, err := apply(ctx, tx, Posting{
        AccountID: legs.dest.ID,
        DeltaFiat: legs.amount,
        Draft:     creditDraft,
    })
    if err != nil {
        return TransferResult{}, fmt.Errorf("credit %s: %w", legs.dest.AccountNumber, err)
    }

    return TransferResult{Debit: debit, Credit: credit, Source: source}, nil
}

func transferMetadata(in TransferInput) map[string]any {
    meta := map[string]any{"method": in.Method}
    if in.Details != nil {
        meta["details"] = in.Details
    }
    return meta
}

func withField(m map[string]any, k string, v any) map[string]any {
    out := make(map[string]any, len(m)+1)
    for key, val := range m {
        out[key] = val
    }
    out[k] = v
    return out
}

// claimIdempotencyKey inserts the key row. A concurrent holder of the same
// key blocks this insert until it commits or rolls back.
func claimIdempotencyKey(ctx context.Context, tx pgx.Tx, userID int64, key, fingerprint string) (bool, error) {
    tag, err := tx.Exec(ctx, `
        INSERT INTO idempotency_keys (user_id, key, fingerprint)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, key) DO NOTHING
    `, userID, key, fingerprint)
    if err != nil {
        if isConstraintViolation(err, codeForeignKeyViolation, "") {
            return false, ErrUserNotFound
        }
        return false, err
    }
    return tag.RowsAffected() == 1, nil
}

func replayTransfer(ctx context.Context, tx pgx.Tx, userID int64, key, fingerprint string) (TransferResult, error) {
    var (
        stored   string
        debitID  *int64
        creditID *int64
    )
    err := tx.QueryRow(ctx, `
        SELECT fingerprint, debit_tx_id, credit_tx_id
        FROM idempotency_keys
        WHERE user_id = $1 AND key = $2
    `, userID, key).Scan(&stored, &debitID, &creditID)
    if err != nil {
        return TransferResult{}, err
    }
    if stored != fingerprint {
        return TransferResult{}, ErrIdempotencyConflict
    }
    if debitID == nil || creditID == nil {
        return TransferResult{}, ErrIdempotencyConflict
    }

    debit, err := getTransaction(ctx, tx, *debitID)
    if err != nil {
        return TransferResult{}, err
    }
    credit, err := getTransaction(ctx, tx, *creditID)
    if err != nil {
        return TransferResult{}, err
    }
    source, err := getAccount(ctx, tx, debit.AccountID)
    if err != nil {
        if errors.Is(err, ErrAccountNotFound) {
            return TransferResult{}, ErrNotFound
        }
        return TransferResult{}, err
    }
    return TransferResult{Debit: debit, Credit: credit, Source: source, Replayed: true}, nil
}

func transferFingerprint(in TransferInput) string {
    sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%s", in.ToAccount, in.Amount, in.Method, in.Description)))
    return hex.EncodeToString(sum[:])
}
