package store

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/jackc/pgx/v5"
    "golang.org/x/crypto/bcrypt"

    "ledger.hh/internal/money"
)

// Admin overrides bypass the hold gate but still go through apply, so
// frozen and closed accounts and the non-negative balance rule hold.

func (s *Store) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
    if in.OpeningBalance < 0 {
        return CreateUserResult{}, ErrInvalidAmount
    }
    role := in.Role
    if role == "" {
        role = RoleUser
    }
    currency := in.Currency
    if currency == "" {
        currency = money.USD
    }

    var hash string
    if in.Password != "" {
        b, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
        if err != nil {
            return CreateUserResult{}, err
        }
        hash = string(b)
    }

    var res CreateUserResult
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        err := tx.QueryRow(ctx, `
            INSERT INTO users (email, name, role, password_hash)
            VALUES ($1, $2, $3, $4)
            RETURNING id, email, name, role, created_at
        `, strings.ToLower(in.Email), in.Name, role, hash).Scan(
            &res.User.ID,
            &res.User.Email,
            &res.User.Name,
            &res.User.Role,
            &res.User.CreatedAt,
        )
        if err != nil {
            if isUniqueViolation(err) {
                return ErrUserExists
            }
            return err
        }

        res.Account, err = createAccount(ctx, tx, res.User.ID, currency, true)
        if err != nil {
            return err
        }
        if in.OpeningBalance == 0 {
            return nil
        }

        opening, acc, err := apply(ctx, tx, Posting{
            AccountID: res.Account.ID,
            DeltaFiat: in.OpeningBalance,
            Draft: Draft{
                Type:        TypeDeposit,
                ToAccount:   res.Account.AccountNumber,
                Description: "Opening balance",
                Metadata:    map[string]any{"method": "opening_balance"},
            },
        })
        if err != nil {
            return err
        }
        res.Account = acc
        res.Opening = &opening
        return nil
    })
    if err != nil {
        return CreateUserResult{}, err
    }
    return res, nil
}

func (s *Store) AdminDeposit(ctx context.Context, in AdminDepositInput) (Transaction, Account, error) {
    if err := checkOverride(in.Amount, in.Date); err != nil {
        return Transaction{}, Account{}, err
    }
    meta := map[string]any{
        "method":        in.Method,
        "depositorName": in.DepositorName,
    }
    if in.BankAccount != "" {
        meta["depositorAccount"] = in.BankAccount
    }
    return s.adminPost(ctx, in.AccountID, in.Amount, Draft{
        Type:        TypeDeposit,
        FromAccount: in.BankAccount,
        Description: in.Description,
        Metadata:    meta,
        CreatedAt:   in.Date,
    })
}

func (s *Store) AdminDebit(ctx context.Context, in AdminDebitInput) (Transaction, Account, error) {
    if err := checkOverride(in.Amount, in.Date); err != nil {
        return Transaction{}, Account{}, err
    }
    return s.adminPost(ctx, in.AccountID, -in.Amount, Draft{
        Type:        TypeDebit,
        Description: in.Description,
        Metadata:    map[string]any{"issuedBy": RoleAdmin},
        CreatedAt:   in.Date,
    })
}

func (s *Store) AdminReceive(ctx context.Context, in AdminReceiveInput) (Transaction, Account, error) {
    if err := checkOverride(in.Amount, in.Date); err != nil {
        return Transaction{}, Account{}, err
    }
    meta := map[string]any{
        "senderName":    in.SenderName,
        "senderAccount": in.SenderAccount,
    }
    if in.SenderBank != "" {
        meta["senderBank"] = in.SenderBank
    }
    return s.adminPost(ctx, in.AccountID, in.Amount, Draft{
        Type:        TypeReceived,
        FromAccount: in.SenderAccount,
        Description: in.Description,
        Metadata:    meta,
        CreatedAt:   in.Date,
    })
}

// AdminTransfer moves money out of an account. When the destination number
// belongs to an account in this ledger the transfer is paired like a user
// transfer; otherwise a single outbound row records the external payee.
func (s *Store) AdminTransfer(ctx context.Context, in AdminTransferInput) (TransferResult, error) {
    if err := checkOverride(in.Amount, in.Date); err != nil {
        return TransferResult{}, err
    }

    var res TransferResult
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        source, err := getAccount(ctx, tx, in.AccountID)
        if err != nil {
            return err
        }

        dest, err := accountByNumber(ctx, tx, in.ToAccount)
        switch {
        case err == nil:
            if dest.ID == source.ID {
                return ErrSameAccount
            }
            if dest.Currency != source.Currency {
                return ErrCurrencyMismatch
            }
            res, err = postTransfer(ctx, tx, transferLegs{
                source:      source,
                dest:        dest,
                amount:      in.Amount,
                description: in.Description,
                debitMeta:   map[string]any{"method": "admin", "bankName": in.BankName},
                creditMeta:  map[string]any{"method": "admin"},
                createdAt:   in.Date,
            })
            return err
        case errors.Is(err, ErrAccountNotFound):
        default:
            return err
        }

        debit, acc, err := apply(ctx, tx, Posting{
            AccountID: source.ID,
            DeltaFiat: -in.Amount,
            Draft: Draft{
                Type:        TypeTransfer,
                FromAccount: source.AccountNumber,
                ToAccount:   in.ToAccount,
                Description: in.Description,
                Metadata: map[string]any{
                    "method":        "admin",
                    "external":      true,
                    "recipientName": in.RecipientName,
                    "bankName":      in.BankName,
                },
                CreatedAt: in.Date,
            },
        })
        if err != nil {
            return err
        }
        res = TransferResult{Debit: debit, Source: acc}
        return nil
    })
    if err != nil {
        return TransferResult{}, err
    }
    return res, nil
}

func (s *Store) adminPost(ctx context.Context, accountID, delta int64, d Draft) (Transaction, Account, error) {
    return s.Apply(ctx, Posting{AccountID: accountID, DeltaFiat: delta, Draft: d})
}

func checkOverride(amount int64, date *time.Time) error {
    if amount <= 0 {
        return ErrInvalidAmount
    }
    if date != nil && date.After(time.Now()) {
        return ErrInvalidDate
    }
    return nil
}

// UpdateAccount changes status, hold message or primary flag under the
// account row lock, the same lock transfers take before checking the hold.
func (s *Store) UpdateAccount(ctx context.Context, id int64, upd AccountUpdate) (Account, error) {
    if upd.Status != nil && !ValidAccountStatus(*upd.Status) {
        return Account{}, ErrInvalidStatus
    }
    if upd.IsPrimary != nil && !*upd.IsPrimary {
        return Account{}, ErrPrimaryRequired
    }

    var acc Account
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        current, err := lockAccount(ctx, tx, id)
        if err != nil {
            return err
        }

        if upd.IsPrimary != nil && !current.IsPrimary {
            _, err := tx.Exec(ctx, `
                UPDATE accounts SET is_primary = false, updated_at = now()
                WHERE user_id = $1 AND is_primary
            `, current.UserID)
            if err != nil {
                return err
            }
        }

        var hold *string
        clearHold := false
        if upd.HoldMessage != nil {
            msg := strings.TrimSpace(*upd.HoldMessage)
            if msg == "" {
                clearHold = true
            } else {
                hold = &msg
            }
        }

        acc, err = scanAccount(tx.QueryRow(ctx, `
            UPDATE accounts
            SET status = COALESCE($2, status),
                hold_message = CASE WHEN $4 THEN NULL ELSE COALESCE($3, hold_message) END,
                is_primary = COALESCE($5, is_primary),
                updated_at = now()
            WHERE id = $1
            RETURNING `+accountColumns,
            id, upd.Status, hold, clearHold, upd.IsPrimary,
        ))
        return err
    })
    if err != nil {
        return Account{}, err
    }
    return acc, nil
}

// DeleteAccount removes an account and, by cascade, its transactions. If it
// was the owner's primary account the oldest remaining one is promoted.
// The number of removed transactions is returned.
func (s *Store) DeleteAccount(ctx context.Context, id int64) (int64, error) {
    var removed int64
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        acc, err := lockAccount(ctx, tx, id)
        if err != nil {
            return err
        }
        if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE account_id = $1", id).Scan(&removed); err != nil {
            return err
        }
        if _, err := tx.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id); err != nil {
            return err
        }
        if !acc.IsPrimary {
            return nil
        }
        _, err = tx.Exec(ctx, `
            UPDATE accounts SET is_primary = true, updated_at = now()
            WHERE id = (SELECT id FROM accounts WHERE user_id = $1 ORDER BY id LIMIT 1)
        `, acc.UserID)
        return err
    })
    if err != nil {
        return 0, err
    }
    return removed, nil
}

// DeleteUser removes a user with all accounts and transactions.
func (s *Store) DeleteUser(ctx context.Context, id int64) (int64, error) {
    var removed int64
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        var locked int64
        if err := tx.QueryRow(ctx, "SELECT id FROM users WHERE id = $1 FOR UPDATE", id).Scan(&locked); err != nil {
            if errors.Is(err, pgx.ErrNoRows) {
                return ErrUserNotFound
            }
            return err
        }
        err := tx.QueryRow(ctx, `
            SELECT COUNT(*) FROM transactions
            WHERE account_id IN (SELECT id FROM accounts WHERE user_id = $1)
        `, id).Scan(&removed)
        if err != nil {
            return err
        }
        _, err = tx.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
        return err
    })
    if err != nil {
        return 0, err
    }
    return removed, nil
}
