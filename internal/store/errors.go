package store

import (
    "errors"
    "fmt"
)

var (
    ErrInsufficientBalance = errors.New("insufficient balance")
    ErrInvalidAmount       = errors.New("amount must be positive")
    ErrIdempotencyConflict = errors.New("idempotency conflict")
    ErrNotFound            = errors.New("not found")
    ErrUserNotFound        = errors.New("user not found")
    ErrAccountNotFound     = errors.New("account not found")
    ErrUserExists          = errors.New("user exists")
    ErrInvalidStatus       = errors.New("invalid status")
    ErrAccountBlocked      = errors.New("account is frozen or closed")
    ErrSameAccount         = errors.New("cannot transfer to the same account")
    ErrCurrencyMismatch    = errors.New("accounts use different currencies")
    ErrUnsupportedPair     = errors.New("unsupported currency pair")
    ErrAmountTooSmall      = errors.New("amount converts to zero")
    ErrLimitExceeded       = errors.New("amount exceeds transfer limit")
    ErrProofRequired       = errors.New("deposit has no confirmation proof")
    ErrNotDeposit          = errors.New("transaction is not a deposit")
    ErrNoPrimaryAccount    = errors.New("user has no primary account")
    ErrPrimaryRequired     = errors.New("a user keeps exactly one primary account")
    ErrInvalidDate         = errors.New("transaction date is in the future")
)

// HoldError is returned when an outgoing transfer hits the hold gate.
type HoldError struct {
    Message string
}

func (e *HoldError) Error() string {
    if e.Message == "" {
        return "account is on hold"
    }
    return fmt.Sprintf("account is on hold: %s", e.Message)
}
