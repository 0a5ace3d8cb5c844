package api

import (
    "errors"
    "net/http"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

type errorMapping struct {
    err    error
    status int
    code   string
}

var storeErrors = []errorMapping{
    {store.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
    {money.ErrOutOfRange, http.StatusBadRequest, "invalid_amount"},
    {store.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
    {store.ErrSameAccount, http.StatusBadRequest, "invalid_destination"},
    {store.ErrCurrencyMismatch, http.StatusBadRequest, "currency_mismatch"},
    {store.ErrUnsupportedPair, http.StatusBadRequest, "unsupported_pair"},
    {store.ErrAmountTooSmall, http.StatusBadRequest, "amount_too_small"},
    {store.ErrLimitExceeded, http.StatusBadRequest, "limit_exceeded"},
    {store.ErrAccountBlocked, http.StatusBadRequest, "account_blocked"},
    {store.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
    {store.ErrProofRequired, http.StatusBadRequest, "proof_required"},
    {store.ErrNotDeposit, http.StatusBadRequest, "not_deposit"},
    {store.ErrPrimaryRequired, http.StatusBadRequest, "primary_required"},
    {store.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
    {store.ErrIdempotencyConflict, http.StatusUnprocessableEntity, "idempotency_conflict"},
    {store.ErrUserExists, http.StatusConflict, "user_exists"},
    {store.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
    {store.ErrNoPrimaryAccount, http.StatusNotFound, "account_not_found"},
    {store.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
    {store.ErrNotFound, http.StatusNotFound, "not_found"},
}

// writeStoreError maps a store error to a response and returns the code that
// was written, for event logging.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) string {
    var hold *store.HoldError
    if errors.As(err, &hold) {
        msg := hold.Message
        if msg == "" {
            msg = hold.Error()
        }
        writeErrorMessage(w, http.StatusBadRequest, "account_on_hold", msg)
        return "account_on_hold"
    }
    for _, m := range storeErrors {
        if errors.Is(err, m.err) {
            writeErrorMessage(w, m.status, m.code, err.Error())
            return m.code
        }
    }

    s.logger.ErrorContext(r.Context(), op+" error", "request_id", requestIDFrom(r.Context()), "error", err)
    if s.devMode {
        writeErrorMessage(w, http.StatusInternalServerError, "internal_error", err.Error())
    } else {
        writeErrorMessage(w, http.StatusInternalServerError, "internal_error", "something went wrong")
    }
    return "internal_error"
}

func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
    writeErrorMessage(w, http.StatusBadRequest, "invalid_request", err.Error())
}
