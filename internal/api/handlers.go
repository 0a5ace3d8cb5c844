package api

import (
    "net/http"
    "strconv"
    "time"

    "github.com/gorilla/mux"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

const dashboardMonths = 12

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())

    var req transferRequest
    if err := decodeJSON(r, &req); err != nil {
        s.logEvent(r.Context(), "transfer_failed", map[string]any{
            "reason":  "invalid_request",
            "user_id": caller.UserID,
        })
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(caller.UserID, r.Header.Get("Idempotency-Key"))
    if err != nil {
        s.logEvent(r.Context(), "transfer_failed", map[string]any{
            "reason":  "invalid_request",
            "user_id": caller.UserID,
        })
        s.writeValidationError(w, err)
        return
    }

    res, err := s.store.Transfer(r.Context(), input)
    if err != nil {
        reason := s.writeStoreError(w, r, "transfer", err)
        s.logEvent(r.Context(), "transfer_failed", map[string]any{
            "reason":     reason,
            "user_id":    caller.UserID,
            "to_account": input.ToAccount,
            "amount":     input.Amount,
        })
        return
    }

    if res.Replayed {
        w.Header().Set("X-Idempotency-Hit", "true")
        s.logEvent(r.Context(), "transfer_replayed", map[string]any{
            "user_id":   caller.UserID,
            "reference": res.Debit.Reference,
        })
    } else {
        s.logEvent(r.Context(), "transfer_completed", map[string]any{
            "user_id":    caller.UserID,
            "reference":  res.Debit.Reference,
            "to_account": input.ToAccount,
            "amount":     input.Amount,
            "method":     input.Method,
        })
    }
    newBalance := res.Source.Balance
    if res.Debit.BalanceAfter != nil {
        newBalance = *res.Debit.BalanceAfter
    }
    writeJSON(w, http.StatusOK, transferResponse{
        Message:     "transfer completed",
        Transaction: toTransactionResponse(res.Debit),
        Credit:      toTransactionResponse(res.Credit),
        NewBalance:  cents(newBalance),
    })
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())

    var req swapRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(caller.UserID, s.rate)
    if err != nil {
        s.logEvent(r.Context(), "swap_failed", map[string]any{
            "reason":  "invalid_request",
            "user_id": caller.UserID,
        })
        s.writeValidationError(w, err)
        return
    }

    res, err := s.store.Swap(r.Context(), input)
    if err != nil {
        reason := s.writeStoreError(w, r, "swap", err)
        s.logEvent(r.Context(), "swap_failed", map[string]any{
            "reason":  reason,
            "user_id": caller.UserID,
            "from":    input.FromCurrency,
            "to":      input.ToCurrency,
            "amount":  input.Amount,
        })
        return
    }

    s.logEvent(r.Context(), "swap_completed", map[string]any{
        "user_id":   caller.UserID,
        "reference": res.Transaction.Reference,
        "from":      input.FromCurrency,
        "to":        input.ToCurrency,
        "amount":    input.Amount,
    })
    writeJSON(w, http.StatusOK, swapResponse{
        Message:           "currency swap completed",
        Transaction:       toTransactionResponse(res.Transaction),
        NewBalance:        cents(res.Account.Balance),
        NewBitcoinBalance: sats(res.Account.BTCBalance),
    })
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, rateResponse{
        Rate:         cents(s.rate.CentsPerBTC()),
        FromCurrency: money.BTC,
        ToCurrency:   money.USD,
    })
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())

    var req depositRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(caller.UserID)
    if err != nil {
        s.logEvent(r.Context(), "deposit_create_failed", map[string]any{
            "reason":  "invalid_request",
            "user_id": caller.UserID,
        })
        s.writeValidationError(w, err)
        return
    }

    tx, err := s.store.CreateDeposit(r.Context(), input)
    if err != nil {
        reason := s.writeStoreError(w, r, "create deposit", err)
        s.logEvent(r.Context(), "deposit_create_failed", map[string]any{
            "reason":  reason,
            "user_id": caller.UserID,
            "amount":  input.Amount,
        })
        return
    }

    s.logEvent(r.Context(), "deposit_created", map[string]any{
        "user_id":   caller.UserID,
        "reference": tx.Reference,
        "amount":    tx.Amount,
        "method":    input.Method,
    })
    writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleDepositProof(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())
    reference := mux.Vars(r)["reference"]

    var req proofRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    if req.Hash == "" {
        writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "hash is required")
        return
    }

    tx, err := s.store.SubmitDepositProof(r.Context(), caller.UserID, reference, req.Hash)
    if err != nil {
        reason := s.writeStoreError(w, r, "deposit proof", err)
        s.logEvent(r.Context(), "deposit_proof_failed", map[string]any{
            "reason":    reason,
            "user_id":   caller.UserID,
            "reference": reference,
        })
        return
    }

    s.logEvent(r.Context(), "deposit_proof_submitted", map[string]any{
        "user_id":   caller.UserID,
        "reference": tx.Reference,
    })
    writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())
    accounts, err := s.store.ListAccounts(r.Context(), caller.UserID)
    if err != nil {
        s.writeStoreError(w, r, "list accounts", err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"accounts": toAccountResponses(accounts)})
}

// handleTransferMessage lets clients show the hold banner before a transfer
// is attempted. The transfer itself re-checks the hold under the row lock.
func (s *Server) handleTransferMessage(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())
    acc, err := s.store.PrimaryAccount(r.Context(), caller.UserID)
    if err != nil {
        s.writeStoreError(w, r, "transfer message", err)
        return
    }
    writeJSON(w, http.StatusOK, transferMessageResponse{
        OnHold:  acc.OnHold(),
        Message: acc.HoldMessage,
    })
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())
    limit, ok := parseLimit(w, r)
    if !ok {
        return
    }
    txs, err := s.store.RecentTransactions(r.Context(), caller.UserID, limit)
    if err != nil {
        s.writeStoreError(w, r, "recent transactions", err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionResponses(txs)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
    caller := identityFrom(r.Context())
    d, err := s.store.Dashboard(r.Context(), caller.UserID, dashboardMonths, time.Now())
    if err != nil {
        s.writeStoreError(w, r, "dashboard", err)
        return
    }
    writeJSON(w, http.StatusOK, toDashboardResponse(d))
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
    raw := r.URL.Query().Get("limit")
    if raw == "" {
        return store.DefaultRecentLimit, true
    }
    limit, err := strconv.Atoi(raw)
    if err != nil || limit <= 0 {
        writeError(w, http.StatusBadRequest, "invalid_limit")
        return 0, false
    }
    return limit, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
    id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
    if err != nil || id <= 0 {
        writeError(w, http.StatusBadRequest, "invalid_id")
        return 0, false
    }
    return id, true
}
