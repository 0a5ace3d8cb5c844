package api

import (
    "net/http"
    "strings"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
    var req createUserRequest
    if err := decodeJSON(r, &req); err != nil {
        s.logEvent(r.Context(), "user_create_failed", map[string]any{
            "reason": "invalid_request",
        })
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input()
    if err != nil {
        s.logEvent(r.Context(), "user_create_failed", map[string]any{
            "reason": "invalid_request",
        })
        s.writeValidationError(w, err)
        return
    }

    res, err := s.store.CreateUser(r.Context(), input)
    if err != nil {
        reason := s.writeStoreError(w, r, "create user", err)
        s.logEvent(r.Context(), "user_create_failed", map[string]any{
            "reason": reason,
            "email":  input.Email,
        })
        return
    }

    s.logEvent(r.Context(), "user_created", map[string]any{
        "user_id":         res.User.ID,
        "account_number":  res.Account.AccountNumber,
        "opening_balance": input.OpeningBalance,
        "admin_id":        identityFrom(r.Context()).UserID,
    })
    resp := createUserResponse{
        User:    toUserResponse(res.User),
        Account: toAccountResponse(res.Account),
    }
    if res.Opening != nil {
        t := toTransactionResponse(*res.Opening)
        resp.Opening = &t
    }
    writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAdminOpenAccount(w http.ResponseWriter, r *http.Request) {
    userID, ok := pathID(w, r)
    if !ok {
        return
    }
    var req openAccountRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    currency := strings.ToUpper(strings.TrimSpace(req.Currency))
    if currency == "" {
        currency = money.USD
    }
    if currency == money.BTC || len(currency) != 3 {
        writeErrorMessage(w, http.StatusBadRequest, "invalid_request", "invalid currency")
        return
    }

    acc, err := s.store.OpenAccount(r.Context(), userID, currency)
    if err != nil {
        reason := s.writeStoreError(w, r, "open account", err)
        s.logEvent(r.Context(), "account_open_failed", map[string]any{
            "reason":  reason,
            "user_id": userID,
        })
        return
    }

    s.logEvent(r.Context(), "account_opened", map[string]any{
        "user_id":        userID,
        "account_number": acc.AccountNumber,
        "currency":       acc.Currency,
    })
    writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (s *Server) handleAdminUpdateAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    var req updateAccountRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    upd, err := req.update()
    if err != nil {
        s.writeValidationError(w, err)
        return
    }

    acc, err := s.store.UpdateAccount(r.Context(), id, upd)
    if err != nil {
        reason := s.writeStoreError(w, r, "update account", err)
        s.logEvent(r.Context(), "account_update_failed", map[string]any{
            "reason":     reason,
            "account_id": id,
        })
        return
    }

    s.logEvent(r.Context(), "account_updated", map[string]any{
        "account_id": acc.ID,
        "status":     acc.Status,
        "on_hold":    acc.OnHold(),
        "is_primary": acc.IsPrimary,
    })
    writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (s *Server) handleAdminDeleteAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    removed, err := s.store.DeleteAccount(r.Context(), id)
    if err != nil {
        reason := s.writeStoreError(w, r, "delete account", err)
        s.logEvent(r.Context(), "account_delete_failed", map[string]any{
            "reason":     reason,
            "account_id": id,
        })
        return
    }
    s.logEvent(r.Context(), "account_deleted", map[string]any{
        "account_id":           id,
        "transactions_removed": removed,
    })
    writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, TransactionsRemoved: removed})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    removed, err := s.store.DeleteUser(r.Context(), id)
    if err != nil {
        reason := s.writeStoreError(w, r, "delete user", err)
        s.logEvent(r.Context(), "user_delete_failed", map[string]any{
            "reason":  reason,
            "user_id": id,
        })
        return
    }
    s.logEvent(r.Context(), "user_deleted", map[string]any{
        "user_id":              id,
        "transactions_removed": removed,
    })
    writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, TransactionsRemoved: removed})
}

func (s *Server) handleAdminAccountTransactions(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    limit, ok := parseLimit(w, r)
    if !ok {
        return
    }
    if _, err := s.store.GetAccount(r.Context(), id); err != nil {
        s.writeStoreError(w, r, "account transactions", err)
        return
    }
    txs, err := s.store.AccountTransactions(r.Context(), id, limit)
    if err != nil {
        s.writeStoreError(w, r, "account transactions", err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionResponses(txs)})
}

func (s *Server) handleAdminDeposit(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    var req adminDepositRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(id)
    if err != nil {
        s.writeValidationError(w, err)
        return
    }
    tx, acc, err := s.store.AdminDeposit(r.Context(), input)
    s.finishAdminPosting(w, r, "admin_deposit", id, input.Amount, tx, acc, err)
}

func (s *Server) handleAdminDebit(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    var req adminDebitRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(id)
    if err != nil {
        s.writeValidationError(w, err)
        return
    }
    tx, acc, err := s.store.AdminDebit(r.Context(), input)
    s.finishAdminPosting(w, r, "admin_debit", id, input.Amount, tx, acc, err)
}

func (s *Server) handleAdminReceive(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    var req adminReceiveRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(id)
    if err != nil {
        s.writeValidationError(w, err)
        return
    }
    tx, acc, err := s.store.AdminReceive(r.Context(), input)
    s.finishAdminPosting(w, r, "admin_receive", id, input.Amount, tx, acc, err)
}

func (s *Server) handleAdminTransfer(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    var req adminTransferRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    input, err := req.input(id)
    if err != nil {
        s.writeValidationError(w, err)
        return
    }

    res, err := s.store.AdminTransfer(r.Context(), input)
    if err != nil {
        reason := s.writeStoreError(w, r, "admin transfer", err)
        s.logEvent(r.Context(), "admin_transfer_failed", map[string]any{
            "reason":     reason,
            "account_id": id,
            "amount":     input.Amount,
        })
        return
    }

    s.logEvent(r.Context(), "admin_transfer_completed", map[string]any{
        "account_id": id,
        "reference":  res.Debit.Reference,
        "to_account": input.ToAccount,
        "amount":     input.Amount,
        "external":   res.Credit.ID == 0,
        "admin_id":   identityFrom(r.Context()).UserID,
    })
    resp := map[string]any{
        "message":     "transfer completed",
        "transaction": toTransactionResponse(res.Debit),
        "newBalance":  cents(res.Source.Balance),
    }
    if res.Debit.BalanceAfter != nil {
        resp["newBalance"] = cents(*res.Debit.BalanceAfter)
    }
    if res.Credit.ID != 0 {
        resp["credit"] = toTransactionResponse(res.Credit)
    }
    writeJSON(w, http.StatusOK, resp)
}

func (s *Server) finishAdminPosting(w http.ResponseWriter, r *http.Request, event string, accountID, amount int64, tx store.Transaction, acc store.Account, err error) {
    if err != nil {
        reason := s.writeStoreError(w, r, strings.ReplaceAll(event, "_", " "), err)
        s.logEvent(r.Context(), event+"_failed", map[string]any{
            "reason":     reason,
            "account_id": accountID,
            "amount":     amount,
        })
        return
    }
    s.logEvent(r.Context(), event+"_completed", map[string]any{
        "account_id": accountID,
        "reference":  tx.Reference,
        "amount":     amount,
        "admin_id":   identityFrom(r.Context()).UserID,
    })
    writeJSON(w, http.StatusCreated, postingResponse{
        Message:     "transaction recorded",
        Transaction: toTransactionResponse(tx),
        NewBalance:  cents(acc.Balance),
    })
}

func (s *Server) handleAdminUpdateTransaction(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r)
    if !ok {
        return
    }
    var req updateTransactionRequest
    if err := decodeJSON(r, &req); err != nil {
        s.writeValidationError(w, err)
        return
    }
    status, err := req.status()
    if err != nil {
        s.writeValidationError(w, err)
        return
    }

    tx, err := s.store.UpdateTransactionStatus(r.Context(), id, status)
    if err != nil {
        reason := s.writeStoreError(w, r, "update transaction", err)
        s.logEvent(r.Context(), "transaction_update_failed", map[string]any{
            "reason":         reason,
            "transaction_id": id,
            "status":         status,
        })
        return
    }
    s.logEvent(r.Context(), "transaction_updated", map[string]any{
        "transaction_id": tx.ID,
        "reference":      tx.Reference,
        "status":         tx.Status,
    })
    writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}
