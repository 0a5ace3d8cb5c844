package api

import (
    "encoding/json"
    "time"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

func cents(v int64) json.Number { return json.Number(money.FormatCents(v)) }

func sats(v int64) json.Number { return json.Number(money.FormatSats(v)) }

type accountResponse struct {
    ID            int64       `json:"id"`
    AccountNumber string      `json:"accountNumber"`
    UserID        int64       `json:"userId"`
    Currency      string      `json:"currency"`
    Balance       json.Number `json:"balance"`
    BTCBalance    json.Number `json:"bitcoinBalance"`
    Status        string      `json:"status"`
    IsPrimary     bool        `json:"isPrimary"`
    HoldMessage   string      `json:"holdMessage,omitempty"`
    CreatedAt     time.Time   `json:"createdAt"`
    UpdatedAt     time.Time   `json:"updatedAt"`
}

func toAccountResponse(a store.Account) accountResponse {
    return accountResponse{
        ID:            a.ID,
        AccountNumber: a.AccountNumber,
        UserID:        a.UserID,
        Currency:      a.Currency,
        Balance:       cents(a.Balance),
        BTCBalance:    sats(a.BTCBalance),
        Status:        a.Status,
        IsPrimary:     a.IsPrimary,
        HoldMessage:   a.HoldMessage,
        CreatedAt:     a.CreatedAt,
        UpdatedAt:     a.UpdatedAt,
    }
}

func toAccountResponses(accounts []store.Account) []accountResponse {
    out := make([]accountResponse, 0, len(accounts))
    for _, a := range accounts {
        out = append(out, toAccountResponse(a))
    }
    return out
}

type transactionResponse struct {
    ID              int64          `json:"id"`
    Reference       string         `json:"reference"`
    AccountID       int64          `json:"accountId"`
    Type            string         `json:"type"`
    Amount          json.Number    `json:"amount"`
    BTCAmount       json.Number    `json:"bitcoinAmount"`
    Currency        string         `json:"currency"`
    Status          string         `json:"status"`
    BalanceAfter    *json.Number   `json:"balanceAfter"`
    BTCBalanceAfter *json.Number   `json:"bitcoinBalanceAfter"`
    FromAccount     string         `json:"fromAccount,omitempty"`
    ToAccount       string         `json:"toAccount,omitempty"`
    Description     string         `json:"description,omitempty"`
    Metadata        map[string]any `json:"metadata,omitempty"`
    TransferGroup   string         `json:"transferGroup,omitempty"`
    Proof           string         `json:"proof,omitempty"`
    CreatedAt       time.Time      `json:"createdAt"`
    UpdatedAt       time.Time      `json:"updatedAt"`
}

func toTransactionResponse(t store.Transaction) transactionResponse {
    resp := transactionResponse{
        ID:            t.ID,
        Reference:     t.Reference,
        AccountID:     t.AccountID,
        Type:          t.Type,
        Amount:        cents(t.Amount),
        BTCAmount:     sats(t.BTCAmount),
        Currency:      t.Currency,
        Status:        t.Status,
        FromAccount:   t.FromAccount,
        ToAccount:     t.ToAccount,
        Description:   t.Description,
        Metadata:      t.Metadata,
        TransferGroup: t.TransferGroup,
        Proof:         t.Proof,
        CreatedAt:     t.CreatedAt,
        UpdatedAt:     t.UpdatedAt,
    }
    if t.BalanceAfter != nil {
        v := cents(*t.BalanceAfter)
        resp.BalanceAfter = &v
    }
    if t.BTCBalanceAfter != nil {
        v := sats(*t.BTCBalanceAfter)
        resp.BTCBalanceAfter = &v
    }
    return resp
}

func toTransactionResponses(txs []store.Transaction) []transactionResponse {
    out := make([]transactionResponse, 0, len(txs))
    for _, t := range txs {
        out = append(out, toTransactionResponse(t))
    }
    return out
}

type userResponse struct {
    ID        int64     `json:"id"`
    Email     string    `json:"email"`
    Name      string    `json:"name"`
    Role      string    `json:"role"`
    CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u store.User) userResponse {
    return userResponse{
        ID:        u.ID,
        Email:     u.Email,
        Name:      u.Name,
        Role:      u.Role,
        CreatedAt: u.CreatedAt,
    }
}

type transferResponse struct {
    Message     string              `json:"message"`
    Transaction transactionResponse `json:"transaction"`
    Credit      transactionResponse `json:"credit"`
    NewBalance  json.Number         `json:"newBalance"`
}

type swapResponse struct {
    Message           string              `json:"message"`
    Transaction       transactionResponse `json:"transaction"`
    NewBalance        json.Number         `json:"newBalance"`
    NewBitcoinBalance json.Number         `json:"newBitcoinBalance"`
}

type rateResponse struct {
    Rate         json.Number `json:"rate"`
    FromCurrency string      `json:"fromCurrency"`
    ToCurrency   string      `json:"toCurrency"`
}

type createUserResponse struct {
    User    userResponse         `json:"user"`
    Account accountResponse      `json:"account"`
    Opening *transactionResponse `json:"openingTransaction,omitempty"`
}

type postingResponse struct {
    Message     string              `json:"message"`
    Transaction transactionResponse `json:"transaction"`
    NewBalance  json.Number         `json:"newBalance"`
}

type transferMessageResponse struct {
    OnHold  bool   `json:"onHold"`
    Message string `json:"message,omitempty"`
}

type monthlyStatResponse struct {
    Month    string      `json:"month"`
    Deposits json.Number `json:"deposits"`
    Expenses json.Number `json:"expenses"`
}

type dashboardResponse struct {
    Account accountResponse       `json:"account"`
    Monthly []monthlyStatResponse `json:"monthly"`
    Recent  []transactionResponse `json:"recentTransactions"`
}

func toDashboardResponse(d store.Dashboard) dashboardResponse {
    monthly := make([]monthlyStatResponse, 0, len(d.Monthly))
    for _, m := range d.Monthly {
        monthly = append(monthly, monthlyStatResponse{
            Month:    m.Month.UTC().Format("2006-01"),
            Deposits: cents(m.Deposits),
            Expenses: cents(m.Expenses),
        })
    }
    return dashboardResponse{
        Account: toAccountResponse(d.Account),
        Monthly: monthly,
        Recent:  toTransactionResponses(d.Recent),
    }
}

type deleteResponse struct {
    Deleted             bool  `json:"deleted"`
    TransactionsRemoved int64 `json:"transactionsRemoved"`
}
