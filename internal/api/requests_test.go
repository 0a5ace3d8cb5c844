package api

import (
    "encoding/json"
    "testing"
    "time"

    "github.com/shopspring/decimal"

    "ledger.hh/internal/store"
)

func TestDateValueFormats(t *testing.T) {
    var req struct {
        Date *dateValue `json:"date"`
    }
    if err := json.Unmarshal([]byte(`{"date":"2024-03-15"}`), &req); err != nil {
        t.Fatalf("plain date: %v", err)
    }
    if got := req.Date.ptr(); got == nil || !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected date %v", got)
    }
    if err := json.Unmarshal([]byte(`{"date":"2024-03-15T10:30:00+02:00"}`), &req); err != nil {
        t.Fatalf("rfc3339: %v", err)
    }
    if req.Date.UTC().Hour() != 8 {
        t.Fatalf("expected 08:00 UTC, got %v", req.Date.UTC())
    }
    if err := json.Unmarshal([]byte(`{"date":"15/03/2024"}`), &req); err == nil {
        t.Fatalf("expected an error for an unknown layout")
    }

    var empty *dateValue
    if empty.ptr() != nil {
        t.Fatalf("nil date must map to nil")
    }
}

func TestTransferMethodDetails(t *testing.T) {
    cases := []struct {
        method  transferMethod
        details *store.TransferDetails
        ok      bool
    }{
        {methodLocal, nil, true},
        {methodWire, nil, true},
        {methodWire, &store.TransferDetails{BankName: "First Bank"}, true},
        {methodWire, &store.TransferDetails{}, false},
        {methodPaypal, &store.TransferDetails{Email: "bob@example.com"}, true},
        {methodWise, &store.TransferDetails{Email: "nope"}, false},
        {methodZelle, &store.TransferDetails{Phone: "+15550100"}, true},
        {methodZelle, &store.TransferDetails{}, false},
        {methodCashapp, &store.TransferDetails{Cashtag: "$bob"}, true},
        {methodCrypto, &store.TransferDetails{WalletAddress: "bc1qxy"}, true},
        {methodCrypto, &store.TransferDetails{Network: "btc"}, false},
        {transferMethod("fax"), nil, false},
    }
    for _, tc := range cases {
        err := tc.method.validateDetails(tc.details)
        if (err == nil) != tc.ok {
            t.Fatalf("%s %+v: got err %v, want ok=%v", tc.method, tc.details, err, tc.ok)
        }
    }
}

func TestTransferRequestInput(t *testing.T) {
    req := transferRequest{
        ToAccount:      " 1234567890 ",
        Amount:         decimal.RequireFromString("250.5"),
        Description:    "  rent  ",
        Method:         "WIRE",
        IdempotencyKey: "body-key",
    }
    in, err := req.input(9, "")
    if err != nil {
        t.Fatalf("input: %v", err)
    }
    if in.UserID != 9 || in.ToAccount != "1234567890" || in.Amount != 25050 || in.Method != "wire" || in.Description != "rent" {
        t.Fatalf("unexpected input %+v", in)
    }
    if in.IdempotencyKey != "body-key" {
        t.Fatalf("expected body key, got %q", in.IdempotencyKey)
    }

    in, err = req.input(9, "header-key")
    if err != nil {
        t.Fatalf("input: %v", err)
    }
    if in.IdempotencyKey != "header-key" {
        t.Fatalf("header key must win, got %q", in.IdempotencyKey)
    }

    req.Method = ""
    in, _ = req.input(9, "")
    if in.Method != string(methodLocal) {
        t.Fatalf("expected default method local, got %q", in.Method)
    }
}

func TestCreateUserRequestInput(t *testing.T) {
    good := createUserRequest{
        Email:          "alice@example.com",
        Name:           "Alice",
        Password:       "long enough",
        InitialBalance: decimal.RequireFromString("1000.00"),
    }
    in, err := good.input()
    if err != nil {
        t.Fatalf("input: %v", err)
    }
    if in.OpeningBalance != 100000 {
        t.Fatalf("expected 100000 cents, got %d", in.OpeningBalance)
    }

    bad := []createUserRequest{
        {Email: "nope", Name: "A", Password: "long enough"},
        {Email: "a@example.com", Name: " ", Password: "long enough"},
        {Email: "a@example.com", Name: "A", Password: "short"},
        {Email: "a@example.com", Name: "A", Password: "long enough", Role: "root"},
        {Email: "a@example.com", Name: "A", Password: "long enough", Currency: "BTC"},
        {Email: "a@example.com", Name: "A", Password: "long enough", InitialBalance: decimal.RequireFromString("-1")},
    }
    for i, req := range bad {
        if _, err := req.input(); err == nil {
            t.Fatalf("case %d: expected validation error", i)
        }
    }
}

func TestAdminDepositRequiresBankAccountForBank(t *testing.T) {
    req := adminDepositRequest{
        Amount:        decimal.RequireFromString("10"),
        DepositorName: "Payroll",
        Method:        "bank",
    }
    if _, err := req.input(1); err == nil {
        t.Fatalf("expected bankAccount to be required")
    }
    req.BankAccount = "998877"
    in, err := req.input(1)
    if err != nil {
        t.Fatalf("input: %v", err)
    }
    if in.Amount != 1000 || in.Method != "bank" {
        t.Fatalf("unexpected input %+v", in)
    }
}

func TestUpdateAccountRequest(t *testing.T) {
    if _, err := (updateAccountRequest{}).update(); err == nil {
        t.Fatalf("expected an error for an empty update")
    }
    status := " Frozen "
    upd, err := (updateAccountRequest{Status: &status}).update()
    if err != nil {
        t.Fatalf("update: %v", err)
    }
    if *upd.Status != store.AccountFrozen {
        t.Fatalf("expected normalized status, got %q", *upd.Status)
    }
    bogus := "gone"
    if _, err := (updateAccountRequest{Status: &bogus}).update(); err == nil {
        t.Fatalf("expected unknown status to fail")
    }
}
