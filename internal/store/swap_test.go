package store_test

import (
    "context"
    "errors"
    "testing"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
    "ledger.hh/internal/store/storetest"
)

func TestSwapUSDToBTCAndBack(t *testing.T) {
    st, pool := newStore(t)
    ctx := context.Background()
    alice := createUser(t, st, "alice", 100000)
    rate := money.MustRate("92600")

    res, err := st.Swap(ctx, store.SwapInput{
        UserID:       alice.User.ID,
        FromCurrency: money.USD,
        ToCurrency:   money.BTC,
        Amount:       100000,
        Rate:         rate,
    })
    if err != nil {
        t.Fatalf("swap: %v", err)
    }
    if res.Account.Balance != 0 || res.Account.BTCBalance != 1079913 {
        t.Fatalf("unexpected balances: fiat=%d btc=%d", res.Account.Balance, res.Account.BTCBalance)
    }
    if res.Transaction.Type != store.TypeCurrencySwap {
        t.Fatalf("expected currency_swap row, got %s", res.Transaction.Type)
    }
    if res.Transaction.Amount != -100000 || res.Transaction.BTCAmount != 1079913 {
        t.Fatalf("unexpected legs: fiat=%d btc=%d", res.Transaction.Amount, res.Transaction.BTCAmount)
    }
    if res.Transaction.BTCBalanceAfter == nil || *res.Transaction.BTCBalanceAfter != 1079913 {
        t.Fatalf("expected btc_balance_after 1079913, got %v", res.Transaction.BTCBalanceAfter)
    }
    if count, _ := storetest.LedgerSum(t, pool, alice.Account.ID); count != 2 {
        t.Fatalf("a swap writes one row, got %d rows in total", count)
    }

    back, err := st.Swap(ctx, store.SwapInput{
        UserID:       alice.User.ID,
        FromCurrency: money.BTC,
        ToCurrency:   money.USD,
        Amount:       1079913,
        Rate:         rate,
    })
    if err != nil {
        t.Fatalf("swap back: %v", err)
    }
    if back.Account.Balance != 99999 || back.Account.BTCBalance != 0 {
        t.Fatalf("unexpected balances after swap back: fiat=%d btc=%d", back.Account.Balance, back.Account.BTCBalance)
    }
    assertLedgerMatches(t, pool, alice.Account.ID)
}

func TestSwapRejections(t *testing.T) {
    st, pool := newStore(t)
    ctx := context.Background()
    alice := createUser(t, st, "alice", 1000)
    rate := money.MustRate("92600")

    cases := []struct {
        name     string
        from, to string
        amount   int64
        want     error
    }{
        {"unsupported pair", money.USD, "EUR", 100, store.ErrUnsupportedPair},
        {"same currency", money.USD, money.USD, 100, store.ErrUnsupportedPair},
        {"converts to zero", money.BTC, money.USD, 1, store.ErrAmountTooSmall},
        {"insufficient fiat", money.USD, money.BTC, 2000, store.ErrInsufficientBalance},
        {"insufficient btc", money.BTC, money.USD, 100000, store.ErrInsufficientBalance},
        {"non-positive", money.USD, money.BTC, 0, store.ErrInvalidAmount},
    }
    for _, tc := range cases {
        _, err := st.Swap(ctx, store.SwapInput{
            UserID:       alice.User.ID,
            FromCurrency: tc.from,
            ToCurrency:   tc.to,
            Amount:       tc.amount,
            Rate:         rate,
        })
        if !errors.Is(err, tc.want) {
            t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
        }
    }
    if got := storetest.Balance(t, pool, alice.Account.ID); got != 1000 {
        t.Fatalf("rejected swaps must not move money, balance %d", got)
    }
}
