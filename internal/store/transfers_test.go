package store_test

import (
    "context"
    "errors"
    "sync"
    "testing"

    "ledger.hh/internal/store"
    "ledger.hh/internal/store/storetest"
)

func TestTransferMovesMoneyBetweenAccounts(t *testing.T) {
    st, pool := newStore(t)
    alice := createUser(t, st, "alice", 100000)
    bob := createUser(t, st, "bob", 0)

    res, err := st.Transfer(context.Background(), store.TransferInput{
        UserID:      alice.User.ID,
        ToAccount:   bob.Account.AccountNumber,
        Amount:      25000,
        Description: "rent",
        Method:      "local",
    })
    if err != nil {
        t.Fatalf("transfer: %v", err)
    }

    if res.Debit.Amount != -25000 || res.Credit.Amount != 25000 {
        t.Fatalf("unexpected amounts: debit=%d credit=%d", res.Debit.Amount, res.Credit.Amount)
    }
    if res.Debit.Type != store.TypeTransfer || res.Credit.Type != store.TypeCredit {
        t.Fatalf("unexpected types: %s, %s", res.Debit.Type, res.Credit.Type)
    }
    if res.Debit.TransferGroup == "" || res.Debit.TransferGroup != res.Credit.TransferGroup {
        t.Fatalf("legs must share a transfer group: %q, %q", res.Debit.TransferGroup, res.Credit.TransferGroup)
    }
    if res.Credit.Metadata["senderName"] != "alice" || res.Credit.Metadata["senderAccount"] != alice.Account.AccountNumber {
        t.Fatalf("unexpected credit metadata: %v", res.Credit.Metadata)
    }
    if res.Debit.Metadata["recipientName"] != "bob" {
        t.Fatalf("unexpected debit metadata: %v", res.Debit.Metadata)
    }
    if res.Replayed {
        t.Fatalf("first transfer must not be a replay")
    }

    if got := storetest.Balance(t, pool, alice.Account.ID); got != 75000 {
        t.Fatalf("expected alice balance 75000, got %d", got)
    }
    if got := storetest.Balance(t, pool, bob.Account.ID); got != 25000 {
        t.Fatalf("expected bob balance 25000, got %d", got)
    }
    assertLedgerMatches(t, pool, alice.Account.ID)
    assertLedgerMatches(t, pool, bob.Account.ID)
}

func TestTransferIdempotentReplay(t *testing.T) {
    st, pool := newStore(t)
    ctx := context.Background()
    alice := createUser(t, st, "alice", 10000)
    bob := createUser(t, st, "bob", 0)

    in := store.TransferInput{
        UserID:         alice.User.ID,
        ToAccount:      bob.Account.AccountNumber,
        Amount:         1000,
        Method:         "local",
        IdempotencyKey: "k1",
    }
    first, err := st.Transfer(ctx, in)
    if err != nil {
        t.Fatalf("first transfer: %v", err)
    }
    second, err := st.Transfer(ctx, in)
    if err != nil {
        t.Fatalf("replayed transfer: %v", err)
    }
    if !second.Replayed {
        t.Fatalf("expected replay")
    }
    if second.Debit.ID != first.Debit.ID || second.Credit.ID != first.Credit.ID {
        t.Fatalf("replay returned different rows")
    }
    if got := storetest.Balance(t, pool, alice.Account.ID); got != 9000 {
        t.Fatalf("expected a single debit, balance %d", got)
    }

    in.Amount = 2000
    if _, err := st.Transfer(ctx, in); !errors.Is(err, store.ErrIdempotencyConflict) {
        t.Fatalf("expected idempotency conflict, got %v", err)
    }
}

func TestTransferConcurrentSameKeyAppliesOnce(t *testing.T) {
    st, pool := newStore(t)
    alice := createUser(t, st, "alice", 10000)
    bob := createUser(t, st, "bob", 0)

    in := store.TransferInput{
        UserID:         alice.User.ID,
        ToAccount:      bob.Account.AccountNumber,
        Amount:         1000,
        Method:         "local",
        IdempotencyKey: "same",
    }

    var wg sync.WaitGroup
    errs := make(chan error, 5)
    for i := 0; i < 5; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := st.Transfer(context.Background(), in)
            errs <- err
        }()
    }
    wg.Wait()
    close(errs)

    for err := range errs {
        if err != nil {
            t.Fatalf("transfer: %v", err)
        }
    }
    if got := storetest.Balance(t, pool, bob.Account.ID); got != 1000 {
        t.Fatalf("expected one credit, bob balance %d", got)
    }
}

func TestTransferFailedCreditRollsBackDebit(t *testing.T) {
    st, pool := newStore(t)
    ctx := context.Background()
    alice := createUser(t, st, "alice", 10000)
    bob := createUser(t, st, "bob", 0)

    frozen := store.AccountFrozen
    if _, err := st.UpdateAccount(ctx, bob.Account.ID, store.AccountUpdate{Status: &frozen}); err != nil {
        t.Fatalf("freeze: %v", err)
    }

    in := store.TransferInput{
        UserID:         alice.User.ID,
        ToAccount:      bob.Account.AccountNumber,
        Amount:         1000,
        Method:         "local",
        IdempotencyKey: "retry-me",
    }
    if _, err := st.Transfer(ctx, in); !errors.Is(err, store.ErrAccountBlocked) {
        t.Fatalf("expected account blocked, got %v", err)
    }
    if got := storetest.Balance(t, pool, alice.Account.ID); got != 10000 {
        t.Fatalf("debit must roll back, balance %d", got)
    }
    if count, _ := storetest.LedgerSum(t, pool, alice.Account.ID); count != 1 {
        t.Fatalf("expected no transfer rows, got %d rows", count)
    }

    active := store.AccountActive
    if _, err := st.UpdateAccount(ctx, bob.Account.ID, store.AccountUpdate{Status: &active}); err != nil {
        t.Fatalf("unfreeze: %v", err)
    }
    res, err := st.Transfer(ctx, in)
    if err != nil {
        t.Fatalf("retry: %v", err)
    }
    if res.Replayed {
        t.Fatalf("a rolled back attempt must not leave the key claimed")
    }
}

func TestTransferBlockedByHold(t *testing.T) {
    st, pool := newStore(t)
    ctx := context.Background()
    alice := createUser(t, st, "alice", 10000)
    bob := createUser(t, st, "bob", 0)

    msg := "Please contact support to verify your identity"
    if _, err := st.UpdateAccount(ctx, alice.Account.ID, store.AccountUpdate{HoldMessage: &msg}); err != nil {
        t.Fatalf("set hold: %v", err)
    }

    _, err := st.Transfer(ctx, store.TransferInput{
        UserID:    alice.User.ID,
        ToAccount: bob.Account.AccountNumber,
        Amount:    1000,
        Method:    "local",
    })
    var hold *store.HoldError
    if !errors.As(err, &hold) || hold.Message != msg {
        t.Fatalf("expected hold error with message, got %v", err)
    }
    if got := storetest.Balance(t, pool, alice.Account.ID); got != 10000 {
        t.Fatalf("expected balance unchanged, got %d", got)
    }

    empty := ""
    if _, err := st.UpdateAccount(ctx, alice.Account.ID, store.AccountUpdate{HoldMessage: &empty}); err != nil {
        t.Fatalf("clear hold: %v", err)
    }
    if _, err := st.Transfer(ctx, store.TransferInput{
        UserID:    alice.User.ID,
        ToAccount: bob.Account.AccountNumber,
        Amount:    1000,
        Method:    "local",
    }); err != nil {
        t.Fatalf("transfer after clearing hold: %v", err)
    }
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
    st, pool := newStore(t)
    alice := createUser(t, st, "alice", 10000)
    bob := createUser(t, st, "bob", 0)

    var wg sync.WaitGroup
    errs := make(chan error, 2)
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := st.Transfer(context.Background(), store.TransferInput{
                UserID:    alice.User.ID,
                ToAccount: bob.Account.AccountNumber,
                Amount:    6000,
                Method:    "local",
            })
            errs <- err
        }()
    }
    wg.Wait()
    close(errs)

    succeeded, rejected := 0, 0
    for err := range errs {
        switch {
        case err == nil:
            succeeded++
        case errors.Is(err, store.ErrInsufficientBalance):
            rejected++
        default:
            t.Fatalf("unexpected error: %v", err)
        }
    }
    if succeeded != 1 || rejected != 1 {
        t.Fatalf("expected 1 success and 1 rejection, got %d and %d", succeeded, rejected)
    }
    if got := storetest.Balance(t, pool, alice.Account.ID); got != 4000 {
        t.Fatalf("expected alice balance 4000, got %d", got)
    }
    if got := storetest.Balance(t, pool, bob.Account.ID); got != 6000 {
        t.Fatalf("expected bob balance 6000, got %d", got)
    }
}

func TestOpposingTransfersDoNotDeadlock(t *testing.T) {
    st, pool := newStore(t)
    alice := createUser(t, st, "alice", 100000)
    bob := createUser(t, st, "bob", 100000)

    var wg sync.WaitGroup
    errs := make(chan error, 20)
    for i := 0; i < 10; i++ {
        wg.Add(2)
        go func() {
            defer wg.Done()
            _, err := st.Transfer(context.Background(), store.TransferInput{
                UserID: alice.User.ID, ToAccount: bob.Account.AccountNumber, Amount: 100, Method: "local",
            })
            errs <- err
        }()
        go func() {
            defer wg.Done()
            _, err := st.Transfer(context.Background(), store.TransferInput{
                UserID: bob.User.ID, ToAccount: alice.Account.AccountNumber, Amount: 100, Method: "local",
            })
            errs <- err
        }()
    }
    wg.Wait()
    close(errs)

    for err := range errs {
        if err != nil {
            t.Fatalf("transfer: %v", err)
        }
    }
    total := storetest.Balance(t, pool, alice.Account.ID) + storetest.Balance(t, pool, bob.Account.ID)
    if total != 200000 {
        t.Fatalf("money was created or destroyed: total %d", total)
    }
    assertLedgerMatches(t, pool, alice.Account.ID)
    assertLedgerMatches(t, pool, bob.Account.ID)
}

func TestTransferValidation(t *testing.T) {
    st, _ := newStore(t, store.WithTransferLimit(5000))
    ctx := context.Background()
    alice := createUser(t, st, "alice", 10000)
    bob := createUser(t, st, "bob", 0)
    euro, err := st.CreateUser(ctx, store.CreateUserInput{
        Email: "carol@example.com", Name: "carol", Password: "correct horse battery", Currency: "EUR",
    })
    if err != nil {
        t.Fatalf("create eur user: %v", err)
    }

    cases := []struct {
        name string
        in   store.TransferInput
        want error
    }{
        {"zero amount", store.TransferInput{ToAccount: bob.Account.AccountNumber, Amount: 0}, store.ErrInvalidAmount},
        {"over limit", store.TransferInput{ToAccount: bob.Account.AccountNumber, Amount: 5001}, store.ErrLimitExceeded},
        {"same account", store.TransferInput{ToAccount: alice.Account.AccountNumber, Amount: 100}, store.ErrSameAccount},
        {"unknown account", store.TransferInput{ToAccount: "0000000000", Amount: 100}, store.ErrAccountNotFound},
        {"currency mismatch", store.TransferInput{ToAccount: euro.Account.AccountNumber, Amount: 100}, store.ErrCurrencyMismatch},
    }
    for _, tc := range cases {
        tc.in.UserID = alice.User.ID
        tc.in.Method = "local"
        if _, err := st.Transfer(ctx, tc.in); !errors.Is(err, tc.want) {
            t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
        }
    }
}

func TestTransferScenarios(t *testing.T) {
    t.Run("debit and credit pair", func(t *testing.T) {
        st, pool := newStore(t)
        a := createUser(t, st, "a", 50000)
        b := createUser(t, st, "b", 20000)

        res, err := st.Transfer(context.Background(), store.TransferInput{
            UserID: a.User.ID, ToAccount: b.Account.AccountNumber, Amount: 10000, Method: "local",
        })
        if err != nil {
            t.Fatalf("transfer: %v", err)
        }
        if res.Debit.Amount != -10000 || res.Credit.Amount != 10000 {
            t.Fatalf("unexpected amounts %d, %d", res.Debit.Amount, res.Credit.Amount)
        }
        if got := storetest.Balance(t, pool, a.Account.ID); got != 40000 {
            t.Fatalf("expected A=40000, got %d", got)
        }
        if got := storetest.Balance(t, pool, b.Account.ID); got != 30000 {
            t.Fatalf("expected B=30000, got %d", got)
        }
        if *res.Debit.BalanceAfter != 40000 || *res.Credit.BalanceAfter != 30000 {
            t.Fatalf("unexpected balance_after %d, %d", *res.Debit.BalanceAfter, *res.Credit.BalanceAfter)
        }
    })

    t.Run("insufficient funds leaves no rows", func(t *testing.T) {
        st, pool := newStore(t)
        a := createUser(t, st, "a", 2000)
        b := createUser(t, st, "b", 0)

        _, err := st.Transfer(context.Background(), store.TransferInput{
            UserID: a.User.ID, ToAccount: b.Account.AccountNumber, Amount: 5000, Method: "local",
        })
        if !errors.Is(err, store.ErrInsufficientBalance) {
            t.Fatalf("expected insufficient balance, got %v", err)
        }
        if got := storetest.Balance(t, pool, a.Account.ID); got != 2000 {
            t.Fatalf("expected balance unchanged, got %d", got)
        }
        if count, _ := storetest.LedgerSum(t, pool, b.Account.ID); count != 0 {
            t.Fatalf("expected no credit rows, got %d", count)
        }
    })
}
