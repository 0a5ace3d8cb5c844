package store

import (
    "context"
    "fmt"

    "github.com/jackc/pgx/v5"

    "ledger.hh/internal/money"
)

// Swap converts between the fiat and BTC balances of the user's primary
// account. Both legs are applied by a single posting, so they land in one
// currency_swap row.
func (s *Store) Swap(ctx context.Context, in SwapInput) (SwapResult, error) {
    if in.Amount <= 0 {
        return SwapResult{}, ErrInvalidAmount
    }

    var deltaFiat, deltaBTC int64
    switch {
    case in.FromCurrency == money.USD && in.ToCurrency == money.BTC:
        sats, err := in.Rate.CentsToSats(in.Amount)
        if err != nil {
            return SwapResult{}, err
        }
        deltaFiat, deltaBTC = -in.Amount, sats
    case in.FromCurrency == money.BTC && in.ToCurrency == money.USD:
        cents, err := in.Rate.SatsToCents(in.Amount)
        if err != nil {
            return SwapResult{}, err
        }
        deltaFiat, deltaBTC = cents, -in.Amount
    default:
        return SwapResult{}, ErrUnsupportedPair
    }
    if deltaFiat == 0 || deltaBTC == 0 {
        return SwapResult{}, ErrAmountTooSmall
    }

    var res SwapResult
    err := s.inTx(ctx, func(tx pgx.Tx) error {
        acc, err := primaryAccount(ctx, tx, in.UserID)
        if err != nil {
            return err
        }
        if acc.Currency != money.USD {
            return ErrUnsupportedPair
        }

        txn, updated, err := apply(ctx, tx, Posting{
            AccountID: acc.ID,
            DeltaFiat: deltaFiat,
            DeltaBTC:  deltaBTC,
            Draft: Draft{
                Type:        TypeCurrencySwap,
                Currency:    in.FromCurrency,
                FromAccount: acc.AccountNumber,
                ToAccount:   acc.AccountNumber,
                Description: fmt.Sprintf("Swap %s to %s", in.FromCurrency, in.ToCurrency),
                Metadata:    swapMetadata(in, deltaFiat, deltaBTC),
            },
        })
        if err != nil {
            return err
        }
        res = SwapResult{Transaction: txn, Account: updated}
        return nil
    })
    if err != nil {
        return SwapResult{}, err
    }
    return res, nil
}

func swapMetadata(in SwapInput, deltaFiat, deltaBTC int64) map[string]any {
    fiat := map[string]any{"currency": money.USD, "amount": money.FormatCents(deltaFiat)}
    btc := map[string]any{"currency": money.BTC, "amount": money.FormatSats(deltaBTC)}
    meta := map[string]any{
        "fromCurrency": in.FromCurrency,
        "toCurrency":   in.ToCurrency,
        "rate":         in.Rate.Decimal().StringFixed(money.FiatScale),
    }
    if in.FromCurrency == money.USD {
        meta["debit"], meta["credit"] = fiat, btc
    } else {
        meta["debit"], meta["credit"] = btc, fiat
    }
    return meta
}
