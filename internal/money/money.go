// Package money converts between boundary decimals and the int64 minor units
// the ledger stores: cents for fiat, satoshis for BTC.
package money

import (
    "errors"

    "github.com/shopspring/decimal"
)

const (
    FiatScale int32 = 2
    BTCScale  int32 = 8

    USD = "USD"
    BTC = "BTC"
)

var (
    ErrTooPrecise  = errors.New("amount has too many decimal places")
    ErrOutOfRange  = errors.New("amount out of range")
    ErrInvalidRate = errors.New("rate must be positive")
)

var satsPerBTC = decimal.New(1, BTCScale)

// ToMinor returns d expressed in units of 10^-scale. Values that would need
// rounding are rejected rather than rounded.
func ToMinor(d decimal.Decimal, scale int32) (int64, error) {
    shifted := d.Shift(scale)
    if !shifted.IsInteger() {
        return 0, ErrTooPrecise
    }
    bi := shifted.BigInt()
    if !bi.IsInt64() {
        return 0, ErrOutOfRange
    }
    return bi.Int64(), nil
}

func FromMinor(v int64, scale int32) decimal.Decimal {
    return decimal.New(v, -scale)
}

func Cents(d decimal.Decimal) (int64, error) {
    return ToMinor(d, FiatScale)
}

func Sats(d decimal.Decimal) (int64, error) {
    return ToMinor(d, BTCScale)
}

func FormatCents(v int64) string {
    return FromMinor(v, FiatScale).StringFixed(FiatScale)
}

func FormatSats(v int64) string {
    return FromMinor(v, BTCScale).StringFixed(BTCScale)
}

// ScaleFor returns the minor-unit scale of a currency code.
func ScaleFor(currency string) int32 {
    if currency == BTC {
        return BTCScale
    }
    return FiatScale
}

// Rate is the price of one BTC in USD cents.
type Rate struct {
    centsPerBTC int64
}

func NewRate(usdPerBTC decimal.Decimal) (Rate, error) {
    cents, err := Cents(usdPerBTC)
    if err != nil {
        return Rate{}, err
    }
    if cents <= 0 {
        return Rate{}, ErrInvalidRate
    }
    return Rate{centsPerBTC: cents}, nil
}

func MustRate(usdPerBTC string) Rate {
    r, err := NewRate(decimal.RequireFromString(usdPerBTC))
    if err != nil {
        panic(err)
    }
    return r
}

func (r Rate) CentsPerBTC() int64 {
    return r.centsPerBTC
}

func (r Rate) Decimal() decimal.Decimal {
    return FromMinor(r.centsPerBTC, FiatScale)
}

// CentsToSats converts a fiat amount to satoshis, rounding toward zero so
// the credited side never exceeds the debited value.
func (r Rate) CentsToSats(cents int64) (int64, error) {
    if r.centsPerBTC <= 0 {
        return 0, ErrInvalidRate
    }
    q, _ := decimal.NewFromInt(cents).Mul(satsPerBTC).QuoRem(decimal.NewFromInt(r.centsPerBTC), 0)
    return toInt64(q)
}

// SatsToCents converts satoshis to cents, rounding toward zero.
func (r Rate) SatsToCents(sats int64) (int64, error) {
    if r.centsPerBTC <= 0 {
        return 0, ErrInvalidRate
    }
    q, _ := decimal.NewFromInt(sats).Mul(decimal.NewFromInt(r.centsPerBTC)).QuoRem(satsPerBTC, 0)
    return toInt64(q)
}

func toInt64(d decimal.Decimal) (int64, error) {
    bi := d.BigInt()
    if !bi.IsInt64() {
        return 0, ErrOutOfRange
    }
    return bi.Int64(), nil
}
