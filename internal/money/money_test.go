package money

import (
    "errors"
    "testing"

    "github.com/shopspring/decimal"
)

func TestCents(t *testing.T) {
    cases := []struct {
        in   string
        want int64
        err  error
    }{
        {"100", 10000, nil},
        {"0.01", 1, nil},
        {"12.3", 1230, nil},
        {"12.30", 1230, nil},
        {"-5.5", -550, nil},
        {"0.001", 0, ErrTooPrecise},
        {"99999999999999999999", 0, ErrOutOfRange},
    }
    for _, tc := range cases {
        got, err := Cents(decimal.RequireFromString(tc.in))
        if !errors.Is(err, tc.err) {
            t.Fatalf("Cents(%s) err=%v want %v", tc.in, err, tc.err)
        }
        if err == nil && got != tc.want {
            t.Fatalf("Cents(%s)=%d want %d", tc.in, got, tc.want)
        }
    }
}

func TestSats(t *testing.T) {
    got, err := Sats(decimal.RequireFromString("0.01079913"))
    if err != nil {
        t.Fatal(err)
    }
    if got != 1079913 {
        t.Fatalf("sats=%d want 1079913", got)
    }
    if _, err := Sats(decimal.RequireFromString("0.000000001")); !errors.Is(err, ErrTooPrecise) {
        t.Fatalf("expected ErrTooPrecise, got %v", err)
    }
}

func TestFormat(t *testing.T) {
    if got := FormatCents(40000); got != "400.00" {
        t.Fatalf("FormatCents=%s", got)
    }
    if got := FormatCents(-5); got != "-0.05" {
        t.Fatalf("FormatCents=%s", got)
    }
    if got := FormatSats(1079913); got != "0.01079913" {
        t.Fatalf("FormatSats=%s", got)
    }
}

func TestCentsToSatsRoundsDown(t *testing.T) {
    r := MustRate("92600")

    sats, err := r.CentsToSats(100000)
    if err != nil {
        t.Fatal(err)
    }
    if sats != 1079913 {
        t.Fatalf("1000 USD -> %d sats, want 1079913", sats)
    }

    // one cent buys 10.799 sats
    sats, _ = r.CentsToSats(1)
    if sats != 10 {
        t.Fatalf("0.01 USD -> %d sats, want 10", sats)
    }
}

func TestSatsToCents(t *testing.T) {
    r := MustRate("92600")

    cents, err := r.SatsToCents(100000000)
    if err != nil {
        t.Fatal(err)
    }
    if cents != 9260000 {
        t.Fatalf("1 BTC -> %d cents", cents)
    }

    cents, _ = r.SatsToCents(1079913)
    if cents != 99999 {
        t.Fatalf("round trip gave %d cents, want 99999", cents)
    }

    cents, _ = r.SatsToCents(10)
    if cents != 0 {
        t.Fatalf("10 sats -> %d cents, want 0", cents)
    }
}

func TestRoundTripNeverCreatesValue(t *testing.T) {
    r := MustRate("92600.37")
    for cents := int64(1); cents < 5000; cents += 7 {
        sats, err := r.CentsToSats(cents)
        if err != nil {
            t.Fatal(err)
        }
        back, err := r.SatsToCents(sats)
        if err != nil {
            t.Fatal(err)
        }
        if back > cents {
            t.Fatalf("%d cents -> %d sats -> %d cents", cents, sats, back)
        }
    }
}

func TestNewRate(t *testing.T) {
    if _, err := NewRate(decimal.Zero); !errors.Is(err, ErrInvalidRate) {
        t.Fatalf("expected ErrInvalidRate, got %v", err)
    }
    r, err := NewRate(decimal.RequireFromString("92600.5"))
    if err != nil {
        t.Fatal(err)
    }
    if r.CentsPerBTC() != 9260050 || r.Decimal().StringFixed(2) != "92600.50" {
        t.Fatalf("unexpected rate %d", r.CentsPerBTC())
    }
}
