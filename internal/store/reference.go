package store

import (
    "crypto/rand"
    "errors"
    "math/big"
    "strings"

    "github.com/google/uuid"
)

const (
    maxGenerateAttempts = 5
    accountNumberDigits = 10
)

var errGenerateExhausted = errors.New("could not generate a unique identifier")

var accountNumberSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(accountNumberDigits), nil)

// NewReference returns a transaction reference. Uniqueness is enforced by the
// transactions_reference_key index; a collision is retried with a fresh value.
func NewReference() string {
    return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

var newReference = NewReference

func newAccountNumber() string {
    n, err := rand.Int(rand.Reader, accountNumberSpace)
    if err != nil {
        panic(err)
    }
    s := n.String()
    return strings.Repeat("0", accountNumberDigits-len(s)) + s
}
