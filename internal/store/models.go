package store

import (
    "time"

    "ledger.hh/internal/money"
)

const (
    StatusPending   = "pending"
    StatusCompleted = "completed"
    StatusFailed    = "failed"
    StatusCancelled = "cancelled"
)

const (
    TypeCredit       = "credit"
    TypeDebit        = "debit"
    TypeTransfer     = "transfer"
    TypeDeposit      = "deposit"
    TypeWithdrawal   = "withdrawal"
    TypeCurrencySwap = "currency_swap"
    TypeReceived     = "received"
)

const (
    AccountActive  = "active"
    AccountDormant = "dormant"
    AccountHold    = "hold"
    AccountFrozen  = "frozen"
    AccountClosed  = "closed"
)

const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

func ValidAccountStatus(s string) bool {
    switch s {
    case AccountActive, AccountDormant, AccountHold, AccountFrozen, AccountClosed:
        return true
    }
    return false
}

func ValidTransactionStatus(s string) bool {
    switch s {
    case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
        return true
    }
    return false
}

// CanTransition reports whether a transaction may move from one status to
// another. Only pending rows move; terminal states are absorbing.
func CanTransition(from, to string) bool {
    if from != StatusPending || !ValidTransactionStatus(to) {
        return false
    }
    return to != StatusPending
}

type User struct {
    ID        int64
    Email     string
    Name      string
    Role      string
    CreatedAt time.Time
}

type Account struct {
    ID            int64
    AccountNumber string
    UserID        int64
    Currency      string
    Balance       int64
    BTCBalance    int64
    Status        string
    IsPrimary     bool
    HoldMessage   string
    CreatedAt     time.Time
    UpdatedAt     time.Time
}

// OnHold reports whether outgoing transfers are gated.
func (a Account) OnHold() bool {
    return a.Status == AccountHold || a.HoldMessage != ""
}

func (a Account) Blocked() bool {
    return a.Status == AccountFrozen || a.Status == AccountClosed
}

type Transaction struct {
    ID              int64
    Reference       string
    AccountID       int64
    Type            string
    Amount          int64
    BTCAmount       int64
    Currency        string
    Status          string
    BalanceAfter    *int64
    BTCBalanceAfter *int64
    FromAccount     string
    ToAccount       string
    Description     string
    Metadata        map[string]any
    TransferGroup   string
    Proof           string
    CreatedAt       time.Time
    InsertedAt      time.Time
    UpdatedAt       time.Time
}

// Draft describes a transaction before the engine persists it.
type Draft struct {
    Type          string
    Status        string
    Currency      string
    FromAccount   string
    ToAccount     string
    Description   string
    Metadata      map[string]any
    TransferGroup string
    CreatedAt     *time.Time
}

// Posting is one ledger engine call: signed deltas against one account and
// the transaction that records them.
type Posting struct {
    AccountID   int64
    DeltaFiat   int64
    DeltaBTC    int64
    Draft       Draft
    EnforceHold bool
}

type TransferDetails struct {
    BankName      string `json:"bankName,omitempty"`
    AccountName   string `json:"accountName,omitempty"`
    SwiftCode     string `json:"swiftCode,omitempty"`
    RoutingNumber string `json:"routingNumber,omitempty"`
    Email         string `json:"email,omitempty"`
    Phone         string `json:"phone,omitempty"`
    Cashtag       string `json:"cashtag,omitempty"`
    WalletAddress string `json:"walletAddress,omitempty"`
    Network       string `json:"network,omitempty"`
}

type TransferInput struct {
    UserID         int64
    ToAccount      string
    Amount         int64
    Description    string
    Method         string
    Details        *TransferDetails
    IdempotencyKey string
}

type TransferResult struct {
    Debit    Transaction
    Credit   Transaction
    Source   Account
    Replayed bool
}

type SwapInput struct {
    UserID       int64
    FromCurrency string
    ToCurrency   string
    Amount       int64
    Rate         money.Rate
}

type SwapResult struct {
    Transaction Transaction
    Account     Account
}

type DepositInput struct {
    UserID      int64
    Amount      int64
    Method      string
    Description string
    Proof       string
}

type CreateUserInput struct {
    Email          string
    Name           string
    Password       string
    Role           string
    Currency       string
    OpeningBalance int64
}

type CreateUserResult struct {
    User    User
    Account Account
    Opening *Transaction
}

type AdminDepositInput struct {
    AccountID     int64
    Amount        int64
    DepositorName string
    Method        string
    BankAccount   string
    Description   string
    Date          *time.Time
}

type AdminDebitInput struct {
    AccountID   int64
    Amount      int64
    Description string
    Date        *time.Time
}

type AdminTransferInput struct {
    AccountID     int64
    Amount        int64
    ToAccount     string
    RecipientName string
    BankName      string
    Description   string
    Date          *time.Time
}

type AdminReceiveInput struct {
    AccountID     int64
    Amount        int64
    SenderName    string
    SenderAccount string
    SenderBank    string
    Description   string
    Date          *time.Time
}

// AccountUpdate carries optional changes; nil fields are left untouched.
// An empty HoldMessage clears the hold.
type AccountUpdate struct {
    Status      *string
    HoldMessage *string
    IsPrimary   *bool
}

type MonthlyStat struct {
    Month    time.Time
    Deposits int64
    Expenses int64
}

type Dashboard struct {
    Account Account
    Monthly []MonthlyStat
    Recent  []Transaction
}
