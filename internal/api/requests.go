package api

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/mail"
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

const maxDescription = 500

type transferMethod string

const (
    methodWire    transferMethod = "wire"
    methodPaypal  transferMethod = "paypal"
    methodCashapp transferMethod = "cashapp"
    methodCrypto  transferMethod = "crypto"
    methodWise    transferMethod = "wise"
    methodZelle   transferMethod = "zelle"
    methodLocal   transferMethod = "local"
)

// validateDetails checks the fields each method needs. Details are optional;
// when supplied they must match the method.
func (m transferMethod) validateDetails(d *store.TransferDetails) error {
    switch m {
    case methodWire, methodPaypal, methodCashapp, methodCrypto, methodWise, methodZelle, methodLocal:
    default:
        return fmt.Errorf("unknown method %q", string(m))
    }
    if d == nil {
        return nil
    }
    switch m {
    case methodWire:
        if strings.TrimSpace(d.BankName) == "" {
            return errors.New("wire details require bankName")
        }
    case methodPaypal, methodWise:
        if _, err := mail.ParseAddress(d.Email); err != nil {
            return fmt.Errorf("%s details require a valid email", m)
        }
    case methodZelle:
        if strings.TrimSpace(d.Email) == "" && strings.TrimSpace(d.Phone) == "" {
            return errors.New("zelle details require email or phone")
        }
    case methodCashapp:
        if !strings.HasPrefix(strings.TrimSpace(d.Cashtag), "$") {
            return errors.New("cashapp details require a $cashtag")
        }
    case methodCrypto:
        if strings.TrimSpace(d.WalletAddress) == "" {
            return errors.New("crypto details require walletAddress")
        }
    }
    return nil
}

// dateValue accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
type dateValue struct {
    time.Time
}

func (d *dateValue) UnmarshalJSON(b []byte) error {
    var s string
    if err := json.Unmarshal(b, &s); err != nil {
        return err
    }
    for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
        if t, err := time.Parse(layout, s); err == nil {
            d.Time = t
            return nil
        }
    }
    return fmt.Errorf("invalid date %q", s)
}

func (d *dateValue) ptr() *time.Time {
    if d == nil {
        return nil
    }
    t := d.Time
    return &t
}

func positiveCents(d decimal.Decimal) (int64, error) {
    v, err := money.Cents(d)
    if err != nil {
        return 0, err
    }
    if v <= 0 {
        return 0, errors.New("amount must be positive")
    }
    return v, nil
}

func positiveAmount(d decimal.Decimal, currency string) (int64, error) {
    v, err := money.ToMinor(d, money.ScaleFor(currency))
    if err != nil {
        return 0, err
    }
    if v <= 0 {
        return 0, errors.New("amount must be positive")
    }
    return v, nil
}

func checkDescription(s string) (string, error) {
    s = strings.TrimSpace(s)
    if len(s) > maxDescription {
        return "", errors.New("description too long")
    }
    return s, nil
}

type transferRequest struct {
    ToAccount      string                 `json:"toAccount"`
    Amount         decimal.Decimal        `json:"amount"`
    Description    string                 `json:"description"`
    Method         string                 `json:"method"`
    Details        *store.TransferDetails `json:"details,omitempty"`
    IdempotencyKey string                 `json:"idempotencyKey,omitempty"`
}

func (req transferRequest) input(userID int64, headerKey string) (store.TransferInput, error) {
    to := strings.TrimSpace(req.ToAccount)
    if to == "" {
        return store.TransferInput{}, errors.New("toAccount is required")
    }
    amount, err := positiveCents(req.Amount)
    if err != nil {
        return store.TransferInput{}, err
    }
    method := transferMethod(strings.ToLower(strings.TrimSpace(req.Method)))
    if method == "" {
        method = methodLocal
    }
    if err := method.validateDetails(req.Details); err != nil {
        return store.TransferInput{}, err
    }
    desc, err := checkDescription(req.Description)
    if err != nil {
        return store.TransferInput{}, err
    }
    key := strings.TrimSpace(headerKey)
    if key == "" {
        key = strings.TrimSpace(req.IdempotencyKey)
    }
    return store.TransferInput{
        UserID:         userID,
        ToAccount:      to,
        Amount:         amount,
        Description:    desc,
        Method:         string(method),
        Details:        req.Details,
        IdempotencyKey: key,
    }, nil
}

type swapRequest struct {
    FromCurrency string          `json:"fromCurrency"`
    ToCurrency   string          `json:"toCurrency"`
    Amount       decimal.Decimal `json:"amount"`
}

func (req swapRequest) input(userID int64, rate money.Rate) (store.SwapInput, error) {
    from := strings.ToUpper(strings.TrimSpace(req.FromCurrency))
    to := strings.ToUpper(strings.TrimSpace(req.ToCurrency))
    if from == "" || to == "" {
        return store.SwapInput{}, errors.New("fromCurrency and toCurrency are required")
    }
    amount, err := positiveAmount(req.Amount, from)
    if err != nil {
        return store.SwapInput{}, err
    }
    return store.SwapInput{
        UserID:       userID,
        FromCurrency: from,
        ToCurrency:   to,
        Amount:       amount,
        Rate:         rate,
    }, nil
}

var depositMethods = map[string]bool{"bank": true, "crypto": true, "check": true, "cash": true}

type depositRequest struct {
    Amount      decimal.Decimal `json:"amount"`
    Method      string          `json:"method"`
    Description string          `json:"description"`
    Hash        string          `json:"hash,omitempty"`
}

func (req depositRequest) input(userID int64) (store.DepositInput, error) {
    amount, err := positiveCents(req.Amount)
    if err != nil {
        return store.DepositInput{}, err
    }
    method := strings.ToLower(strings.TrimSpace(req.Method))
    if !depositMethods[method] {
        return store.DepositInput{}, fmt.Errorf("unknown deposit method %q", req.Method)
    }
    desc, err := checkDescription(req.Description)
    if err != nil {
        return store.DepositInput{}, err
    }
    return store.DepositInput{
        UserID:      userID,
        Amount:      amount,
        Method:      method,
        Description: desc,
        Proof:       strings.TrimSpace(req.Hash),
    }, nil
}

type proofRequest struct {
    Hash string `json:"hash"`
}

type createUserRequest struct {
    Email          string          `json:"email"`
    Name           string          `json:"name"`
    Password       string          `json:"password"`
    Role           string          `json:"role,omitempty"`
    Currency       string          `json:"currency,omitempty"`
    InitialBalance decimal.Decimal `json:"initialBalance"`
}

func (req createUserRequest) input() (store.CreateUserInput, error) {
    if _, err := mail.ParseAddress(req.Email); err != nil {
        return store.CreateUserInput{}, errors.New("invalid email")
    }
    name := strings.TrimSpace(req.Name)
    if name == "" {
        return store.CreateUserInput{}, errors.New("name is required")
    }
    if len(req.Password) < 8 {
        return store.CreateUserInput{}, errors.New("password must be at least 8 characters")
    }
    role := strings.ToLower(strings.TrimSpace(req.Role))
    if role != "" && role != store.RoleUser && role != store.RoleAdmin {
        return store.CreateUserInput{}, fmt.Errorf("unknown role %q", req.Role)
    }
    currency := strings.ToUpper(strings.TrimSpace(req.Currency))
    if currency == money.BTC || (currency != "" && len(currency) != 3) {
        return store.CreateUserInput{}, fmt.Errorf("invalid currency %q", req.Currency)
    }
    opening, err := money.Cents(req.InitialBalance)
    if err != nil {
        return store.CreateUserInput{}, err
    }
    if opening < 0 {
        return store.CreateUserInput{}, errors.New("initialBalance must not be negative")
    }
    return store.CreateUserInput{
        Email:          strings.TrimSpace(req.Email),
        Name:           name,
        Password:       req.Password,
        Role:           role,
        Currency:       currency,
        OpeningBalance: opening,
    }, nil
}

type openAccountRequest struct {
    Currency string `json:"currency"`
}

var adminDepositMethods = map[string]bool{"bank": true, "cash": true, "crypto": true, "check": true}

type adminDepositRequest struct {
    Amount        decimal.Decimal `json:"amount"`
    DepositorName string          `json:"depositorName"`
    Method        string          `json:"method"`
    BankAccount   string          `json:"bankAccount,omitempty"`
    Description   string          `json:"description,omitempty"`
    Date          *dateValue      `json:"date,omitempty"`
}

func (req adminDepositRequest) input(accountID int64) (store.AdminDepositInput, error) {
    amount, err := positiveCents(req.Amount)
    if err != nil {
        return store.AdminDepositInput{}, err
    }
    name := strings.TrimSpace(req.DepositorName)
    if name == "" {
        return store.AdminDepositInput{}, errors.New("depositorName is required")
    }
    method := strings.ToLower(strings.TrimSpace(req.Method))
    if method == "" {
        method = "bank"
    }
    if !adminDepositMethods[method] {
        return store.AdminDepositInput{}, fmt.Errorf("unknown deposit method %q", req.Method)
    }
    bankAccount := strings.TrimSpace(req.BankAccount)
    if method == "bank" && bankAccount == "" {
        return store.AdminDepositInput{}, errors.New("bank deposits require bankAccount")
    }
    desc, err := checkDescription(req.Description)
    if err != nil {
        return store.AdminDepositInput{}, err
    }
    return store.AdminDepositInput{
        AccountID:     accountID,
        Amount:        amount,
        DepositorName: name,
        Method:        method,
        BankAccount:   bankAccount,
        Description:   desc,
        Date:          req.Date.ptr(),
    }, nil
}

type adminDebitRequest struct {
    Amount      decimal.Decimal `json:"amount"`
    Description string          `json:"description"`
    Date        *dateValue      `json:"date,omitempty"`
}

func (req adminDebitRequest) input(accountID int64) (store.AdminDebitInput, error) {
    amount, err := positiveCents(req.Amount)
    if err != nil {
        return store.AdminDebitInput{}, err
    }
    desc, err := checkDescription(req.Description)
    if err != nil {
        return store.AdminDebitInput{}, err
    }
    if desc == "" {
        return store.AdminDebitInput{}, errors.New("description is required")
    }
    return store.AdminDebitInput{
        AccountID:   accountID,
        Amount:      amount,
        Description: desc,
        Date:        req.Date.ptr(),
    }, nil
}

type adminTransferRequest struct {
    Amount        decimal.Decimal `json:"amount"`
    ToAccount     string          `json:"toAccount"`
    RecipientName string          `json:"recipientName"`
    BankName      string          `json:"bankName,omitempty"`
    Description   string          `json:"description,omitempty"`
    Date          *dateValue      `json:"date,omitempty"`
}

func (req adminTransferRequest) input(accountID int64) (store.AdminTransferInput, error) {
    amount, err := positiveCents(req.Amount)
    if err != nil {
        return store.AdminTransferInput{}, err
    }
    to := strings.TrimSpace(req.ToAccount)
    if to == "" {
        return store.AdminTransferInput{}, errors.New("toAccount is required")
    }
    name := strings.TrimSpace(req.RecipientName)
    if name == "" {
        return store.AdminTransferInput{}, errors.New("recipientName is required")
    }
    desc, err := checkDescription(req.Description)
    if err != nil {
        return store.AdminTransferInput{}, err
    }
    return store.AdminTransferInput{
        AccountID:     accountID,
        Amount:        amount,
        ToAccount:     to,
        RecipientName: name,
        BankName:      strings.TrimSpace(req.BankName),
        Description:   desc,
        Date:          req.Date.ptr(),
    }, nil
}

type adminReceiveRequest struct {
    Amount        decimal.Decimal `json:"amount"`
    SenderName    string          `json:"senderName"`
    SenderAccount string          `json:"senderAccount"`
    SenderBank    string          `json:"senderBank,omitempty"`
    Description   string          `json:"description,omitempty"`
    Date          *dateValue      `json:"date,omitempty"`
}

func (req adminReceiveRequest) input(accountID int64) (store.AdminReceiveInput, error) {
    amount, err := positiveCents(req.Amount)
    if err != nil {
        return store.AdminReceiveInput{}, err
    }
    name := strings.TrimSpace(req.SenderName)
    account := strings.TrimSpace(req.SenderAccount)
    if name == "" || account == "" {
        return store.AdminReceiveInput{}, errors.New("senderName and senderAccount are required")
    }
    desc, err := checkDescription(req.Description)
    if err != nil {
        return store.AdminReceiveInput{}, err
    }
    return store.AdminReceiveInput{
        AccountID:     accountID,
        Amount:        amount,
        SenderName:    name,
        SenderAccount: account,
        SenderBank:    strings.TrimSpace(req.SenderBank),
        Description:   desc,
        Date:          req.Date.ptr(),
    }, nil
}

type updateAccountRequest struct {
    Status      *string `json:"status,omitempty"`
    HoldMessage *string `json:"holdMessage,omitempty"`
    IsPrimary   *bool   `json:"isPrimary,omitempty"`
}

func (req updateAccountRequest) update() (store.AccountUpdate, error) {
    if req.Status == nil && req.HoldMessage == nil && req.IsPrimary == nil {
        return store.AccountUpdate{}, errors.New("nothing to update")
    }
    if req.Status != nil {
        st := strings.ToLower(strings.TrimSpace(*req.Status))
        if !store.ValidAccountStatus(st) {
            return store.AccountUpdate{}, fmt.Errorf("unknown status %q", *req.Status)
        }
        req.Status = &st
    }
    if req.HoldMessage != nil && len(*req.HoldMessage) > maxDescription {
        return store.AccountUpdate{}, errors.New("holdMessage too long")
    }
    return store.AccountUpdate{
        Status:      req.Status,
        HoldMessage: req.HoldMessage,
        IsPrimary:   req.IsPrimary,
    }, nil
}

type updateTransactionRequest struct {
    Status string `json:"status"`
}

func (req updateTransactionRequest) status() (string, error) {
    st := strings.ToLower(strings.TrimSpace(req.Status))
    if !store.ValidTransactionStatus(st) {
        return "", fmt.Errorf("unknown status %q", req.Status)
    }
    return st, nil
}
