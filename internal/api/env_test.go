package api_test

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"

    "ledger.hh/internal/api"
    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
    "ledger.hh/internal/store/storetest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
    pool   *pgxpool.Pool
    store  *store.Store
    server *httptest.Server
    client *http.Client
}

type errorBody struct {
    Error   string `json:"error"`
    Message string `json:"message"`
}

type accountBody struct {
    ID             int64       `json:"id"`
    AccountNumber  string      `json:"accountNumber"`
    Balance        json.Number `json:"balance"`
    BitcoinBalance json.Number `json:"bitcoinBalance"`
    Status         string      `json:"status"`
    IsPrimary      bool        `json:"isPrimary"`
    HoldMessage    string      `json:"holdMessage"`
}

type transactionBody struct {
    ID           int64          `json:"id"`
    Reference    string         `json:"reference"`
    Type         string         `json:"type"`
    Amount       json.Number    `json:"amount"`
    Status       string         `json:"status"`
    BalanceAfter *json.Number   `json:"balanceAfter"`
    Metadata     map[string]any `json:"metadata"`
}

// setupTest starts a server backed by Postgres. It skips when DATABASE_URL is unset.
func setupTest(t *testing.T) *testEnv {
    t.Helper()

    pool := storetest.Open(t, "api_test")
    st := store.New(pool)
    return startServer(t, st, pool)
}

// setupOffline starts a server with no database, for paths that are rejected
// before the store is reached.
func setupOffline(t *testing.T) *testEnv {
    t.Helper()
    return startServer(t, nil, nil)
}

func startServer(t *testing.T, st *store.Store, pool *pgxpool.Pool) *testEnv {
    t.Helper()

    srv := api.NewServer(st, api.Config{
        JWTSecret: testSecret,
        Rate:      money.MustRate("92600"),
    }, nil)
    ts := httptest.NewServer(srv.Routes())
    t.Cleanup(ts.Close)

    return &testEnv{
        pool:   pool,
        store:  st,
        server: ts,
        client: &http.Client{Timeout: 5 * time.Second},
    }
}

func token(t *testing.T, userID int64, role string) string {
    t.Helper()
    tok, err := api.IssueToken([]byte(testSecret), userID, role, time.Hour)
    if err != nil {
        t.Fatalf("issue token: %v", err)
    }
    return tok
}

func (e *testEnv) doRequest(t *testing.T, method, path, tok, body string, headers ...string) *http.Response {
    t.Helper()

    req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
    if err != nil {
        t.Fatalf("new request: %v", err)
    }
    if tok != "" {
        req.Header.Set("Authorization", "Bearer "+tok)
    }
    req.Header.Set("Content-Type", "application/json")
    for i := 0; i+1 < len(headers); i += 2 {
        req.Header.Set(headers[i], headers[i+1])
    }

    resp, err := e.client.Do(req)
    if err != nil {
        t.Fatalf("do request: %v", err)
    }
    return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
    t.Helper()
    defer resp.Body.Close()
    if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
        t.Fatalf("decode response: %v", err)
    }
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
    t.Helper()
    if resp.StatusCode != want {
        var body errorBody
        _ = json.NewDecoder(resp.Body).Decode(&body)
        resp.Body.Close()
        t.Fatalf("expected %d, got %d (%s: %s)", want, resp.StatusCode, body.Error, body.Message)
    }
}

func expectError(t *testing.T, resp *http.Response, status int, code string) errorBody {
    t.Helper()
    if resp.StatusCode != status {
        resp.Body.Close()
        t.Fatalf("expected %d, got %d", status, resp.StatusCode)
    }
    var body errorBody
    decode(t, resp, &body)
    if body.Error != code {
        t.Fatalf("expected error %q, got %q (%s)", code, body.Error, body.Message)
    }
    return body
}

func seedUser(t *testing.T, st *store.Store, name, role string, opening int64) store.CreateUserResult {
    t.Helper()
    res, err := st.CreateUser(context.Background(), store.CreateUserInput{
        Email:          name + "@example.com",
        Name:           name,
        Password:       "correct horse battery",
        Role:           role,
        OpeningBalance: opening,
    })
    if err != nil {
        t.Fatalf("seed user %s: %v", name, err)
    }
    return res
}
