package api

import (
    "io"
    "log/slog"
    "net/http"

    "github.com/gorilla/mux"

    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

type Config struct {
    JWTSecret   string
    Rate        money.Rate
    Development bool
}

type Server struct {
    store   *store.Store
    secret  []byte
    rate    money.Rate
    devMode bool
    logger  *slog.Logger
}

func NewServer(st *store.Store, cfg Config, logger *slog.Logger) *Server {
    if logger == nil {
        logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
    }
    return &Server{
        store:   st,
        secret:  []byte(cfg.JWTSecret),
        rate:    cfg.Rate,
        devMode: cfg.Development,
        logger:  logger,
    }
}

func (s *Server) Routes() http.Handler {
    r := mux.NewRouter()
    r.Use(requestID, s.recoverPanic)

    r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

    user := r.NewRoute().Subrouter()
    user.Use(s.authMiddleware)
    user.HandleFunc("/transfers", s.handleTransfer).Methods(http.MethodPost)
    user.HandleFunc("/currency-swap", s.handleSwap).Methods(http.MethodPost)
    user.HandleFunc("/currency-swap/rate", s.handleRate).Methods(http.MethodGet)
    user.HandleFunc("/deposits", s.handleCreateDeposit).Methods(http.MethodPost)
    user.HandleFunc("/deposits/{reference}/proof", s.handleDepositProof).Methods(http.MethodPost)
    user.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
    user.HandleFunc("/accounts/transfer-message", s.handleTransferMessage).Methods(http.MethodGet)
    user.HandleFunc("/transactions", s.handleRecentTransactions).Methods(http.MethodGet)
    user.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

    admin := r.PathPrefix("/admin").Subrouter()
    admin.Use(s.authMiddleware, requireAdmin)
    admin.HandleFunc("/accounts/create-user", s.handleAdminCreateUser).Methods(http.MethodPost)
    admin.HandleFunc("/accounts/{id:[0-9]+}", s.handleAdminUpdateAccount).Methods(http.MethodPatch)
    admin.HandleFunc("/accounts/{id:[0-9]+}", s.handleAdminDeleteAccount).Methods(http.MethodDelete)
    admin.HandleFunc("/accounts/{id:[0-9]+}/transactions", s.handleAdminAccountTransactions).Methods(http.MethodGet)
    admin.HandleFunc("/accounts/{id:[0-9]+}/deposit", s.handleAdminDeposit).Methods(http.MethodPost)
    admin.HandleFunc("/accounts/{id:[0-9]+}/debit", s.handleAdminDebit).Methods(http.MethodPost)
    admin.HandleFunc("/accounts/{id:[0-9]+}/transfer", s.handleAdminTransfer).Methods(http.MethodPost)
    admin.HandleFunc("/accounts/{id:[0-9]+}/receive", s.handleAdminReceive).Methods(http.MethodPost)
    admin.HandleFunc("/users/{id:[0-9]+}", s.handleAdminDeleteUser).Methods(http.MethodDelete)
    admin.HandleFunc("/users/{id:[0-9]+}/accounts", s.handleAdminOpenAccount).Methods(http.MethodPost)
    admin.HandleFunc("/transactions/{id:[0-9]+}", s.handleAdminUpdateTransaction).Methods(http.MethodPatch)

    r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        writeError(w, http.StatusNotFound, "not_found")
    })
    r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
    })
    return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
    if err := s.store.Ping(r.Context()); err != nil {
        s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
        writeError(w, http.StatusServiceUnavailable, "unavailable")
        return
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
