package main

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "syscall"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/joho/godotenv"
    "github.com/shopspring/decimal"

    "ledger.hh/internal/api"
    "ledger.hh/internal/money"
    "ledger.hh/internal/store"
)

type config struct {
    DatabaseURL   string
    JWTSecret     string
    Port          string
    Env           string
    Rate          money.Rate
    TransferLimit int64
    MaxConns      int32
}

func loadConfig() (config, error) {
    dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
    if dbURL == "" {
        host := strings.TrimSpace(os.Getenv("DB_HOST"))
        if host == "" {
            host = "localhost"
        }
        port := strings.TrimSpace(os.Getenv("DB_PORT"))
        if port == "" {
            port = "5432"
        }
        user := strings.TrimSpace(os.Getenv("DB_USER"))
        password := strings.TrimSpace(os.Getenv("DB_PASSWORD"))
        name := strings.TrimSpace(os.Getenv("DB_NAME"))
        sslmode := strings.TrimSpace(os.Getenv("DB_SSLMODE"))
        if sslmode == "" {
            sslmode = "disable"
        }
        if user == "" || password == "" || name == "" {
            return config{}, errors.New("DATABASE_URL or DB_USER/DB_PASSWORD/DB_NAME are required")
        }
        dbURL = fmt.Sprintf(
            "host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
            host,
            port,
            user,
            password,
            name,
            sslmode,
        )
    }

    secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
    if len(secret) < 32 {
        return config{}, errors.New("JWT_SECRET of at least 32 bytes is required")
    }

    port := strings.TrimSpace(os.Getenv("PORT"))
    if port == "" {
        port = "8080"
    }

    env := strings.TrimSpace(os.Getenv("ENV"))
    if env == "" {
        env = "production"
    }

    rawRate := strings.TrimSpace(os.Getenv("BTC_USD_RATE"))
    if rawRate == "" {
        rawRate = "92600"
    }
    usdPerBTC, err := decimal.NewFromString(rawRate)
    if err != nil {
        return config{}, fmt.Errorf("BTC_USD_RATE: %w", err)
    }
    rate, err := money.NewRate(usdPerBTC)
    if err != nil {
        return config{}, fmt.Errorf("BTC_USD_RATE: %w", err)
    }

    var limit int64
    if raw := strings.TrimSpace(os.Getenv("MAX_TRANSFER_AMOUNT")); raw != "" {
        d, err := decimal.NewFromString(raw)
        if err != nil {
            return config{}, fmt.Errorf("MAX_TRANSFER_AMOUNT: %w", err)
        }
        if limit, err = money.Cents(d); err != nil || limit <= 0 {
            return config{}, errors.New("MAX_TRANSFER_AMOUNT must be a positive amount")
        }
    }

    maxConns := int32(10)
    if raw := strings.TrimSpace(os.Getenv("DB_MAX_CONNS")); raw != "" {
        n, err := strconv.ParseInt(raw, 10, 32)
        if err != nil || n <= 0 {
            return config{}, errors.New("DB_MAX_CONNS must be a positive integer")
        }
        maxConns = int32(n)
    }

    return config{
        DatabaseURL:   dbURL,
        JWTSecret:     secret,
        Port:          port,
        Env:           env,
        Rate:          rate,
        TransferLimit: limit,
        MaxConns:      maxConns,
    }, nil
}

func main() {
    logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
    slog.SetDefault(logger)

    if err := godotenv.Load(); err != nil {
        logger.Warn("no .env file found, using process environment")
    }

    cfg, err := loadConfig()
    if err != nil {
        logger.Error("config error", "error", err)
        os.Exit(1)
    }

    ctx := context.Background()
    poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
    if err != nil {
        logger.Error("db config error", "error", err)
        os.Exit(1)
    }
    poolCfg.MaxConns = cfg.MaxConns
    poolCfg.MaxConnLifetime = time.Hour
    poolCfg.MaxConnIdleTime = 30 * time.Minute

    pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
    if err != nil {
        logger.Error("db error", "error", err)
        os.Exit(1)
    }
    defer pool.Close()

    if err := store.Migrate(ctx, pool); err != nil {
        logger.Error("migration error", "error", err)
        os.Exit(1)
    }

    st := store.New(pool, store.WithTransferLimit(cfg.TransferLimit))
    srv := api.NewServer(st, api.Config{
        JWTSecret:   cfg.JWTSecret,
        Rate:        cfg.Rate,
        Development: cfg.Env == "development",
    }, logger)

    httpServer := &http.Server{
        Addr:              ":" + cfg.Port,
        Handler:           srv.Routes(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    go func() {
        logger.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
        if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Error("server error", "error", err)
            os.Exit(1)
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit

    ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = httpServer.Shutdown(ctxShutdown)
}
