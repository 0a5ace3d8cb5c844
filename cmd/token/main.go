// Command token mints a session token for local testing.
package main

import (
    "flag"
    "fmt"
    "os"
    "time"

    "github.com/joho/godotenv"

    "ledger.hh/internal/api"
    "ledger.hh/internal/store"
)

func main() {
    _ = godotenv.Load()

    userID := flag.Int64("user", 0, "user id (sub claim)")
    role := flag.String("role", store.RoleUser, "role claim: user or admin")
    ttl := flag.Duration("ttl", time.Hour, "token lifetime")
    flag.Parse()

    secret := os.Getenv("JWT_SECRET")
    if secret == "" || *userID <= 0 {
        fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... token -user ID [-role admin] [-ttl 1h]")
        os.Exit(2)
    }
    if *role != store.RoleUser && *role != store.RoleAdmin {
        fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
        os.Exit(2)
    }

    token, err := api.IssueToken([]byte(secret), *userID, *role, *ttl)
    if err != nil {
        fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
        os.Exit(1)
    }
    fmt.Println(token)
}
