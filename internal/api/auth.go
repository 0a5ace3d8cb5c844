package api

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"

    "ledger.hh/internal/store"
)

// Claims identify the caller. Sessions are issued elsewhere; this service
// only verifies them.
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

type identity struct {
    UserID int64
    Role   string
}

type contextKey string

const identityKey contextKey = "identity"

// IssueToken signs an HS256 token for userID.
func IssueToken(secret []byte, userID int64, role string, ttl time.Duration) (string, error) {
    now := time.Now()
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatInt(userID, 10),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
        },
    }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (identity, error) {
    var claims Claims
    _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
        return secret, nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        return identity{}, err
    }
    id, err := strconv.ParseInt(claims.Subject, 10, 64)
    if err != nil || id <= 0 {
        return identity{}, errors.New("invalid subject")
    }
    role := claims.Role
    if role == "" {
        role = store.RoleUser
    }
    return identity{UserID: id, Role: role}, nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        token := extractBearerToken(r.Header.Get("Authorization"))
        if token == "" {
            writeError(w, http.StatusUnauthorized, "unauthorized")
            return
        }
        id, err := parseToken(s.secret, token)
        if err != nil {
            s.logEvent(r.Context(), "auth_failed", map[string]any{"reason": err.Error()})
            writeError(w, http.StatusUnauthorized, "unauthorized")
            return
        }
        ctx := context.WithValue(r.Context(), identityKey, id)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

func requireAdmin(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if identityFrom(r.Context()).Role != store.RoleAdmin {
            writeError(w, http.StatusForbidden, "forbidden")
            return
        }
        next.ServeHTTP(w, r)
    })
}

func identityFrom(ctx context.Context) identity {
    id, _ := ctx.Value(identityKey).(identity)
    return id
}

func extractBearerToken(header string) string {
    if header == "" {
        return ""
    }
    parts := strings.SplitN(header, " ", 2)
    if len(parts) != 2 {
        return ""
    }
    if !strings.EqualFold(parts[0], "Bearer") {
        return ""
    }
    return strings.TrimSpace(parts[1])
}
