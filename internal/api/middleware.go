package api

import (
    "context"
    "net/http"

    "github.com/google/uuid"
)

const requestIDKey contextKey = "request_id"

func requestID(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := r.Header.Get("X-Request-ID")
        if id == "" {
            id = uuid.NewString()
        }
        w.Header().Set("X-Request-ID", id)
        ctx := context.WithValue(r.Context(), requestIDKey, id)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

func requestIDFrom(ctx context.Context) string {
    id, _ := ctx.Value(requestIDKey).(string)
    return id
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if v := recover(); v != nil {
                s.logger.ErrorContext(r.Context(), "panic", "request_id", requestIDFrom(r.Context()), "value", v)
                writeError(w, http.StatusInternalServerError, "internal_error")
            }
        }()
        next.ServeHTTP(w, r)
    })
}
