package api

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
    Error   string `json:"error"`
    Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
    writeJSON(w, status, errorResponse{Error: code})
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
    writeJSON(w, status, errorResponse{Error: code, Message: message})
}

var errTrailingData = errors.New("unexpected data after JSON body")

// decodeJSON reads exactly one JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, v any) error {
    dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
    dec.DisallowUnknownFields()
    if err := dec.Decode(v); err != nil {
        return err
    }
    if err := dec.Decode(&struct{}{}); err != io.EOF {
        return errTrailingData
    }
    return nil
}
