package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the wire shape for every non-2xx response the ops API returns.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes a code+message body. Codes are stable identifiers the
// ops tooling matches on, messages are free text.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, APIError{Code: code, Message: message})
}
