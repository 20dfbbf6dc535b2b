package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error types carried in the "type" field of the error envelope.
const (
	errInvalidRequest = "invalid_request_error"
	errAPI            = "api_error"
	errUpstream       = "upstream_error"
	errNotFound       = "not_found_error"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
