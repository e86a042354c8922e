package http

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the "error" field
const (
	errUnauthorized     = "unauthorized"
	errRateLimited      = "rate_limited"
	errNotFound         = "not_found"
	errMethodNotAllowed = "method_not_allowed"
	errSlugCollision    = "slug_collision"
	errInternal         = "internal_error"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	// Headers are already sent; an encoding failure can only be dropped
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: message,
	})
}
