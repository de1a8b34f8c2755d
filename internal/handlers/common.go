package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"filehost-backend/internal/apierror"
	"filehost-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError logs the failure unless the path is quiet and sends the error body
func respondError(w http.ResponseWriter, r *http.Request, message string, statusCode int, errs ...string) {
	if !apierror.Quiet(r.URL.Path) {
		event := log.Warn()
		if statusCode >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Int("status", statusCode).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Strs("errors", errs).
			Msg(message)
	}

	apierror.Write(w, r, message, statusCode, errs...)
}

// respondServiceError maps a service error to its HTTP status
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, r, verr.Message, http.StatusBadRequest, verr.Errors...)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, r, "Resource not found", http.StatusNotFound)
	case errors.Is(err, services.ErrShareTokenInvalid):
		respondError(w, r, "Share link is invalid or expired", http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidAPIKey):
		respondError(w, r, "Invalid API key", http.StatusUnauthorized)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondError(w, r, "Internal server error", http.StatusInternalServerError)
	}
}

// NotFound answers unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, "Route not found", http.StatusNotFound)
}

// MethodNotAllowed answers known routes with an unsupported method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
}

// parseBool accepts true/false/1/0; empty means false
func parseBool(field, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, &services.ValidationError{
		Message: "invalid request",
		Errors:  []string{fmt.Sprintf("%s must be one of true, false, 1, 0", field)},
	}
}

// queryInt reads a non-negative integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &services.ValidationError{
			Message: "invalid query",
			Errors:  []string{fmt.Sprintf("%s must be a non-negative integer", name)},
		}
	}
	return n, nil
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &services.ValidationError{Message: "Invalid request body", Errors: []string{err.Error()}}
	}
	return nil
}
