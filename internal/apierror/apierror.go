package apierror

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Paths browsers request on their own; their errors are noise.
var quietPaths = map[string]bool{
	"/favicon.ico": true,
	"/sw.js":       true,
}

// Quiet reports whether errors on path are left out of the logs
func Quiet(path string) bool {
	return quietPaths[path]
}

// Response is the body of every error answer
type Response struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Timestamp  string   `json:"timestamp"`
	Path       string   `json:"path"`
}

// Write sends an error response for r
func Write(w http.ResponseWriter, r *http.Request, message string, statusCode int, errs ...string) {
	if errs == nil {
		errs = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(Response{
		StatusCode: statusCode,
		Message:    message,
		Errors:     errs,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
	}); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to encode error response")
	}
}
