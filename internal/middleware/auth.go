package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"filehost-backend/internal/apierror"
	"filehost-backend/internal/metrics"
	"filehost-backend/internal/models"
	"filehost-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const clientKey contextKey = "client"

const (
	// APIKeyHeader carries the tenant API key
	APIKeyHeader = "X-API-KEY"
	// AdminKeyHeader carries the provisioning key
	AdminKeyHeader = "X-ADMIN-KEY"
	// APIKeyQueryParam is accepted where headers cannot be set, i.e. browser websockets
	APIKeyQueryParam = "api_key"
)

// ClientValidator resolves an API key to an active client
type ClientValidator interface {
	ValidateClient(ctx context.Context, apiKey string) (*models.Client, error)
}

// APIKeyAuth authenticates the tenant by its API key and puts the client in the context
func APIKeyAuth(validator ClientValidator, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" && allowQuery {
				apiKey = r.URL.Query().Get(APIKeyQueryParam)
			}
			if apiKey == "" {
				metrics.AuthFailuresTotal.WithLabelValues("api_key").Inc()
				apierror.Write(w, r, "API key required", http.StatusUnauthorized)
				return
			}

			client, err := validator.ValidateClient(r.Context(), apiKey)
			if err != nil {
				if errors.Is(err, services.ErrInvalidAPIKey) {
					metrics.AuthFailuresTotal.WithLabelValues("api_key").Inc()
					apierror.Write(w, r, "Invalid API key", http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to validate API key")
				apierror.Write(w, r, "Internal server error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client)))
		})
	}
}

// AdminAuth guards provisioning routes. An empty admin key disables them.
func AdminAuth(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				apierror.Write(w, r, "Admin API is disabled", http.StatusForbidden)
				return
			}
			given := r.Header.Get(AdminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(adminKey)) != 1 {
				metrics.AuthFailuresTotal.WithLabelValues("admin_key").Inc()
				apierror.Write(w, r, "Invalid admin key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClient extracts the authenticated client from context
func GetClient(ctx context.Context) *models.Client {
	client, ok := ctx.Value(clientKey).(*models.Client)
	if !ok {
		return nil
	}
	return client
}

// WithClient returns a context carrying client
func WithClient(ctx context.Context, client *models.Client) context.Context {
	return context.WithValue(ctx, clientKey, client)
}
