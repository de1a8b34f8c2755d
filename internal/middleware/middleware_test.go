package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"filehost-backend/internal/models"
	"filehost-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]*models.Client

func (s stubValidator) ValidateClient(ctx context.Context, apiKey string) (*models.Client, error) {
	if apiKey == "boom" {
		return nil, errors.New("database down")
	}
	if c, ok := s[apiKey]; ok {
		return c, nil
	}
	return nil, services.ErrInvalidAPIKey
}

func echoClient(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	if client == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(client.ID))
}

func TestAPIKeyAuth(t *testing.T) {
	validator := stubValidator{"good": {ID: "c1", Active: true}}

	tests := []struct {
		name       string
		header     string
		query      string
		allowQuery bool
		wantStatus int
	}{
		{"missing key", "", "", false, http.StatusUnauthorized},
		{"unknown key", "bad", "", false, http.StatusUnauthorized},
		{"valid header", "good", "", false, http.StatusOK},
		{"query ignored by default", "", "good", false, http.StatusUnauthorized},
		{"query allowed", "", "good", true, http.StatusOK},
		{"store failure", "boom", "", false, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(validator, tt.allowQuery)(http.HandlerFunc(echoClient))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me?api_key="+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "c1", rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_ErrorBody(t *testing.T) {
	h := APIKeyAuth(stubValidator{}, false)(http.HandlerFunc(echoClient))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set(APIKeyHeader, "nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusUnauthorized), body["statusCode"])
	assert.Equal(t, "Invalid API key", body["message"])
	assert.Equal(t, "/api/v1/files", body["path"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body, "errors")
}

func TestAdminAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	AdminAuth("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil)
	req.Header.Set(AdminKeyHeader, "wrong")
	rec = httptest.NewRecorder()
	AdminAuth("secret")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set(AdminKeyHeader, "secret")
	rec = httptest.NewRecorder()
	AdminAuth("secret")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/files", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-KEY")
}

func TestRateLimit_PerClient(t *testing.T) {
	h := RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(clientID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req = req.WithContext(WithClient(req.Context(), &models.Client{ID: clientID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("a"))
	assert.Equal(t, http.StatusOK, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusOK, do("b"), "limits are per client")
}

func TestRateLimit_IgnoresUnauthenticatedKeyHeader(t *testing.T) {
	for name, mw := range map[string]func(http.Handler) http.Handler{
		"client limiter": RateLimit(2),
		"ip limiter":     RateLimitByIP(2),
	} {
		t.Run(name, func(t *testing.T) {
			h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			var codes []int
			for i := 0; i < 4; i++ {
				req := httptest.NewRequest(http.MethodGet, "/share/abc", nil)
				req.RemoteAddr = "1.2.3.4:5555"
				req.Header.Set(APIKeyHeader, fmt.Sprintf("garbage-%d", i))
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				codes = append(codes, rec.Code)
			}

			assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
		})
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	for _, mw := range []func(http.Handler) http.Handler{RateLimit(0), RateLimitByIP(-1)} {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	}
}

func TestRequestLogger_QuietPaths(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	notFound := RequestLogger(http.NotFoundHandler())
	for _, path := range []string{"/favicon.ico", "/sw.js"} {
		rec := httptest.NewRecorder()
		notFound.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Empty(t, buf.String())

	rec := httptest.NewRecorder()
	notFound.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, buf.String(), `"path":"/missing"`)
}
