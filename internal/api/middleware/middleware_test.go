package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	mw "github.com/personify-ai/personify/internal/api/middleware"
	"github.com/personify-ai/personify/internal/auth"
	"github.com/personify-ai/personify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	mw.Recovery(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLogger_PassesThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"ok":true}`))
	})

	rec := httptest.NewRecorder()
	mw.Logger(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestLogger_CarriesRequestID(t *testing.T) {
	var gotID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = chimw.GetReqID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	chimw.RequestID(mw.Logger(inner)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, gotID)
}

func TestAuth_HeaderShapes(t *testing.T) {
	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:       "middleware-test-secret-32-chars!!",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	a := mw.NewAuth(tokens)

	pair, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid bearer", "Bearer " + pair.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + pair.AccessToken, http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"refresh token rejected", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			a.Authenticate(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuth_SetsUserID(t *testing.T) {
	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:       "middleware-test-secret-32-chars!!",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	userID := uuid.New()
	pair, err := tokens.Issue(userID)
	require.NoError(t, err)

	var got uuid.UUID
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := mw.GetUserID(r)
		require.True(t, ok)
		got = id
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	mw.NewAuth(tokens).Authenticate(inner).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, got)
}
