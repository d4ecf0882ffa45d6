package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/personify-ai/personify/internal/auth"
	"github.com/personify-ai/personify/internal/config"
	"github.com/personify-ai/personify/internal/store"
	"github.com/personify-ai/personify/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUserStore is an in-memory store.Store for handler tests.
type memUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (s *memUserStore) Ping(context.Context) error { return nil }

func (s *memUserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrDuplicateKey
	}
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (s *memUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

var _ store.Store = (*memUserStore)(nil)

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager(config.AuthConfig{
		JWTSecret:       "handler-test-secret-32-characters",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func registerReq() map[string]string {
	return map[string]string{
		"email":    "ann@example.com",
		"name":     "Ann",
		"password": "hunter2hunter2",
	}
}

func TestRegister(t *testing.T) {
	st := newMemUserStore()
	h := NewRegisterHandler(st, newTestTokens())

	rec := postJSON(t, h, registerReq())
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data struct {
			User   models.User    `json:"user"`
			Tokens auth.TokenPair `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ann@example.com", body.Data.User.Email)
	assert.NotEmpty(t, body.Data.Tokens.AccessToken)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	stored, err := st.GetUserByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "hunter2hunter2"))
}

func TestRegister_NormalizesEmail(t *testing.T) {
	st := newMemUserStore()
	h := NewRegisterHandler(st, newTestTokens())

	req := registerReq()
	req["email"] = "  Ann@Example.COM "
	rec := postJSON(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, err := st.GetUserByEmail(context.Background(), "ann@example.com")
	assert.NoError(t, err)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	st := newMemUserStore()
	h := NewRegisterHandler(st, newTestTokens())

	require.Equal(t, http.StatusCreated, postJSON(t, h, registerReq()).Code)

	rec := postJSON(t, h, registerReq())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMAIL_TAKEN")
}

func TestRegister_Validation(t *testing.T) {
	h := NewRegisterHandler(newMemUserStore(), newTestTokens())

	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing email", func(m map[string]string) { m["email"] = "" }},
		{"not an email", func(m map[string]string) { m["email"] = "ann.example.com" }},
		{"missing name", func(m map[string]string) { m["name"] = "" }},
		{"short password", func(m map[string]string) { m["password"] = "short" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := registerReq()
			tc.mutate(req)
			rec := postJSON(t, h, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	st := newMemUserStore()
	tokens := newTestTokens()
	require.Equal(t, http.StatusCreated,
		postJSON(t, NewRegisterHandler(st, tokens), registerReq()).Code)

	rec := postJSON(t, NewLoginHandler(st, tokens), map[string]string{
		"email":    "ann@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Tokens auth.TokenPair `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, err := tokens.VerifyAccess(body.Data.Tokens.AccessToken)
	assert.NoError(t, err)
}

func TestLogin_BadCredentials(t *testing.T) {
	st := newMemUserStore()
	tokens := newTestTokens()
	require.Equal(t, http.StatusCreated,
		postJSON(t, NewRegisterHandler(st, tokens), registerReq()).Code)

	h := NewLoginHandler(st, tokens)

	// Unknown account and wrong password are indistinguishable to the client.
	for _, req := range []map[string]string{
		{"email": "nobody@example.com", "password": "hunter2hunter2"},
		{"email": "ann@example.com", "password": "wrong-password"},
	} {
		rec := postJSON(t, h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
	}
}

func TestRefresh(t *testing.T) {
	tokens := newTestTokens()
	pair, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	rec := postJSON(t, NewRefreshHandler(tokens), map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Tokens auth.TokenPair `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, err = tokens.VerifyAccess(body.Data.Tokens.AccessToken)
	assert.NoError(t, err)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	tokens := newTestTokens()
	pair, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	rec := postJSON(t, NewRefreshHandler(tokens), map[string]string{
		"refresh_token": pair.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
