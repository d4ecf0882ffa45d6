package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/personify-ai/personify/internal/api/response"
	"github.com/personify-ai/personify/internal/auth"
	"github.com/personify-ai/personify/internal/store"
	"github.com/personify-ai/personify/pkg/models"
)

const minPasswordLen = 8

// NewRegisterHandler returns an http.HandlerFunc for POST /api/v1/auth/register.
func NewRegisterHandler(st store.Store, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "a valid email is required", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if len(req.Password) < minPasswordLen {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"password must be at least 8 characters", nil)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to register user", nil)
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:           uuid.New(),
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := st.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "EMAIL_TAKEN",
					"An account with this email already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to register user", nil)
			return
		}

		pair, err := tokens.Issue(user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to issue tokens", nil)
			return
		}

		response.Created(w, map[string]any{"user": user, "tokens": pair})
	}
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
func NewLoginHandler(st store.Store, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		user, err := st.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS",
					"Invalid email or password", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to log in", nil)
			return
		}

		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS",
				"Invalid email or password", nil)
			return
		}

		pair, err := tokens.Issue(user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to issue tokens", nil)
			return
		}

		response.JSON(w, map[string]any{"user": user, "tokens": pair})
	}
}

// NewRefreshHandler returns an http.HandlerFunc for POST /api/v1/auth/refresh.
func NewRefreshHandler(tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		userID, err := tokens.VerifyRefresh(req.RefreshToken)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, auth.ErrExpiredToken) {
				code = "TOKEN_EXPIRED"
			}
			response.Error(w, http.StatusUnauthorized, code, "Invalid refresh token", nil)
			return
		}

		pair, err := tokens.Issue(userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to issue tokens", nil)
			return
		}

		response.JSON(w, map[string]any{"tokens": pair})
	}
}
