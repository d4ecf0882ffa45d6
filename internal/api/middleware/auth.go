package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/personify-ai/personify/internal/api/response"
	"github.com/personify-ai/personify/internal/auth"
)

// Auth provides JWT bearer authentication middleware.
type Auth struct {
	tokens *auth.TokenManager
}

// NewAuth creates a new Auth middleware.
func NewAuth(tokens *auth.TokenManager) *Auth {
	return &Auth{tokens: tokens}
}

// Authenticate validates the Bearer access token and sets the user ID in the
// request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		userID, err := a.tokens.VerifyAccess(token)
		if err != nil {
			code := "INVALID_TOKEN"
			message := "Invalid access token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code = "TOKEN_EXPIRED"
				message = "Access token expired"
			}
			response.Error(w, http.StatusUnauthorized, code, message, nil)
			return
		}

		r = r.WithContext(SetUserID(r.Context(), userID))
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
