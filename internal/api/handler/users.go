package handler

import (
	"errors"
	"net/http"

	mw "github.com/personify-ai/personify/internal/api/middleware"
	"github.com/personify-ai/personify/internal/api/response"
	"github.com/personify-ai/personify/internal/store"
)

// NewCurrentUserHandler returns an http.HandlerFunc for GET /api/v1/users/me.
func NewCurrentUserHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		user, err := st.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load user", nil)
			return
		}

		response.JSON(w, user)
	}
}
