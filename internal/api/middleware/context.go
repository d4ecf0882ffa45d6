package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	rawBodyKey contextKey = "raw_body"
)

func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

func setRawBody(ctx context.Context, body []byte) context.Context {
	return context.WithValue(ctx, rawBodyKey, body)
}

// GetRawBody returns the verified webhook body stored by the signature
// middleware.
func GetRawBody(r *http.Request) ([]byte, bool) {
	body, ok := r.Context().Value(rawBodyKey).([]byte)
	return body, ok
}
