package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/personify-ai/personify/internal/analysis"
	mw "github.com/personify-ai/personify/internal/api/middleware"
	"github.com/personify-ai/personify/internal/api/response"
	"github.com/personify-ai/personify/pkg/models"
)

// AnalysisService defines the orchestrator interface the handlers depend on.
type AnalysisService interface {
	Create(ctx context.Context, userID string, input models.AnalysisInput) (string, error)
	Get(ctx context.Context, requestID string) (*analysis.View, error)
	Process(ctx context.Context, requestID string) error
}

// NewCreateAnalysisHandler returns an http.HandlerFunc for POST /api/v1/analyze.
func NewCreateAnalysisHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			Name        string `json:"name"`
			Age         int    `json:"age"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if req.Age <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "age must be a positive integer", nil)
			return
		}
		if req.Description == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "description is required", nil)
			return
		}

		requestID, err := svc.Create(r.Context(), userID.String(), models.AnalysisInput{
			Name:        req.Name,
			Age:         req.Age,
			Description: req.Description,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create analysis request", nil)
			return
		}

		response.Created(w, map[string]string{"request_id": requestID})
	}
}

// NewGetAnalysisHandler returns an http.HandlerFunc for GET /api/v1/analyze/{requestID}.
func NewGetAnalysisHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		if _, err := uuid.Parse(requestID); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"requestID must be a valid UUID", nil)
			return
		}

		view, err := svc.Get(r.Context(), requestID)
		if err != nil {
			if errors.Is(err, analysis.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Analysis not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load analysis", nil)
			return
		}

		response.JSON(w, view)
	}
}
