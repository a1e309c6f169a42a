package handler

import (
	"net/http"
	"strconv"

	"audite/internal/model"
	"audite/internal/service"
)

const defaultTopLimit = 10

// SuggestionHandler handles aggregate suggestion endpoints
type SuggestionHandler struct {
	suggestionSvc *service.SuggestionService
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestionSvc *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionSvc: suggestionSvc}
}

// Top handles GET /v1/admin/suggestions/top?sector=&limit=
func (h *SuggestionHandler) Top(w http.ResponseWriter, r *http.Request) {
	sector := model.Sector(r.URL.Query().Get("sector"))
	if sector == "" {
		writeError(w, http.StatusBadRequest, "sector is required")
		return
	}

	limit := defaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	top, err := h.suggestionSvc.Top(r.Context(), sector, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sector": sector, "top": top})
}
