package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"audite/internal/model"
	"audite/internal/service"
	"audite/internal/suggestion"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes; structured reports
// are rendered verbatim next to the message
func writeServiceError(w http.ResponseWriter, err error) {
	var depErr *service.DependencyError
	var subErr *service.SubmissionError
	var depsErr *service.DependentsError

	switch {
	case errors.As(err, &depErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    err.Error(),
			"valid":    false,
			"errors":   depErr.Report.Errors,
			"warnings": depErr.Report.Warnings,
		})
	case errors.As(err, &subErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":           err.Error(),
			"valid":           false,
			"missingRequired": subErr.Report.MissingRequired,
			"unexpectedExtra": subErr.Report.UnexpectedExtra,
		})
	case errors.As(err, &depsErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      err.Error(),
			"dependents": depsErr.Dependents,
		})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionSubmitted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, suggestion.ErrUnrecognizedSector):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON body; an empty body leaves v untouched
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
