package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"audite/internal/model"
	"audite/internal/service"
)

// SessionHandler handles respondent sessions
type SessionHandler struct {
	sessionSvc    *service.SessionService
	suggestionSvc *service.SuggestionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService, suggestionSvc *service.SuggestionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, suggestionSvc: suggestionSvc}
}

// StartSessionRequest is the request body for opening a session
type StartSessionRequest struct {
	FormID string `json:"formId"`
}

// AnswersRequest is the request body for draft saves and submissions
type AnswersRequest struct {
	FormID  string           `json:"formId,omitempty"`
	Answers model.Submission `json:"answers"`
}

// Start handles POST /v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FormID == "" {
		writeError(w, http.StatusBadRequest, "formId is required")
		return
	}

	draft, err := h.sessionSvc.Start(r.Context(), req.FormID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": draft.SessionID,
		"formId":    draft.FormID,
		"startedAt": draft.StartedAt,
	})
}

// SaveDraft handles PUT /v1/sessions/{sessionId}/draft
func (h *SessionHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req AnswersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	questions, err := h.sessionSvc.SaveDraft(r.Context(), sessionID, req.FormID, req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"questions": questions,
	})
}

// Submit handles POST /v1/sessions/{sessionId}/submit
// Without answers in the body the saved draft is submitted.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req AnswersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta := service.SubmitMeta{
		FormID:    req.FormID,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	result, err := h.sessionSvc.Submit(r.Context(), sessionID, req.Answers, meta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": sessionID,
		"result":    result,
	})
}

// Status handles GET /v1/sessions/{sessionId}
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.sessionSvc.Status(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Suggestions handles GET /v1/sessions/{sessionId}/suggestions
func (h *SessionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	result, err := h.suggestionSvc.ForSession(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
