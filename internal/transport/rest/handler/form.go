package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"audite/internal/model"
	"audite/internal/service"
)

// FormHandler handles categories, forms and questions
type FormHandler struct {
	formSvc *service.FormService
}

// NewFormHandler creates a new form handler
func NewFormHandler(formSvc *service.FormService) *FormHandler {
	return &FormHandler{formSvc: formSvc}
}

// ListCategories handles GET /v1/categories
func (h *FormHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.formSvc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// ListForms handles GET /v1/categories/{categoryId}/forms
func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.formSvc.ListForms(r.Context(), mux.Vars(r)["categoryId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"forms": forms})
}

// VisibleQuestions handles GET /v1/forms/{formId}/questions
// The optional answers query parameter is a JSON answer map; without it only
// root questions are returned.
func (h *FormHandler) VisibleQuestions(w http.ResponseWriter, r *http.Request) {
	formID := mux.Vars(r)["formId"]

	var answers model.AnswerMap
	if raw := r.URL.Query().Get("answers"); raw != "" {
		var sub model.Submission
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			writeError(w, http.StatusBadRequest, "answers must be a JSON object keyed by question ID")
			return
		}
		answers = sub.Preprocess()
	}

	questions, err := h.formSvc.VisibleQuestions(r.Context(), formID, answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formId": formID, "questions": questions})
}

// CreateCategory handles POST /v1/admin/categories
func (h *FormHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var category model.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.formSvc.CreateCategory(r.Context(), &category); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// CreateForm handles POST /v1/admin/forms
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var form model.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.formSvc.CreateForm(r.Context(), &form); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, form)
}

// ListQuestions handles GET /v1/admin/forms/{formId}/questions
// Inactive questions are included unless active=true.
func (h *FormHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	questions, err := h.formSvc.Questions(r.Context(), mux.Vars(r)["formId"], activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// CreateQuestion handles POST /v1/admin/forms/{formId}/questions
func (h *FormHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q.FormID = mux.Vars(r)["formId"]

	report, err := h.formSvc.CreateQuestion(r.Context(), &q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"question": q, "warnings": report.Warnings})
}

// UpdateQuestion handles PUT /v1/admin/questions/{questionId}
func (h *FormHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q.ID = mux.Vars(r)["questionId"]

	report, err := h.formSvc.UpdateQuestion(r.Context(), &q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"question": q, "warnings": report.Warnings})
}

// DeleteQuestion handles DELETE /v1/admin/questions/{questionId}?force=true
func (h *FormHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["questionId"]
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	refs, err := h.formSvc.DeleteQuestion(r.Context(), id, force)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id, "disabledDependents": refs})
}

// ReorderRequest is the request body for moving a question
type ReorderRequest struct {
	Order *int `json:"order"`
}

// ReorderQuestion handles PUT /v1/admin/questions/{questionId}/order
func (h *FormHandler) ReorderQuestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["questionId"]

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Order == nil {
		writeError(w, http.StatusBadRequest, "order is required")
		return
	}

	report, err := h.formSvc.ReorderQuestion(r.Context(), id, *req.Order)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "order": *req.Order, "warnings": report.Warnings})
}

// CheckQuestion handles POST /v1/admin/questions/{questionId}/check
// The path ID "new" checks an unsaved question; formId must then be in the body.
func (h *FormHandler) CheckQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q.ID = mux.Vars(r)["questionId"]
	if q.ID == "new" {
		q.ID = ""
	}

	report, err := h.formSvc.CheckQuestion(r.Context(), &q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Dependents handles GET /v1/admin/questions/{questionId}/dependents
func (h *FormHandler) Dependents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["questionId"]
	refs, err := h.formSvc.Dependents(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questionId": id, "dependents": refs})
}

// Analyze handles GET /v1/admin/forms/{formId}/analysis
func (h *FormHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.formSvc.Analyze(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
