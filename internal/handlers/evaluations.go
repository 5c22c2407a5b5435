package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/models"
)

type EvaluationHandler struct {
	service *app.Service
}

type sendRequest struct {
	Deadline *time.Time `json:"deadline"`
}

func (h *EvaluationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var in sendRequest
	if err := decodeJSON(r, &in, true); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Evaluations.IssueTokensAndNotify(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in.Deadline)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EvaluationHandler) Remind(w http.ResponseWriter, r *http.Request) {
	var in sendRequest
	if err := decodeJSON(r, &in, true); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Evaluations.Remind(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in.Deadline)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Reset resets the listed students, or the whole course when no ids are sent.
func (h *EvaluationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var in idsRequest
	if err := decodeJSON(r, &in, true); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.service.Evaluations.Reset(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in.StudentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": n})
}

func (h *EvaluationHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Evaluations.Status(r.Context(), professorID(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *EvaluationHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.Evaluations.GetForm(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *EvaluationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Evaluations []models.EvaluationInput `json:"evaluations"`
	}
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Evaluations.Submit(r.Context(), chi.URLParam(r, "token"), in.Evaluations)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *EvaluationHandler) TokenStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Evaluations.TokenStatus(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
