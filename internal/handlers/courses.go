package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/roster"
)

type CourseHandler struct {
	service *app.Service
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.Roster.ListCourses(r.Context(), professorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Course
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	course, err := h.service.Roster.CreateCourse(r.Context(), professorID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.service.Roster.GetCourse(r.Context(), professorID(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in roster.CourseUpdate
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	course, err := h.service.Roster.UpdateCourse(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// Delete deactivates the course. Its students, teams and evaluations are kept.
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Roster.DeleteCourse(r.Context(), professorID(r), chi.URLParam(r, "courseID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
