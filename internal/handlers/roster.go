package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/roster"
)

const maxRosterBytes = 5 << 20

type RosterHandler struct {
	service *app.Service
}

type idsRequest struct {
	StudentIDs []string `json:"student_ids"`
}

// Import takes either a multipart CSV upload in the "file" field or a JSON
// body {"students": [...]}.
func (h *RosterHandler) Import(w http.ResponseWriter, r *http.Request) {
	rows, err := rosterRows(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Roster.ImportRoster(r.Context(), professorID(r), chi.URLParam(r, "courseID"), rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func rosterRows(r *http.Request) ([]models.RosterRow, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxRosterBytes); err != nil {
			return nil, apperr.Validationf("invalid upload: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, apperr.Validationf("no file provided")
		}
		defer file.Close()
		return roster.ParseRosterCSV(file)
	}

	var body struct {
		Students []models.RosterRow `json:"students"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		return nil, err
	}
	return body.Students, nil
}

func (h *RosterHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.Roster.ListStudents(r.Context(), professorID(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": students})
}

func (h *RosterHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var in models.RosterRow
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := h.service.Roster.AddStudent(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *RosterHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	var in roster.StudentUpdate
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := h.service.Roster.UpdateStudent(
		r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "studentID"), in,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *RosterHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	err := h.service.Roster.DeleteStudent(r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RosterHandler) BulkDeleteStudents(w http.ResponseWriter, r *http.Request) {
	var in idsRequest
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Roster.BulkDeleteStudents(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in.StudentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RosterHandler) DeleteAllStudents(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Roster.DeleteAllStudents(r.Context(), professorID(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *RosterHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.Roster.ListTeams(r.Context(), professorID(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

func (h *RosterHandler) CreateTeams(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TeamNames []string `json:"team_names"`
	}
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Roster.CreateTeams(r.Context(), professorID(r), chi.URLParam(r, "courseID"), in.TeamNames)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RosterHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var in roster.TeamUpdate
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.service.Roster.UpdateTeam(r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "teamID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *RosterHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Roster.DeleteTeam(r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "teamID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RosterHandler) ClearTeams(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Roster.ClearAllTeams(r.Context(), professorID(r), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *RosterHandler) AssignStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.service.Roster.AssignStudent(
		r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "teamID"), chi.URLParam(r, "studentID"),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *RosterHandler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	err := h.service.Roster.RemoveStudent(
		r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "teamID"), chi.URLParam(r, "studentID"),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
