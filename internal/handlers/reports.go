package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/report"
)

type ReportHandler struct {
	service *app.Service
}

// options reads gradingMethod, boostFactor and protectionThreshold on top of the configured defaults.
func (h *ReportHandler) options(r *http.Request) (report.Options, error) {
	opts := h.service.Reports.Defaults()
	q := r.URL.Query()

	if v := q.Get("gradingMethod"); v != "" {
		opts.Method = v
	}
	for name, dst := range map[string]*float64{
		"boostFactor":         &opts.BoostFactor,
		"protectionThreshold": &opts.ProtectionThreshold,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, apperr.Validationf("%s must be a number", name)
		}
		*dst = f
	}
	return opts, nil
}

func (h *ReportHandler) Course(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.service.Reports.CourseReport(r.Context(), professorID(r), chi.URLParam(r, "courseID"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.service.Reports.CourseReport(r.Context(), professorID(r), chi.URLParam(r, "courseID"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rep)))
	w.Write(buf.Bytes())
}

func (h *ReportHandler) Student(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := h.service.Reports.StudentReport(
		r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "studentID"), opts,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *ReportHandler) Team(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Reports.TeamReport(
		r.Context(), professorID(r), chi.URLParam(r, "courseID"), chi.URLParam(r, "teamID"), opts,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReportHandler) GetConcerningWords(w http.ResponseWriter, r *http.Request) {
	words, err := h.service.Reports.ConcerningWords(r.Context(), professorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"words": words})
}

func (h *ReportHandler) UpdateConcerningWords(w http.ResponseWriter, r *http.Request) {
	var act report.WordAction
	if err := decodeJSON(r, &act, false); err != nil {
		writeError(w, r, err)
		return
	}
	words, err := h.service.Reports.UpdateConcerningWords(r.Context(), professorID(r), act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"words": words})
}
