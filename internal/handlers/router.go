// Package handlers exposes the professor API and the public evaluation links over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/metrics"
)

type ctxKey int

const professorKey ctxKey = iota

func NewRouter(service *app.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(observe)
	if origins := service.Config.Server.CORSOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", service.Config.Auth.ProfessorIDHeader},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	courses := &CourseHandler{service: service}
	rosters := &RosterHandler{service: service}
	evals := &EvaluationHandler{service: service}
	reports := &ReportHandler{service: service}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := service.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/evaluate/{token}", func(r chi.Router) {
		r.Get("/", evals.GetForm)
		r.Post("/", evals.Submit)
		r.Get("/status", evals.TokenStatus)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireProfessor(service.Auth))

		r.Get("/professor/concerning-words", reports.GetConcerningWords)
		r.Post("/professor/concerning-words", reports.UpdateConcerningWords)

		r.Get("/courses", courses.List)
		r.Post("/courses", courses.Create)
		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Get("/", courses.Get)
			r.Put("/", courses.Update)
			r.Delete("/", courses.Delete)

			r.Post("/roster", rosters.Import)

			r.Get("/students", rosters.ListStudents)
			r.Post("/students", rosters.AddStudent)
			r.Delete("/students", rosters.DeleteAllStudents)
			r.Post("/students/bulk-delete", rosters.BulkDeleteStudents)
			r.Put("/students/{studentID}", rosters.UpdateStudent)
			r.Delete("/students/{studentID}", rosters.DeleteStudent)

			r.Get("/teams", rosters.ListTeams)
			r.Post("/teams", rosters.CreateTeams)
			r.Delete("/teams", rosters.ClearTeams)
			r.Put("/teams/{teamID}", rosters.UpdateTeam)
			r.Delete("/teams/{teamID}", rosters.DeleteTeam)
			r.Post("/teams/{teamID}/students/{studentID}", rosters.AssignStudent)
			r.Delete("/teams/{teamID}/students/{studentID}", rosters.RemoveStudent)

			r.Post("/evaluations/send", evals.Send)
			r.Post("/evaluations/remind", evals.Remind)
			r.Post("/evaluations/reset", evals.Reset)
			r.Get("/evaluations/status", evals.Status)

			r.Get("/reports", reports.Course)
			r.Get("/reports/download", reports.Download)
			r.Get("/reports/students/{studentID}", reports.Student)
			r.Get("/reports/teams/{teamID}", reports.Team)
		})
	})

	return r
}

// observe records request duration by route pattern so ids and tokens stay out of the labels.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestDuration.WithLabelValues(
			path,
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	})
}

func requireProfessor(auth *app.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.ProfessorID(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), professorKey, id)))
		})
	}
}

func professorID(r *http.Request) string {
	id, _ := r.Context().Value(professorKey).(string)
	return id
}
