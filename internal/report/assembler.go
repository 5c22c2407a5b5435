package report

import (
	"context"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type Assembler struct {
	store    store.Store
	defaults Options
	now      func() time.Time
}

func NewAssembler(st store.Store, defaults Options) *Assembler {
	return &Assembler{store: st, defaults: defaults, now: time.Now}
}

func (a *Assembler) Defaults() Options {
	return a.defaults
}

func (a *Assembler) CourseReport(ctx context.Context, professorID, courseID string, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	course, err := store.RequireOwnedCourse(ctx, a.store, professorID, courseID)
	if err != nil {
		return nil, err
	}

	students, err := a.store.ListStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	teams, err := a.store.ListTeams(ctx, courseID)
	if err != nil {
		return nil, err
	}
	evaluations, err := a.store.ListCourseEvaluations(ctx, courseID)
	if err != nil {
		return nil, err
	}
	words, err := a.store.GetConcerningWords(ctx, professorID)
	if err != nil {
		return nil, err
	}

	rep := build(input{
		course:      course,
		students:    students,
		teams:       teams,
		evaluations: evaluations,
		words:       words,
		opts:        opts,
		now:         a.now().Unix(),
	})

	for _, row := range rep.Students {
		if row.HasEvaluations() {
			metrics.FinalScoreHistogram.WithLabelValues(opts.Method).Observe(row.FinalScore)
		}
	}
	logger.Debug.Printf(
		"Built %s report for course %s: %d students, %d evaluations, %d flagged",
		opts.Method, courseID, len(students), len(evaluations), rep.Summary.FlaggedEvaluations,
	)
	return rep, nil
}

// StudentReport is the course report row of one student. The score is
// computed against the whole class so curving matches the course report.
func (a *Assembler) StudentReport(ctx context.Context, professorID, courseID, studentID string, opts Options) (*StudentRow, error) {
	rep, err := a.CourseReport(ctx, professorID, courseID, opts)
	if err != nil {
		return nil, err
	}
	for i := range rep.Students {
		if rep.Students[i].ID == studentID {
			return &rep.Students[i], nil
		}
	}
	return nil, apperr.NotFoundf("student not found")
}

func (a *Assembler) TeamReport(ctx context.Context, professorID, courseID, teamID string, opts Options) (*TeamView, error) {
	rep, err := a.CourseReport(ctx, professorID, courseID, opts)
	if err != nil {
		return nil, err
	}
	for _, t := range rep.Teams {
		if t.ID != teamID {
			continue
		}
		view := &TeamView{Team: t, GradingSettings: rep.GradingSettings, Students: []StudentRow{}}
		for _, row := range rep.Students {
			if row.TeamID == teamID {
				view.Students = append(view.Students, row)
			}
		}
		return view, nil
	}
	return nil, apperr.NotFoundf("team not found")
}
