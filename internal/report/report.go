// Package report joins aggregated scores with team membership into course,
// student and team reports and renders the CSV export.
package report

import (
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/scoring"
)

var gradeOrder = []string{"A", "B", "C", "D", "F", scoring.NoEvaluations}

type FlaggedEvaluation struct {
	EvaluationID    string         `json:"evaluation_id"`
	EvaluatorID     string         `json:"evaluator_id"`
	EvaluatorName   string         `json:"evaluator_name"`
	Ratings         models.Ratings `json:"ratings"`
	OverallFeedback string         `json:"overall_feedback"`
	SubmittedAt     int64          `json:"submitted_at"`
	Reasons         []string       `json:"reasons"`
}

type StudentRow struct {
	ID                  string              `json:"id"`
	StudentID           string              `json:"student_id"`
	Name                string              `json:"name"`
	Email               string              `json:"email"`
	TeamID              string              `json:"team_id,omitempty"`
	TeamName            string              `json:"team_name"`
	OriginalScore       float64             `json:"original_score"`
	FinalScore          float64             `json:"final_score"`
	LetterGrade         string              `json:"letter_grade"`
	EvaluationsReceived int                 `json:"evaluations_received"`
	Improvement         float64             `json:"improvement"`
	Completed           bool                `json:"evaluation_completed"`
	Flagged             []FlaggedEvaluation `json:"flagged_evaluations"`
}

func (r StudentRow) HasEvaluations() bool {
	return r.EvaluationsReceived > 0
}

type TeamRow struct {
	ID               string   `json:"id"`
	Name             string   `json:"team_name"`
	MemberCount      int      `json:"member_count"`
	EvaluatedMembers int      `json:"evaluated_members"`
	AverageScore     float64  `json:"average_score"`
	LetterGrade      string   `json:"letter_grade"`
	Members          []string `json:"members"`
}

type ClassStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

type GradingSettings struct {
	Options
	ClassStats *ClassStats `json:"class_stats,omitempty"`
}

type Summary struct {
	TotalStudents      int            `json:"total_students"`
	EvaluatedStudents  int            `json:"evaluated_students"`
	CompletedStudents  int            `json:"completed_students"`
	CompletionRate     float64        `json:"completion_rate"`
	ClassAverage       float64        `json:"class_average"`
	FlaggedEvaluations int            `json:"flagged_evaluations"`
	GradeDistribution  map[string]int `json:"grade_distribution"`
}

type CourseInfo struct {
	ID       string `json:"id"`
	Name     string `json:"course_name"`
	Number   string `json:"course_number"`
	Section  string `json:"course_section"`
	Semester string `json:"semester"`
}

type Report struct {
	Course          CourseInfo      `json:"course"`
	GeneratedAt     int64           `json:"generated_at"`
	GradingSettings GradingSettings `json:"grading_settings"`
	Summary         Summary         `json:"summary"`
	Students        []StudentRow    `json:"students"`
	Teams           []TeamRow       `json:"teams"`
}

// TeamView is a single team with the rows of its members.
type TeamView struct {
	Team            TeamRow         `json:"team"`
	GradingSettings GradingSettings `json:"grading_settings"`
	Students        []StudentRow    `json:"students"`
}

// input is everything a report is built from.
type input struct {
	course      *models.Course
	students    []models.Student
	teams       []models.Team
	evaluations []models.ReceivedEvaluation
	words       []string
	opts        Options
	now         int64
}

func build(in input) *Report {
	rep := &Report{
		Course: CourseInfo{
			ID:       in.course.ID,
			Name:     in.course.Name,
			Number:   in.course.Number,
			Section:  in.course.Section,
			Semester: in.course.Semester,
		},
		GeneratedAt:     in.now,
		GradingSettings: GradingSettings{Options: in.opts},
		Students:        make([]StudentRow, 0, len(in.students)),
		Teams:           make([]TeamRow, 0, len(in.teams)),
	}

	received := make(map[string][]models.ReceivedEvaluation)
	evaluators := make(map[string]bool)
	for _, e := range in.evaluations {
		received[e.StudentID] = append(received[e.StudentID], e)
		evaluators[e.EvaluatorID] = true
	}

	flagger := scoring.NewFlagger(in.words)
	scores := make([]scoring.Score, len(in.students))
	for i, st := range in.students {
		evals := received[st.ID]
		ratings := make([]models.Ratings, 0, len(evals))
		for _, e := range evals {
			ratings = append(ratings, e.Ratings)
		}
		scores[i] = scoring.MeanScore(ratings)

		row := StudentRow{
			ID:                  st.ID,
			StudentID:           st.StudentID,
			Name:                st.Name,
			Email:               st.Email,
			TeamName:            st.TeamName,
			EvaluationsReceived: len(evals),
			Completed:           st.EvaluationCompleted || evaluators[st.ID],
			Flagged:             []FlaggedEvaluation{},
		}
		if st.TeamID != nil {
			row.TeamID = *st.TeamID
		}
		for _, e := range evals {
			reasons := flagger.Reasons(e.Evaluation)
			if len(reasons) == 0 {
				continue
			}
			row.Flagged = append(row.Flagged, FlaggedEvaluation{
				EvaluationID:    e.ID,
				EvaluatorID:     e.EvaluatorID,
				EvaluatorName:   e.EvaluatorName,
				Ratings:         e.Ratings,
				OverallFeedback: e.OverallFeedback,
				SubmittedAt:     e.SubmittedAt,
				Reasons:         reasons,
			})
		}
		rep.Students = append(rep.Students, row)
	}

	finals := make([]float64, len(scores))
	for i, s := range scores {
		finals[i] = s.Percentage
	}

	if in.opts.Method == MethodCurved {
		var rated []float64
		var index []int
		for i, s := range scores {
			if s.HasRatings() {
				rated = append(rated, s.Percentage)
				index = append(index, i)
			}
		}
		curve := in.opts.grader().Curve(rated)
		for j, i := range index {
			finals[i] = curve.Adjusted[j]
		}
		rep.GradingSettings.ClassStats = &ClassStats{
			Mean:   scoring.Round2(curve.Mean),
			StdDev: scoring.Round2(curve.StdDev),
			Count:  len(rated),
		}
	}

	sum := &rep.Summary
	sum.TotalStudents = len(in.students)
	sum.GradeDistribution = make(map[string]int, len(gradeOrder))
	for _, g := range gradeOrder {
		sum.GradeDistribution[g] = 0
	}

	var classTotal float64
	for i := range rep.Students {
		row := &rep.Students[i]
		hasRatings := scores[i].HasRatings()
		row.OriginalScore = scoring.Round2(scores[i].Percentage)
		row.FinalScore, row.LetterGrade = scoring.Graded(finals[i], hasRatings)
		row.Improvement = scoring.Round2(finals[i] - scores[i].Percentage)

		sum.GradeDistribution[row.LetterGrade]++
		sum.FlaggedEvaluations += len(row.Flagged)
		if row.Completed {
			sum.CompletedStudents++
		}
		if hasRatings {
			sum.EvaluatedStudents++
			classTotal += finals[i]
		}
	}
	if sum.TotalStudents > 0 {
		sum.CompletionRate = scoring.Round2(float64(sum.CompletedStudents) / float64(sum.TotalStudents) * 100)
	}
	if sum.EvaluatedStudents > 0 {
		sum.ClassAverage = scoring.Round2(classTotal / float64(sum.EvaluatedStudents))
	}

	for _, t := range in.teams {
		rep.Teams = append(rep.Teams, teamRow(t, rep.Students, finals))
	}
	return rep
}

// teamRow averages the unrounded final scores of members that received evaluations.
func teamRow(t models.Team, rows []StudentRow, finals []float64) TeamRow {
	row := TeamRow{ID: t.ID, Name: t.Name, Members: []string{}}
	var total float64
	for i, st := range rows {
		if st.TeamID != t.ID {
			continue
		}
		row.MemberCount++
		row.Members = append(row.Members, st.Name)
		if st.HasEvaluations() {
			row.EvaluatedMembers++
			total += finals[i]
		}
	}
	if row.EvaluatedMembers > 0 {
		avg := total / float64(row.EvaluatedMembers)
		row.AverageScore, row.LetterGrade = scoring.Graded(avg, true)
	} else {
		row.LetterGrade = scoring.NoEvaluations
	}
	return row
}
