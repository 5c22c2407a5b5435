package models

import "strings"

type Student struct {
	ID                  string  `db:"id" json:"id"`
	CourseID            string  `db:"course_id" json:"course_id"`
	StudentID           string  `db:"student_id" json:"student_id" validate:"required,max=64"`
	Name                string  `db:"name" json:"name" validate:"required,max=200"`
	Email               string  `db:"email" json:"email" validate:"required,email"`
	TeamID              *string `db:"team_id" json:"team_id"`
	TeamName            string  `db:"team_name" json:"team_name"`
	EvaluationToken     *string `db:"evaluation_token" json:"-"`
	EvaluationCompleted bool    `db:"evaluation_completed" json:"evaluation_completed"`
	CreatedAt           int64   `db:"created_at" json:"created_at"`
}

func (s *Student) HasToken() bool {
	return s.EvaluationToken != nil && *s.EvaluationToken != ""
}

func (s *Student) Validate() error {
	return validate.Struct(s)
}

// RosterRow is one line of an imported roster.
type RosterRow struct {
	StudentID string `json:"student_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	TeamName  string `json:"team_name"`
}

func (r *RosterRow) Normalize() {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.TeamName = strings.TrimSpace(r.TeamName)
}

func (r *RosterRow) Validate() error {
	return validate.Struct(r)
}
