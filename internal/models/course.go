package models

import "strings"

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

type Course struct {
	ID           string `db:"id" json:"id"`
	ProfessorID  string `db:"professor_id" json:"professor_id"`
	Name         string `db:"name" json:"course_name" validate:"required,max=200"`
	Number       string `db:"number" json:"course_number" validate:"required,max=50"`
	Section      string `db:"section" json:"course_section" validate:"max=50"`
	Semester     string `db:"semester" json:"semester" validate:"required,max=50"`
	Status       string `db:"status" json:"course_status" validate:"omitempty,oneof=Active Inactive"`
	StudentCount int    `db:"student_count" json:"student_count"`
	TeamCount    int    `db:"team_count" json:"team_count"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
}

func (c *Course) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Number = strings.TrimSpace(c.Number)
	c.Section = strings.TrimSpace(c.Section)
	c.Semester = strings.TrimSpace(c.Semester)
	if c.Status == "" {
		c.Status = StatusActive
	}
}

func (c *Course) Validate() error {
	return validate.Struct(c)
}

// CourseCounts is the live count of rows referencing a course.
type CourseCounts struct {
	Students int `db:"students" json:"student_count"`
	Teams    int `db:"teams" json:"team_count"`
}
