package models

type Team struct {
	ID           string       `db:"id" json:"id"`
	CourseID     string       `db:"course_id" json:"course_id"`
	Name         string       `db:"name" json:"team_name" validate:"required,max=100"`
	Status       string       `db:"status" json:"team_status" validate:"omitempty,oneof=Active Inactive"`
	StudentCount int          `db:"student_count" json:"student_count"`
	CreatedAt    int64        `db:"created_at" json:"created_at"`
	Members      []TeamMember `db:"-" json:"students"`
}

func (t *Team) Validate() error {
	return validate.Struct(t)
}

// TeamMember is a row of the team member list joined with the student it points at.
type TeamMember struct {
	TeamID    string `db:"team_id" json:"-"`
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"student_id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
}
