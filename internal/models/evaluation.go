package models

import "strings"

// Ratings holds the six rubric scores of one evaluation. Participation is rated 1-4, the rest 1-5.
type Ratings struct {
	Professionalism        int `db:"professionalism" json:"professionalism" validate:"required,min=1,max=5"`
	Communication          int `db:"communication" json:"communication" validate:"required,min=1,max=5"`
	WorkEthic              int `db:"work_ethic" json:"work_ethic" validate:"required,min=1,max=5"`
	ContentKnowledgeSkills int `db:"content_knowledge_skills" json:"content_knowledge_skills" validate:"required,min=1,max=5"`
	OverallContribution    int `db:"overall_contribution" json:"overall_contribution" validate:"required,min=1,max=5"`
	Participation          int `db:"participation" json:"participation" validate:"required,min=1,max=4"`
}

// Get returns the rating for a rubric criterion id, or 0 for an unknown id.
func (r Ratings) Get(criterion string) int {
	switch criterion {
	case CriterionProfessionalism:
		return r.Professionalism
	case CriterionCommunication:
		return r.Communication
	case CriterionWorkEthic:
		return r.WorkEthic
	case CriterionContentKnowledgeSkills:
		return r.ContentKnowledgeSkills
	case CriterionOverallContribution:
		return r.OverallContribution
	case CriterionParticipation:
		return r.Participation
	}
	return 0
}

type Evaluation struct {
	ID              string `db:"id" json:"id"`
	CourseID        string `db:"course_id" json:"course_id"`
	StudentID       string `db:"student_id" json:"student_id"`
	EvaluatorID     string `db:"evaluator_id" json:"evaluator_id"`
	Ratings         `json:"ratings"`
	OverallFeedback string `db:"overall_feedback" json:"overall_feedback"`
	EvaluationToken string `db:"evaluation_token" json:"-"`
	SubmittedAt     int64  `db:"submitted_at" json:"submitted_at"`
}

// ReceivedEvaluation is an evaluation joined with the evaluator's name, used by reports.
type ReceivedEvaluation struct {
	Evaluation
	EvaluatorName string `db:"evaluator_name" json:"evaluator_name"`
}

// EvaluationInput is one entry of a student's submission, rating a single teammate.
type EvaluationInput struct {
	StudentID       string  `json:"student_id" validate:"required"`
	Ratings         Ratings `json:"ratings"`
	OverallFeedback string  `json:"overall_feedback"`
}

func (e *EvaluationInput) Normalize() {
	e.StudentID = strings.TrimSpace(e.StudentID)
	e.OverallFeedback = strings.TrimSpace(e.OverallFeedback)
}

func (e *EvaluationInput) Validate() error {
	return validate.Struct(e)
}
