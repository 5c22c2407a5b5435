package store

import "errors"

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

// ErrDuplicate is returned when a write hits a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// ErrAlreadySubmitted is returned by SubmitEvaluations when the evaluator already has rows.
var ErrAlreadySubmitted = errors.New("evaluations already submitted")

// SubmissionStat is the per-evaluator submission summary of a course.
type SubmissionStat struct {
	EvaluatorID     string `db:"evaluator_id"`
	Submitted       int    `db:"submitted"`
	LastSubmittedAt int64  `db:"last_submitted_at"`
}
