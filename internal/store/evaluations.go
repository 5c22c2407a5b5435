package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/semla/internal/models"
)

// SetEvaluationToken stores token for a student that has none yet. It reports
// false when the student already holds a token.
func (s *BaseStore) SetEvaluationToken(ctx context.Context, studentID, token string) (bool, error) {
	query := s.q(`UPDATE students SET evaluation_token = ? WHERE id = ? AND evaluation_token IS NULL`)
	res, err := s.DB.ExecContext(ctx, query, token, studentID)
	if err != nil {
		return false, s.duplicate("set evaluation token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set evaluation token: %w", err)
	}
	return n > 0, nil
}

func (s *BaseStore) HasSubmitted(ctx context.Context, courseID, evaluatorID string) (bool, error) {
	var count int
	query := s.q(`SELECT COUNT(*) FROM evaluations WHERE course_id = ? AND evaluator_id = ?`)
	if err := s.DB.GetContext(ctx, &count, query, courseID, evaluatorID); err != nil {
		return false, fmt.Errorf("failed to check submission: %w", err)
	}
	return count > 0, nil
}

// SubmitEvaluations writes the whole batch and the completion flag in one transaction.
// It fails with ErrAlreadySubmitted when the evaluator already has rows for the course
// and with ErrDuplicate when a concurrent submission won the unique index.
func (s *BaseStore) SubmitEvaluations(ctx context.Context, evaluatorID string, evaluations []models.Evaluation) error {
	if len(evaluations) == 0 {
		return nil
	}
	courseID := evaluations[0].CourseID

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		// concurrent submissions of one evaluator queue up here until the first commits
		var lockedID string
		err := tx.GetContext(ctx, &lockedID, s.q(`SELECT id FROM students WHERE id = ? AND course_id = ?`+s.RowLock), evaluatorID, courseID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count, s.q(`
			SELECT COUNT(*) FROM evaluations WHERE course_id = ? AND evaluator_id = ?
		`), courseID, evaluatorID); err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadySubmitted
		}

		for i := range evaluations {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO evaluations (
					id, course_id, student_id, evaluator_id,
					professionalism, communication, work_ethic, content_knowledge_skills, overall_contribution, participation,
					overall_feedback, evaluation_token, submitted_at
				) VALUES (
					:id, :course_id, :student_id, :evaluator_id,
					:professionalism, :communication, :work_ethic, :content_knowledge_skills, :overall_contribution, :participation,
					:overall_feedback, :evaluation_token, :submitted_at
				)
			`, &evaluations[i]); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE students SET evaluation_completed = ? WHERE id = ? AND course_id = ?
		`), true, evaluatorID, courseID)
		return err
	})
	if errors.Is(err, ErrAlreadySubmitted) {
		return err
	}
	if err != nil {
		return s.duplicate("submit evaluations", err)
	}
	return nil
}

// ResetEvaluations clears tokens and completion flags and deletes the evaluations the
// students submitted. A nil studentIDs resets the whole course.
func (s *BaseStore) ResetEvaluations(ctx context.Context, courseID string, studentIDs []string) (int64, error) {
	var reset int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		deleteQuery, deleteArgs := s.q(`DELETE FROM evaluations WHERE course_id = ?`), []interface{}{courseID}
		updateQuery, updateArgs := s.q(`
			UPDATE students SET evaluation_token = NULL, evaluation_completed = ? WHERE course_id = ?
		`), []interface{}{false, courseID}

		if studentIDs != nil {
			if len(studentIDs) == 0 {
				return nil
			}
			var err error
			deleteQuery, deleteArgs, err = s.in(`DELETE FROM evaluations WHERE course_id = ? AND evaluator_id IN (?)`, courseID, studentIDs)
			if err != nil {
				return err
			}
			updateQuery, updateArgs, err = s.in(`
				UPDATE students SET evaluation_token = NULL, evaluation_completed = ? WHERE course_id = ? AND id IN (?)
			`, false, courseID, studentIDs)
			if err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return err
		}
		reset, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reset evaluations: %w", err)
	}
	return reset, nil
}

func (s *BaseStore) ListCourseEvaluations(ctx context.Context, courseID string) ([]models.ReceivedEvaluation, error) {
	evaluations := []models.ReceivedEvaluation{}
	query := s.q(`
		SELECT
			e.id, e.course_id, e.student_id, e.evaluator_id,
			e.professionalism, e.communication, e.work_ethic,
			e.content_knowledge_skills, e.overall_contribution, e.participation,
			e.overall_feedback, e.evaluation_token, e.submitted_at,
			ev.name AS evaluator_name
		FROM evaluations e
		JOIN students ev ON ev.id = e.evaluator_id
		WHERE e.course_id = ?
		ORDER BY e.student_id, e.submitted_at, e.id
	`)
	if err := s.DB.SelectContext(ctx, &evaluations, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evaluations, nil
}

func (s *BaseStore) ListSubmissionStats(ctx context.Context, courseID string) ([]SubmissionStat, error) {
	stats := []SubmissionStat{}
	query := s.q(`
		SELECT evaluator_id, COUNT(*) AS submitted, MAX(submitted_at) AS last_submitted_at
		FROM evaluations
		WHERE course_id = ?
		GROUP BY evaluator_id
	`)
	if err := s.DB.SelectContext(ctx, &stats, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list submission stats: %w", err)
	}
	return stats, nil
}
