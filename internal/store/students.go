package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/semla/internal/models"
)

const studentColumns = `id, course_id, student_id, name, email, team_id, team_name, evaluation_token, evaluation_completed, created_at`

func (s *BaseStore) CreateStudent(ctx context.Context, student *models.Student) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO students (id, course_id, student_id, name, email, team_id, team_name, evaluation_token, evaluation_completed, created_at)
		VALUES (:id, :course_id, :student_id, :name, :email, :team_id, :team_name, :evaluation_token, :evaluation_completed, :created_at)
	`, student)
	if err != nil {
		return s.duplicate("create student", err)
	}
	return nil
}

func (s *BaseStore) getStudent(ctx context.Context, where string, args ...interface{}) (*models.Student, error) {
	var student models.Student
	query := s.q(`SELECT ` + studentColumns + ` FROM students WHERE ` + where)
	err := s.DB.GetContext(ctx, &student, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) GetStudent(ctx context.Context, courseID, id string) (*models.Student, error) {
	return s.getStudent(ctx, `course_id = ? AND id = ?`, courseID, id)
}

func (s *BaseStore) GetStudentByExternalID(ctx context.Context, courseID, studentID string) (*models.Student, error) {
	return s.getStudent(ctx, `course_id = ? AND student_id = ?`, courseID, studentID)
}

func (s *BaseStore) GetStudentByToken(ctx context.Context, token string) (*models.Student, error) {
	return s.getStudent(ctx, `evaluation_token = ?`, token)
}

func (s *BaseStore) ListStudents(ctx context.Context, courseID string) ([]models.Student, error) {
	students := []models.Student{}
	query := s.q(`
		SELECT ` + studentColumns + `
		FROM students
		WHERE course_id = ?
		ORDER BY name, id
	`)
	if err := s.DB.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *BaseStore) ListTeamStudents(ctx context.Context, courseID, teamID string) ([]models.Student, error) {
	students := []models.Student{}
	query := s.q(`
		SELECT ` + studentColumns + `
		FROM students
		WHERE course_id = ? AND team_id = ?
		ORDER BY name, id
	`)
	if err := s.DB.SelectContext(ctx, &students, query, courseID, teamID); err != nil {
		return nil, fmt.Errorf("failed to list team students: %w", err)
	}
	return students, nil
}

func (s *BaseStore) UpdateStudent(ctx context.Context, student *models.Student) error {
	_, err := s.DB.NamedExecContext(ctx, `
		UPDATE students SET name = :name, email = :email
		WHERE id = :id AND course_id = :course_id
	`, student)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return nil
}

// DeleteStudents removes the given students of a course together with their
// memberships and every evaluation they gave or received.
func (s *BaseStore) DeleteStudents(ctx context.Context, courseID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := s.in(`
			DELETE FROM team_members
			WHERE student_id IN (SELECT id FROM students WHERE course_id = ? AND id IN (?))
		`, courseID, ids)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		query, args, err = s.in(`DELETE FROM evaluations WHERE course_id = ? AND (student_id IN (?) OR evaluator_id IN (?))`, courseID, ids, ids)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		query, args, err = s.in(`DELETE FROM students WHERE course_id = ? AND id IN (?)`, courseID, ids)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete students: %w", err)
	}
	return deleted, nil
}

func (s *BaseStore) DeleteAllStudents(ctx context.Context, courseID string) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM team_members
			WHERE student_id IN (SELECT id FROM students WHERE course_id = ?)
		`), courseID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM evaluations WHERE course_id = ?`), courseID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM students WHERE course_id = ?`), courseID)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete all students: %w", err)
	}
	return deleted, nil
}
