package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
)

const courseColumns = `id, professor_id, name, number, section, semester, status, student_count, team_count, created_at`

func (s *BaseStore) CreateCourse(ctx context.Context, course *models.Course) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO courses (id, professor_id, name, number, section, semester, status, student_count, team_count, created_at)
		VALUES (:id, :professor_id, :name, :number, :section, :semester, :status, :student_count, :team_count, :created_at)
	`, course)
	if err != nil {
		return s.duplicate("create course", err)
	}
	return nil
}

func (s *BaseStore) ListCourses(ctx context.Context, professorID string) ([]models.Course, error) {
	courses := []models.Course{}
	query := s.q(`
		SELECT ` + courseColumns + `
		FROM courses
		WHERE professor_id = ?
		ORDER BY created_at DESC, name
	`)
	if err := s.DB.SelectContext(ctx, &courses, query, professorID); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *BaseStore) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	query := s.q(`SELECT ` + courseColumns + ` FROM courses WHERE id = ?`)
	err := s.DB.GetContext(ctx, &course, query, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

// GetOwnedCourse returns nil when the course does not exist or belongs to another professor.
func (s *BaseStore) GetOwnedCourse(ctx context.Context, professorID, courseID string) (*models.Course, error) {
	var course models.Course
	query := s.q(`SELECT ` + courseColumns + ` FROM courses WHERE id = ? AND professor_id = ?`)
	err := s.DB.GetContext(ctx, &course, query, courseID, professorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (s *BaseStore) UpdateCourse(ctx context.Context, course *models.Course) error {
	_, err := s.DB.NamedExecContext(ctx, `
		UPDATE courses
		SET name = :name, number = :number, section = :section, semester = :semester, status = :status
		WHERE id = :id
	`, course)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

func (s *BaseStore) SetCourseStatus(ctx context.Context, courseID, status string) error {
	query := s.q(`UPDATE courses SET status = ? WHERE id = ?`)
	if _, err := s.DB.ExecContext(ctx, query, status, courseID); err != nil {
		return fmt.Errorf("failed to set course status: %w", err)
	}
	return nil
}

// RefreshCounts recomputes every team's student_count and the course counters from live rows.
func (s *BaseStore) RefreshCounts(ctx context.Context, courseID string) (models.CourseCounts, error) {
	var counts models.CourseCounts
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.refreshCounts(ctx, tx, courseID, &counts)
	})
	if err != nil {
		return models.CourseCounts{}, fmt.Errorf("failed to refresh counts: %w", err)
	}
	return counts, nil
}

func (s *BaseStore) refreshCounts(ctx context.Context, tx *sqlx.Tx, courseID string, counts *models.CourseCounts) error {
	if _, err := tx.ExecContext(ctx, s.q(`
		UPDATE teams
		SET student_count = (SELECT COUNT(*) FROM team_members m WHERE m.team_id = teams.id)
		WHERE course_id = ?
	`), courseID); err != nil {
		return err
	}

	if err := tx.GetContext(ctx, counts, s.q(`
		SELECT
			(SELECT COUNT(*) FROM students WHERE course_id = ?) AS students,
			(SELECT COUNT(*) FROM teams WHERE course_id = ?) AS teams
	`), courseID, courseID); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, s.q(`
		UPDATE courses SET student_count = ?, team_count = ? WHERE id = ?
	`), counts.Students, counts.Teams, courseID)
	return err
}

// RequireOwnedCourse is GetOwnedCourse with a NotFound error in place of nil.
func RequireOwnedCourse(ctx context.Context, st Store, professorID, courseID string) (*models.Course, error) {
	course, err := st.GetOwnedCourse(ctx, professorID, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apperr.NotFoundf("course not found")
	}
	return course, nil
}
