package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/semla/internal/models"
)

const teamColumns = `id, course_id, name, status, student_count, created_at`

func (s *BaseStore) CreateTeam(ctx context.Context, team *models.Team) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO teams (id, course_id, name, status, student_count, created_at)
		VALUES (:id, :course_id, :name, :status, :student_count, :created_at)
	`, team)
	if err != nil {
		return s.duplicate("create team", err)
	}
	return nil
}

func (s *BaseStore) getTeam(ctx context.Context, where string, args ...interface{}) (*models.Team, error) {
	var team models.Team
	query := s.q(`SELECT ` + teamColumns + ` FROM teams WHERE ` + where)
	err := s.DB.GetContext(ctx, &team, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

func (s *BaseStore) GetTeam(ctx context.Context, courseID, teamID string) (*models.Team, error) {
	return s.getTeam(ctx, `course_id = ? AND id = ?`, courseID, teamID)
}

func (s *BaseStore) GetTeamByName(ctx context.Context, courseID, name string) (*models.Team, error) {
	return s.getTeam(ctx, `course_id = ? AND name = ?`, courseID, name)
}

func (s *BaseStore) ListTeams(ctx context.Context, courseID string) ([]models.Team, error) {
	teams := []models.Team{}
	query := s.q(`
		SELECT ` + teamColumns + `
		FROM teams
		WHERE course_id = ?
		ORDER BY name
	`)
	if err := s.DB.SelectContext(ctx, &teams, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *BaseStore) ListTeamMembers(ctx context.Context, courseID string) ([]models.TeamMember, error) {
	members := []models.TeamMember{}
	query := s.q(`
		SELECT m.team_id, st.id, st.student_id, st.name, st.email
		FROM team_members m
		JOIN teams t ON t.id = m.team_id
		JOIN students st ON st.id = m.student_id
		WHERE t.course_id = ?
		ORDER BY st.name, st.id
	`)
	if err := s.DB.SelectContext(ctx, &members, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

// RenameTeam renames the team and the team_name copy held by its students.
func (s *BaseStore) RenameTeam(ctx context.Context, courseID, teamID, name string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE teams SET name = ? WHERE course_id = ? AND id = ?`), name, courseID, teamID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`UPDATE students SET team_name = ? WHERE course_id = ? AND team_id = ?`), name, courseID, teamID)
		return err
	})
	if err != nil {
		return s.duplicate("rename team", err)
	}
	return nil
}

func (s *BaseStore) SetTeamStatus(ctx context.Context, courseID, teamID, status string) error {
	query := s.q(`UPDATE teams SET status = ? WHERE course_id = ? AND id = ?`)
	if _, err := s.DB.ExecContext(ctx, query, status, courseID, teamID); err != nil {
		return fmt.Errorf("failed to set team status: %w", err)
	}
	return nil
}

// DeleteEmptyTeam deletes the team only when it has no members and reports whether a row went away.
func (s *BaseStore) DeleteEmptyTeam(ctx context.Context, courseID, teamID string) (bool, error) {
	query := s.q(`
		DELETE FROM teams
		WHERE course_id = ? AND id = ?
		AND NOT EXISTS (SELECT 1 FROM team_members WHERE team_id = ?)
	`)
	res, err := s.DB.ExecContext(ctx, query, courseID, teamID, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to delete team: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete team: %w", err)
	}
	return n > 0, nil
}

// ClearTeams deletes every team of the course and unlinks all of its students.
func (s *BaseStore) ClearTeams(ctx context.Context, courseID string) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE students SET team_id = NULL, team_name = '' WHERE course_id = ?
		`), courseID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM team_members
			WHERE team_id IN (SELECT id FROM teams WHERE course_id = ?)
		`), courseID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM teams WHERE course_id = ?`), courseID)
		if err != nil {
			return err
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return err
		}
		var counts models.CourseCounts
		return s.refreshCounts(ctx, tx, courseID, &counts)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear teams: %w", err)
	}
	return deleted, nil
}

// MoveStudentToTeam drops the student's current membership and links it to team.
func (s *BaseStore) MoveStudentToTeam(ctx context.Context, studentID string, team *models.Team) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM team_members WHERE student_id = ?`), studentID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO team_members (team_id, student_id) VALUES (?, ?)`), team.ID, studentID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`
			UPDATE students SET team_id = ?, team_name = ? WHERE id = ? AND course_id = ?
		`), team.ID, team.Name, studentID, team.CourseID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to move student to team: %w", err)
	}
	return nil
}

// RemoveStudentFromTeam reports false when the student was not a member of the team.
func (s *BaseStore) RemoveStudentFromTeam(ctx context.Context, teamID, studentID string) (bool, error) {
	var removed bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM team_members WHERE team_id = ? AND student_id = ?`), teamID, studentID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n > 0
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE students SET team_id = NULL, team_name = '' WHERE id = ? AND team_id = ?
		`), studentID, teamID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove student from team: %w", err)
	}
	return removed, nil
}
