package store

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/semla/internal/models"
)

type Store interface {
	Close() error
	Ping(ctx context.Context) error

	CreateCourse(ctx context.Context, course *models.Course) error
	ListCourses(ctx context.Context, professorID string) ([]models.Course, error)
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	GetOwnedCourse(ctx context.Context, professorID, courseID string) (*models.Course, error)
	UpdateCourse(ctx context.Context, course *models.Course) error
	SetCourseStatus(ctx context.Context, courseID, status string) error
	RefreshCounts(ctx context.Context, courseID string) (models.CourseCounts, error)

	CreateStudent(ctx context.Context, student *models.Student) error
	GetStudent(ctx context.Context, courseID, id string) (*models.Student, error)
	GetStudentByExternalID(ctx context.Context, courseID, studentID string) (*models.Student, error)
	GetStudentByToken(ctx context.Context, token string) (*models.Student, error)
	ListStudents(ctx context.Context, courseID string) ([]models.Student, error)
	ListTeamStudents(ctx context.Context, courseID, teamID string) ([]models.Student, error)
	UpdateStudent(ctx context.Context, student *models.Student) error
	DeleteStudents(ctx context.Context, courseID string, ids []string) (int64, error)
	DeleteAllStudents(ctx context.Context, courseID string) (int64, error)

	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, courseID, teamID string) (*models.Team, error)
	GetTeamByName(ctx context.Context, courseID, name string) (*models.Team, error)
	ListTeams(ctx context.Context, courseID string) ([]models.Team, error)
	ListTeamMembers(ctx context.Context, courseID string) ([]models.TeamMember, error)
	RenameTeam(ctx context.Context, courseID, teamID, name string) error
	SetTeamStatus(ctx context.Context, courseID, teamID, status string) error
	DeleteEmptyTeam(ctx context.Context, courseID, teamID string) (bool, error)
	ClearTeams(ctx context.Context, courseID string) (int64, error)
	MoveStudentToTeam(ctx context.Context, studentID string, team *models.Team) error
	RemoveStudentFromTeam(ctx context.Context, teamID, studentID string) (bool, error)

	SetEvaluationToken(ctx context.Context, studentID, token string) (bool, error)
	HasSubmitted(ctx context.Context, courseID, evaluatorID string) (bool, error)
	SubmitEvaluations(ctx context.Context, evaluatorID string, evaluations []models.Evaluation) error
	ResetEvaluations(ctx context.Context, courseID string, studentIDs []string) (int64, error)
	ListCourseEvaluations(ctx context.Context, courseID string) ([]models.ReceivedEvaluation, error)
	ListSubmissionStats(ctx context.Context, courseID string) ([]SubmissionStat, error)

	GetConcerningWords(ctx context.Context, professorID string) ([]string, error)
	SaveConcerningWords(ctx context.Context, professorID string, words []string) error
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
	// IsUniqueViolation reports whether err came from a unique constraint of the underlying driver.
	IsUniqueViolation func(error) bool
	// RowLock is appended to SELECTs that must lock the row until commit, e.g. " FOR UPDATE".
	// Empty for drivers that serialize writers on their own.
	RowLock string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *BaseStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// ApplyMigrations applies every .sql file of fsys in name order, translating dialect if needed
func (s *BaseStore) ApplyMigrations(fsys fs.FS, translateSQL func(string) string) error {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) q(query string) string {
	return s.Converter(query)
}

// in expands IN (?) arguments and converts the result to the store dialect.
func (s *BaseStore) in(query string, args ...interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return s.Converter(query), args, nil
}

func (s *BaseStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// duplicate wraps err with ErrDuplicate when it is a unique violation.
func (s *BaseStore) duplicate(what string, err error) error {
	if s.IsUniqueViolation != nil && s.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
