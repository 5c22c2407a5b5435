package roster

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type StudentUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkDeleteResult struct {
	Deleted []string      `json:"deleted"`
	Failed  []BulkFailure `json:"failed"`
}

func (s *Service) ListStudents(ctx context.Context, professorID, courseID string) ([]models.Student, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	return s.store.ListStudents(ctx, courseID)
}

// AddStudent adds one student by hand. A student id already on the roster is a conflict.
func (s *Service) AddStudent(ctx context.Context, professorID, courseID string, in models.RosterRow) (*models.Student, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	existing, err := s.store.GetStudentByExternalID(ctx, courseID, in.StudentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflictf("student with ID %s already exists in this course", in.StudentID)
	}

	student := &models.Student{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		StudentID: in.StudentID,
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: s.now().Unix(),
	}
	err = s.store.CreateStudent(ctx, student)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflictf("student with ID %s already exists in this course", in.StudentID)
	}
	if err != nil {
		return nil, err
	}

	if in.TeamName != "" {
		team, _, err := s.findOrCreateTeam(ctx, courseID, in.TeamName)
		if err != nil {
			return nil, err
		}
		if err := s.store.MoveStudentToTeam(ctx, student.ID, team); err != nil {
			return nil, err
		}
		student.TeamID = &team.ID
		student.TeamName = team.Name
	}

	if _, err := s.refresh(ctx, courseID); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *Service) UpdateStudent(ctx context.Context, professorID, courseID, id string, in StudentUpdate) (*models.Student, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	student, err := s.requireStudent(ctx, courseID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		student.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		student.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if err := student.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	if err := s.store.UpdateStudent(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *Service) DeleteStudent(ctx context.Context, professorID, courseID, id string) error {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return err
	}
	if _, err := s.requireStudent(ctx, courseID, id); err != nil {
		return err
	}
	if _, err := s.store.DeleteStudents(ctx, courseID, []string{id}); err != nil {
		return err
	}
	_, err := s.refresh(ctx, courseID)
	return err
}

// BulkDeleteStudents deletes each id on its own so one failure does not stop the rest.
func (s *Service) BulkDeleteStudents(ctx context.Context, professorID, courseID string, ids []string) (*BulkDeleteResult, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.Validationf("no student ids provided")
	}

	result := &BulkDeleteResult{Deleted: []string{}, Failed: []BulkFailure{}}
	for _, id := range ids {
		n, err := s.store.DeleteStudents(ctx, courseID, []string{id})
		switch {
		case err != nil:
			logger.Error.Printf("Failed to delete student %s of %s: %v", id, courseID, err)
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: "failed to delete student"})
		case n == 0:
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: "student not found"})
		default:
			result.Deleted = append(result.Deleted, id)
		}
	}

	if _, err := s.refresh(ctx, courseID); err != nil {
		return nil, err
	}
	logger.Info.Printf("Bulk delete for %s: deleted=%d failed=%d", courseID, len(result.Deleted), len(result.Failed))
	return result, nil
}

func (s *Service) DeleteAllStudents(ctx context.Context, professorID, courseID string) (int64, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteAllStudents(ctx, courseID)
	if err != nil {
		return 0, err
	}
	if _, err := s.refresh(ctx, courseID); err != nil {
		return 0, err
	}
	logger.Info.Printf("Deleted all %d students of %s", n, courseID)
	return n, nil
}
