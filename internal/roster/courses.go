package roster

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
)

type CourseUpdate struct {
	Name     *string `json:"course_name"`
	Number   *string `json:"course_number"`
	Section  *string `json:"course_section"`
	Semester *string `json:"semester"`
	Status   *string `json:"course_status"`
}

func (s *Service) CreateCourse(ctx context.Context, professorID string, in models.Course) (*models.Course, error) {
	course := in
	course.Normalize()
	if err := course.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	course.ID = uuid.NewString()
	course.ProfessorID = professorID
	course.StudentCount = 0
	course.TeamCount = 0
	course.CreatedAt = s.now().Unix()

	if err := s.store.CreateCourse(ctx, &course); err != nil {
		return nil, err
	}
	logger.Info.Printf("Course %s %q created by %s", course.ID, course.Name, professorID)
	return &course, nil
}

func (s *Service) ListCourses(ctx context.Context, professorID string) ([]models.Course, error) {
	return s.store.ListCourses(ctx, professorID)
}

func (s *Service) GetCourse(ctx context.Context, professorID, courseID string) (*models.Course, error) {
	return s.course(ctx, professorID, courseID)
}

func (s *Service) UpdateCourse(ctx context.Context, professorID, courseID string, in CourseUpdate) (*models.Course, error) {
	course, err := s.course(ctx, professorID, courseID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&course.Name, in.Name)
	apply(&course.Number, in.Number)
	apply(&course.Section, in.Section)
	apply(&course.Semester, in.Semester)
	apply(&course.Status, in.Status)

	if err := course.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	if err := s.store.UpdateCourse(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse is a soft delete: the course turns Inactive and keeps its data.
func (s *Service) DeleteCourse(ctx context.Context, professorID, courseID string) error {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return err
	}
	if err := s.store.SetCourseStatus(ctx, courseID, models.StatusInactive); err != nil {
		return err
	}
	logger.Info.Printf("Course %s deactivated", courseID)
	return nil
}
