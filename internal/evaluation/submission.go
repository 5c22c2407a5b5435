package evaluation

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type FormStudent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FormCourse struct {
	ID     string `json:"id"`
	Name   string `json:"course_name"`
	Number string `json:"course_number"`
}

// Form is what a student sees behind their evaluation link. Once the student
// has submitted, Completed is set and the rubric and teammates are left out.
type Form struct {
	Completed bool                     `json:"completed"`
	Student   FormStudent              `json:"student"`
	Course    FormCourse               `json:"course"`
	Teammates []FormStudent            `json:"teammates,omitempty"`
	Rubric    *models.RubricDefinition `json:"rubric,omitempty"`
}

type SubmitResult struct {
	Submitted   int   `json:"submitted"`
	SubmittedAt int64 `json:"submitted_at"`
}

type TokenStatus struct {
	Valid     bool `json:"valid"`
	Completed bool `json:"completed"`
}

func (s *Service) GetForm(ctx context.Context, token string) (*Form, error) {
	student, err := s.studentByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	course, err := s.store.GetCourse(ctx, student.CourseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apperr.Cancelledf("this evaluation link is no longer valid")
	}

	form := &Form{
		Student: FormStudent{ID: student.ID, Name: student.Name},
		Course:  FormCourse{ID: course.ID, Name: course.Name, Number: course.Number},
	}

	submitted, err := s.store.HasSubmitted(ctx, student.CourseID, student.ID)
	if err != nil {
		return nil, err
	}
	if submitted {
		form.Completed = true
		return form, nil
	}

	mates, err := s.teammates(ctx, student)
	if err != nil {
		return nil, err
	}
	form.Teammates = make([]FormStudent, 0, len(mates))
	for _, m := range mates {
		form.Teammates = append(form.Teammates, FormStudent{ID: m.ID, Name: m.Name})
	}
	rubric := models.Rubric
	form.Rubric = &rubric
	return form, nil
}

func (s *Service) TokenStatus(ctx context.Context, token string) (*TokenStatus, error) {
	if token == "" {
		return &TokenStatus{}, nil
	}
	student, err := s.store.GetStudentByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return &TokenStatus{}, nil
	}
	submitted, err := s.store.HasSubmitted(ctx, student.CourseID, student.ID)
	if err != nil {
		return nil, err
	}
	return &TokenStatus{Valid: true, Completed: submitted}, nil
}

// Submit validates the whole batch before writing anything and stores it at
// most once per token.
func (s *Service) Submit(ctx context.Context, token string, inputs []models.EvaluationInput) (*SubmitResult, error) {
	student, err := s.studentByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	submitted, err := s.store.HasSubmitted(ctx, student.CourseID, student.ID)
	if err != nil {
		return nil, err
	}
	if submitted {
		metrics.SubmissionsRejectedTotal.WithLabelValues("already_completed").Inc()
		return nil, apperr.Conflictf("evaluation already completed")
	}

	if err := s.validateBatch(ctx, student, inputs); err != nil {
		metrics.SubmissionsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	release, acquired, err := s.locker.Acquire(ctx, token)
	if err != nil {
		return nil, err
	}
	if !acquired {
		metrics.SubmissionsRejectedTotal.WithLabelValues("in_progress").Inc()
		return nil, apperr.Conflictf("a submission for this link is already in progress")
	}
	defer release()

	now := s.now().Unix()
	rows := make([]models.Evaluation, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, models.Evaluation{
			ID:              uuid.NewString(),
			CourseID:        student.CourseID,
			StudentID:       in.StudentID,
			EvaluatorID:     student.ID,
			Ratings:         in.Ratings,
			OverallFeedback: in.OverallFeedback,
			EvaluationToken: token,
			SubmittedAt:     now,
		})
	}

	err = s.store.SubmitEvaluations(ctx, student.ID, rows)
	if errors.Is(err, store.ErrAlreadySubmitted) || errors.Is(err, store.ErrDuplicate) {
		metrics.SubmissionsRejectedTotal.WithLabelValues("already_completed").Inc()
		return nil, apperr.Conflictf("evaluation already completed")
	}
	if err != nil {
		return nil, err
	}

	metrics.EvaluationsSubmittedTotal.Add(float64(len(rows)))
	logger.Info.Printf("Student %s submitted %d evaluations with token %s", student.ID, len(rows), models.RedactToken(token))
	return &SubmitResult{Submitted: len(rows), SubmittedAt: now}, nil
}

func (s *Service) validateBatch(ctx context.Context, student *models.Student, inputs []models.EvaluationInput) error {
	if len(inputs) == 0 {
		return apperr.Validationf("no evaluations provided")
	}

	mates, err := s.teammates(ctx, student)
	if err != nil {
		return err
	}
	allowed := make(map[string]bool, len(mates))
	for _, m := range mates {
		allowed[m.ID] = true
	}

	feedback := models.Rubric.Feedback
	seen := make(map[string]bool, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		in.Normalize()
		n := i + 1

		if err := in.Validate(); err != nil {
			return apperr.Validationf("evaluation %d: %s", n, apperr.FromValidation(err).Error())
		}
		if length := utf8.RuneCountInString(in.OverallFeedback); length < feedback.MinLength || length > feedback.MaxLength {
			return apperr.Validationf(
				"evaluation %d: %s must be between %d and %d characters",
				n, feedback.ID, feedback.MinLength, feedback.MaxLength,
			)
		}
		switch {
		case in.StudentID == student.ID:
			return apperr.Validationf("evaluation %d: you cannot evaluate yourself", n)
		case !allowed[in.StudentID]:
			return apperr.Validationf("evaluation %d: student %s is not your teammate", n, in.StudentID)
		case seen[in.StudentID]:
			return apperr.Validationf("evaluation %d: student %s is evaluated more than once", n, in.StudentID)
		}
		seen[in.StudentID] = true
	}
	return nil
}

