// Package evaluation issues per-student evaluation tokens, serves the
// evaluation form behind a token and stores submissions.
package evaluation

import (
	"context"
	"time"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/notify"
	"github.com/shrimpsizemoose/semla/internal/store"
)

const maxTokenAttempts = 5

type Service struct {
	store      store.Store
	dispatcher *notify.Dispatcher
	locker     Locker
	baseURL    string
	now        func() time.Time
	newToken   func() (string, error)
}

func NewService(st store.Store, dispatcher *notify.Dispatcher, locker Locker, frontendBaseURL string) *Service {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Service{
		store:      st,
		dispatcher: dispatcher,
		locker:     locker,
		baseURL:    frontendBaseURL,
		now:        time.Now,
		newToken:   generateToken,
	}
}

func (s *Service) studentByToken(ctx context.Context, token string) (*models.Student, error) {
	if token == "" {
		return nil, apperr.Cancelledf("this evaluation link is no longer valid")
	}
	student, err := s.store.GetStudentByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, apperr.Cancelledf("this evaluation link is no longer valid")
	}
	return student, nil
}

// teammates are the other members of the student's team, or every other
// student of the course when the student has no team.
func (s *Service) teammates(ctx context.Context, student *models.Student) ([]models.Student, error) {
	var pool []models.Student
	var err error
	if student.TeamID != nil {
		pool, err = s.store.ListTeamStudents(ctx, student.CourseID, *student.TeamID)
	} else {
		pool, err = s.store.ListStudents(ctx, student.CourseID)
	}
	if err != nil {
		return nil, err
	}

	mates := make([]models.Student, 0, len(pool))
	for _, st := range pool {
		if st.ID != student.ID {
			mates = append(mates, st)
		}
	}
	return mates, nil
}
