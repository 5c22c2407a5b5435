// Package roster keeps courses, students and teams consistent: roster import,
// manual edits and team assignment all end with a recount from live rows.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

func (s *Service) course(ctx context.Context, professorID, courseID string) (*models.Course, error) {
	return store.RequireOwnedCourse(ctx, s.store, professorID, courseID)
}

func (s *Service) refresh(ctx context.Context, courseID string) (models.CourseCounts, error) {
	counts, err := s.store.RefreshCounts(ctx, courseID)
	if err != nil {
		return counts, err
	}
	logger.Debug.Printf("Course %s counts: students=%d teams=%d", courseID, counts.Students, counts.Teams)
	return counts, nil
}

// findOrCreateTeam looks the team up by name within the course and creates an
// active, empty one when missing. The bool reports creation.
func (s *Service) findOrCreateTeam(ctx context.Context, courseID, name string) (*models.Team, bool, error) {
	team, err := s.store.GetTeamByName(ctx, courseID, name)
	if err != nil {
		return nil, false, err
	}
	if team != nil {
		return team, false, nil
	}

	team = &models.Team{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Name:      name,
		Status:    models.StatusActive,
		CreatedAt: s.now().Unix(),
	}
	err = s.store.CreateTeam(ctx, team)
	if errors.Is(err, store.ErrDuplicate) {
		// created concurrently
		team, err = s.store.GetTeamByName(ctx, courseID, name)
		if err != nil {
			return nil, false, err
		}
		if team == nil {
			return nil, false, fmt.Errorf("team %q vanished after duplicate insert", name)
		}
		return team, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return team, true, nil
}

func (s *Service) requireStudent(ctx context.Context, courseID, id string) (*models.Student, error) {
	student, err := s.store.GetStudent(ctx, courseID, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, apperr.NotFoundf("student not found")
	}
	return student, nil
}

func (s *Service) requireTeam(ctx context.Context, courseID, id string) (*models.Team, error) {
	team, err := s.store.GetTeam(ctx, courseID, id)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperr.NotFoundf("team not found")
	}
	return team, nil
}
