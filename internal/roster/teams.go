package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type TeamUpdate struct {
	Name   *string `json:"team_name"`
	Status *string `json:"team_status"`
}

type CreateTeamsResult struct {
	Created []models.Team `json:"created"`
	Errors  []string      `json:"errors"`
}

// ListTeams returns the course teams with their members attached.
func (s *Service) ListTeams(ctx context.Context, professorID, courseID string) ([]models.Team, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	teams, err := s.store.ListTeams(ctx, courseID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListTeamMembers(ctx, courseID)
	if err != nil {
		return nil, err
	}

	byTeam := make(map[string][]models.TeamMember)
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m)
	}
	for i := range teams {
		teams[i].Members = byTeam[teams[i].ID]
		if teams[i].Members == nil {
			teams[i].Members = []models.TeamMember{}
		}
	}
	return teams, nil
}

func (s *Service) CreateTeams(ctx context.Context, professorID, courseID string, names []string) (*CreateTeamsResult, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, apperr.Validationf("no team names provided")
	}

	result := &CreateTeamsResult{Created: []models.Team{}, Errors: []string{}}
	for _, name := range names {
		name = strings.TrimSpace(name)
		team := models.Team{
			ID:        uuid.NewString(),
			CourseID:  courseID,
			Name:      name,
			Status:    models.StatusActive,
			CreatedAt: s.now().Unix(),
		}
		if err := team.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %s", name, apperr.FromValidation(err).Error()))
			continue
		}
		err := s.store.CreateTeam(ctx, &team)
		if errors.Is(err, store.ErrDuplicate) {
			result.Errors = append(result.Errors, fmt.Sprintf("team %q already exists", name))
			continue
		}
		if err != nil {
			return nil, err
		}
		team.Members = []models.TeamMember{}
		result.Created = append(result.Created, team)
	}

	if _, err := s.refresh(ctx, courseID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) UpdateTeam(ctx context.Context, professorID, courseID, teamID string, in TeamUpdate) (*models.Team, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	team, err := s.requireTeam(ctx, courseID, teamID)
	if err != nil {
		return nil, err
	}

	updated := *team
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Status != nil {
		updated.Status = strings.TrimSpace(*in.Status)
	}
	if err := updated.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	if updated.Name != team.Name {
		err := s.store.RenameTeam(ctx, courseID, teamID, updated.Name)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflictf("team %q already exists", updated.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	if updated.Status != team.Status {
		if err := s.store.SetTeamStatus(ctx, courseID, teamID, updated.Status); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

// DeleteTeam refuses to delete a team that still has members.
func (s *Service) DeleteTeam(ctx context.Context, professorID, courseID, teamID string) error {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return err
	}
	if _, err := s.requireTeam(ctx, courseID, teamID); err != nil {
		return err
	}

	deleted, err := s.store.DeleteEmptyTeam(ctx, courseID, teamID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.Conflictf("cannot delete a team that still has students; remove them first")
	}

	if _, err := s.refresh(ctx, courseID); err != nil {
		return err
	}
	logger.Info.Printf("Team %s of %s deleted", teamID, courseID)
	return nil
}

// ClearAllTeams deletes every team of the course and unlinks all students.
func (s *Service) ClearAllTeams(ctx context.Context, professorID, courseID string) (int64, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return 0, err
	}
	n, err := s.store.ClearTeams(ctx, courseID)
	if err != nil {
		return 0, err
	}
	logger.Info.Printf("Cleared %d teams of %s", n, courseID)
	return n, nil
}

// AssignStudent moves the student out of any other team of the course and into teamID.
func (s *Service) AssignStudent(ctx context.Context, professorID, courseID, teamID, studentID string) (*models.Student, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	team, err := s.requireTeam(ctx, courseID, teamID)
	if err != nil {
		return nil, err
	}
	student, err := s.requireStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	if student.TeamID != nil && *student.TeamID == team.ID {
		return nil, apperr.Conflictf("student is already in this team")
	}

	if err := s.store.MoveStudentToTeam(ctx, student.ID, team); err != nil {
		return nil, err
	}
	if _, err := s.refresh(ctx, courseID); err != nil {
		return nil, err
	}
	student.TeamID = &team.ID
	student.TeamName = team.Name
	return student, nil
}

func (s *Service) RemoveStudent(ctx context.Context, professorID, courseID, teamID, studentID string) error {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return err
	}
	if _, err := s.requireTeam(ctx, courseID, teamID); err != nil {
		return err
	}
	if _, err := s.requireStudent(ctx, courseID, studentID); err != nil {
		return err
	}

	removed, err := s.store.RemoveStudentFromTeam(ctx, teamID, studentID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFoundf("student is not a member of this team")
	}
	_, err = s.refresh(ctx, courseID)
	return err
}
