package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type ImportResult struct {
	StudentsInserted int      `json:"students_inserted"`
	StudentsUpdated  int      `json:"students_updated"`
	TeamsCreated     int      `json:"teams_created"`
	StudentCount     int      `json:"student_count"`
	TeamCount        int      `json:"team_count"`
	Errors           []string `json:"errors"`
}

type pendingLink struct {
	student  *models.Student
	teamName string
}

// ImportRoster inserts new students, treats known student ids as team
// reassignments, and links everyone to find-or-created teams. Bad rows are
// reported in the result; only storage failures are returned as errors.
func (s *Service) ImportRoster(ctx context.Context, professorID, courseID string, rows []models.RosterRow) (*ImportResult, error) {
	if _, err := s.course(ctx, professorID, courseID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.Validationf("no roster rows provided")
	}

	result := &ImportResult{Errors: []string{}}
	var links []pendingLink

	for i := range rows {
		row := rows[i]
		row.Normalize()
		rowNum := i + 1

		if err := row.Validate(); err != nil {
			msg := fmt.Sprintf("Row %d: %s", rowNum, apperr.FromValidation(err).Error())
			result.Errors = append(result.Errors, msg)
			metrics.RosterRowsTotal.WithLabelValues("rejected").Inc()
			logger.Debug.Printf("Roster import for %s: %s", courseID, msg)
			continue
		}

		student, err := s.store.GetStudentByExternalID(ctx, courseID, row.StudentID)
		if err != nil {
			return nil, err
		}

		if student != nil {
			result.StudentsUpdated++
			metrics.RosterRowsTotal.WithLabelValues("updated").Inc()
		} else {
			student = &models.Student{
				ID:        uuid.NewString(),
				CourseID:  courseID,
				StudentID: row.StudentID,
				Name:      row.Name,
				Email:     row.Email,
				CreatedAt: s.now().Unix(),
			}
			err := s.store.CreateStudent(ctx, student)
			if errors.Is(err, store.ErrDuplicate) {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: student %s already exists", rowNum, row.StudentID))
				metrics.RosterRowsTotal.WithLabelValues("rejected").Inc()
				continue
			}
			if err != nil {
				return nil, err
			}
			result.StudentsInserted++
			metrics.RosterRowsTotal.WithLabelValues("inserted").Inc()
		}

		if row.TeamName != "" {
			links = append(links, pendingLink{student: student, teamName: row.TeamName})
		}
	}

	teams := make(map[string]*models.Team)
	for _, link := range links {
		team, ok := teams[link.teamName]
		if !ok {
			var created bool
			var err error
			team, created, err = s.findOrCreateTeam(ctx, courseID, link.teamName)
			if err != nil {
				return nil, err
			}
			if created {
				result.TeamsCreated++
			}
			teams[link.teamName] = team
		}

		if link.student.TeamID != nil && *link.student.TeamID == team.ID {
			continue
		}
		if err := s.store.MoveStudentToTeam(ctx, link.student.ID, team); err != nil {
			return nil, err
		}
		teamID := team.ID
		link.student.TeamID = &teamID
		link.student.TeamName = team.Name
	}

	counts, err := s.refresh(ctx, courseID)
	if err != nil {
		return nil, err
	}
	result.StudentCount = counts.Students
	result.TeamCount = counts.Teams

	logger.Info.Printf(
		"Roster import for %s: inserted=%d updated=%d teams_created=%d errors=%d",
		courseID,
		result.StudentsInserted,
		result.StudentsUpdated,
		result.TeamsCreated,
		len(result.Errors),
	)
	return result, nil
}

// teamColumns lists the accepted team column names, highest priority first.
var teamColumns = []string{"team_name", "group_assignment", "group"}

// ParseRosterCSV reads a header row followed by student rows. The team comes
// from the first non-empty of team_name, group_assignment and group.
func ParseRosterCSV(r io.Reader) ([]models.RosterRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperr.Validationf("roster file is empty")
	}
	if err != nil {
		return nil, apperr.Validationf("invalid roster file: %v", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"student_id", "name", "email"} {
		if _, ok := index[required]; !ok {
			return nil, apperr.Validationf("roster file is missing the %s column", required)
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []models.RosterRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validationf("invalid roster file: %v", err)
		}

		row := models.RosterRow{
			StudentID: field(record, "student_id"),
			Name:      field(record, "name"),
			Email:     field(record, "email"),
		}
		for _, column := range teamColumns {
			if v := field(record, column); v != "" {
				row.TeamName = v
				break
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
