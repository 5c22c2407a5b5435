package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/notify"
	"github.com/shrimpsizemoose/semla/internal/scoring"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type SendResult struct {
	TokensIssued int             `json:"tokens_issued"`
	Sent         int             `json:"sent"`
	Failed       int             `json:"failed"`
	Results      []notify.Result `json:"results"`
}

type StudentStatus struct {
	ID                   string `json:"id"`
	StudentID            string `json:"student_id"`
	Name                 string `json:"name"`
	Email                string `json:"email"`
	TeamName             string `json:"team_name"`
	TokenIssued          bool   `json:"token_issued"`
	Completed            bool   `json:"completed"`
	EvaluationsSubmitted int    `json:"evaluations_submitted"`
	LastSubmittedAt      *int64 `json:"last_submitted_at"`
}

type StatusReport struct {
	EvaluationsSent bool            `json:"evaluations_sent"`
	TotalStudents   int             `json:"total_students"`
	Completed       int             `json:"completed"`
	Pending         int             `json:"pending"`
	CompletionRate  float64         `json:"completion_rate"`
	Students        []StudentStatus `json:"students"`
}

// IssueTokensAndNotify gives every student without a token a fresh one, then
// notifies every student of the course. Tokens are all persisted before the
// first notification goes out, and existing tokens are reused, so a resend is safe.
func (s *Service) IssueTokensAndNotify(ctx context.Context, professorID, courseID string, deadline *time.Time) (*SendResult, error) {
	course, err := store.RequireOwnedCourse(ctx, s.store, professorID, courseID)
	if err != nil {
		return nil, err
	}
	students, err := s.store.ListStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, apperr.Validationf("no students in this course")
	}

	issued := 0
	for i := range students {
		if students[i].HasToken() {
			continue
		}
		token, fresh, err := s.issueToken(ctx, &students[i])
		if err != nil {
			return nil, err
		}
		students[i].EvaluationToken = &token
		if fresh {
			issued++
		}
	}
	logger.Info.Printf("Issued %d new evaluation tokens for course %s", issued, courseID)

	result := s.send(ctx, course, students, notify.KindInvitation, deadline)
	result.TokensIssued = issued
	return result, nil
}

// issueToken retries on token collisions. fresh is false when another request
// issued a token for the student first.
func (s *Service) issueToken(ctx context.Context, student *models.Student) (string, bool, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", false, err
		}

		set, err := s.store.SetEvaluationToken(ctx, student.ID, token)
		if errors.Is(err, store.ErrDuplicate) {
			logger.Debug.Printf("Token collision for student %s, retrying", student.ID)
			continue
		}
		if err != nil {
			return "", false, err
		}
		if set {
			return token, true, nil
		}

		current, err := s.store.GetStudent(ctx, student.CourseID, student.ID)
		if err != nil {
			return "", false, err
		}
		if current == nil || !current.HasToken() {
			return "", false, fmt.Errorf("student %s disappeared while issuing token", student.ID)
		}
		return *current.EvaluationToken, false, nil
	}
	return "", false, fmt.Errorf("failed to issue a unique token for student %s after %d attempts", student.ID, maxTokenAttempts)
}

// Remind notifies students that hold a token but have not submitted yet.
func (s *Service) Remind(ctx context.Context, professorID, courseID string, deadline *time.Time) (*SendResult, error) {
	course, err := store.RequireOwnedCourse(ctx, s.store, professorID, courseID)
	if err != nil {
		return nil, err
	}
	students, err := s.store.ListStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}

	pending := make([]models.Student, 0, len(students))
	for _, st := range students {
		if st.HasToken() && !st.EvaluationCompleted {
			pending = append(pending, st)
		}
	}
	return s.send(ctx, course, pending, notify.KindReminder, deadline), nil
}

func (s *Service) send(ctx context.Context, course *models.Course, students []models.Student, kind notify.Kind, deadline *time.Time) *SendResult {
	invitations := make([]notify.Invitation, 0, len(students))
	for _, st := range students {
		invitations = append(invitations, notify.Invitation{
			Kind:         kind,
			StudentID:    st.ID,
			StudentName:  st.Name,
			Email:        st.Email,
			CourseID:     course.ID,
			CourseName:   course.Name,
			CourseNumber: course.Number,
			Link:         notify.EvaluationLink(s.baseURL, *st.EvaluationToken),
			Deadline:     deadline,
		})
	}

	result := &SendResult{Results: s.dispatcher.Send(ctx, invitations)}
	for _, r := range result.Results {
		if r.Sent {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	logger.Info.Printf("Course %s %s batch: sent=%d failed=%d", course.ID, kind, result.Sent, result.Failed)
	return result
}

// Reset clears tokens and completion and deletes the evaluations the students
// submitted. Without ids the whole course is reset.
func (s *Service) Reset(ctx context.Context, professorID, courseID string, studentIDs []string) (int64, error) {
	if _, err := store.RequireOwnedCourse(ctx, s.store, professorID, courseID); err != nil {
		return 0, err
	}
	if studentIDs != nil && len(studentIDs) == 0 {
		studentIDs = nil
	}
	n, err := s.store.ResetEvaluations(ctx, courseID, studentIDs)
	if err != nil {
		return 0, err
	}
	logger.Info.Printf("Reset evaluation state of %d students in course %s", n, courseID)
	return n, nil
}

func (s *Service) Status(ctx context.Context, professorID, courseID string) (*StatusReport, error) {
	if _, err := store.RequireOwnedCourse(ctx, s.store, professorID, courseID); err != nil {
		return nil, err
	}
	students, err := s.store.ListStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Students: []StudentStatus{}}
	for _, st := range students {
		if st.HasToken() {
			report.EvaluationsSent = true
			break
		}
	}
	if !report.EvaluationsSent {
		return report, nil
	}

	stats, err := s.store.ListSubmissionStats(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byEvaluator := make(map[string]store.SubmissionStat, len(stats))
	for _, stat := range stats {
		byEvaluator[stat.EvaluatorID] = stat
	}

	for _, st := range students {
		status := StudentStatus{
			ID:          st.ID,
			StudentID:   st.StudentID,
			Name:        st.Name,
			Email:       st.Email,
			TeamName:    st.TeamName,
			TokenIssued: st.HasToken(),
		}
		if stat, ok := byEvaluator[st.ID]; ok {
			last := stat.LastSubmittedAt
			status.Completed = true
			status.EvaluationsSubmitted = stat.Submitted
			status.LastSubmittedAt = &last
			report.Completed++
		}
		report.Students = append(report.Students, status)
	}

	report.TotalStudents = len(students)
	report.Pending = report.TotalStudents - report.Completed
	report.CompletionRate = scoring.Round2(float64(report.Completed) / float64(report.TotalStudents) * 100)
	return report, nil
}
