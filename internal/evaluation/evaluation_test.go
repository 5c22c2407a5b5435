package evaluation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/apperr"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/notify"
	"github.com/shrimpsizemoose/semla/internal/roster"
	"github.com/shrimpsizemoose/semla/internal/store/sqlite"
	"github.com/shrimpsizemoose/semla/migrations"
)

const prof = "prof-1"

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, inv notify.Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	return nil
}

type stubLocker struct {
	acquired bool
}

func (l stubLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	return func() {}, l.acquired, nil
}

type fixture struct {
	svc      *Service
	store    *sqlite.SQLiteStore
	notifier *MockNotifier
	courseID string
	now      time.Time
}

// setup creates a course with A and B in team T1 and C without a team.
func setup(t *testing.T) *fixture {
	ctx := context.Background()
	st, err := sqlite.NewSQLiteStore(":memory:", migrations.FS)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rs := roster.NewService(st)
	course, err := rs.CreateCourse(ctx, prof, models.Course{Name: "Capstone", Number: "CS499", Semester: "Fall 2024"})
	require.NoError(t, err)
	_, err = rs.ImportRoster(ctx, prof, course.ID, []models.RosterRow{
		{StudentID: "1", Name: "Ann", Email: "ann@x.com", TeamName: "T1"},
		{StudentID: "2", Name: "Ben", Email: "ben@x.com", TeamName: "T1"},
		{StudentID: "3", Name: "Cat", Email: "cat@x.com"},
	})
	require.NoError(t, err)

	notifier := new(MockNotifier)
	dispatcher := &notify.Dispatcher{Notifier: notifier, CallTimeout: time.Second, BatchTimeout: 5 * time.Second}
	svc := NewService(st, dispatcher, nil, "https://peer.example.edu")
	now := time.Date(2024, 11, 20, 18, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, store: st, notifier: notifier, courseID: course.ID, now: now}
}

func (f *fixture) student(t *testing.T, externalID string) *models.Student {
	t.Helper()
	st, err := f.store.GetStudentByExternalID(context.Background(), f.courseID, externalID)
	require.NoError(t, err)
	require.NotNil(t, st)
	return st
}

func (f *fixture) token(t *testing.T, externalID string) string {
	t.Helper()
	st := f.student(t, externalID)
	require.True(t, st.HasToken(), "student %s has no token", externalID)
	return *st.EvaluationToken
}

func (f *fixture) sendAll(t *testing.T) *SendResult {
	t.Helper()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	res, err := f.svc.IssueTokensAndNotify(context.Background(), prof, f.courseID, nil)
	require.NoError(t, err)
	return res
}

func goodInput(rateeID string) models.EvaluationInput {
	return models.EvaluationInput{
		StudentID: rateeID,
		Ratings: models.Ratings{
			Professionalism:        4,
			Communication:          5,
			WorkEthic:              4,
			ContentKnowledgeSkills: 3,
			OverallContribution:    4,
			Participation:          4,
		},
		OverallFeedback: "Kept the team on schedule and reviewed code carefully.",
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, tokenPrefix))
	assert.Len(t, a, len(tokenPrefix)+48)
	assert.NotEqual(t, a, b)
}

func TestIssueTokensIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.sendAll(t)
	assert.Equal(t, 3, first.TokensIssued)
	assert.Equal(t, 3, first.Sent)
	assert.Zero(t, first.Failed)
	tokens := map[string]string{"1": f.token(t, "1"), "2": f.token(t, "2"), "3": f.token(t, "3")}

	second, err := f.svc.IssueTokensAndNotify(ctx, prof, f.courseID, nil)
	require.NoError(t, err)
	assert.Zero(t, second.TokensIssued)
	assert.Equal(t, 3, second.Sent)
	for id, tok := range tokens {
		assert.Equal(t, tok, f.token(t, id), "token of %s changed", id)
	}

	f.notifier.AssertNumberOfCalls(t, "Notify", 6)
	last := f.notifier.Calls[5].Arguments.Get(1).(notify.Invitation)
	assert.True(t, strings.HasPrefix(last.Link, "https://peer.example.edu/evaluate/"+tokenPrefix))
	assert.Equal(t, notify.KindInvitation, last.Kind)
}

func TestIssueTokensNotificationFailureIsIsolated(t *testing.T) {
	f := setup(t)
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(inv notify.Invitation) bool { return inv.Email == "ben@x.com" })).
		Return(errors.New("smtp 550"))
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	deadline := f.now.Add(72 * time.Hour)
	res, err := f.svc.IssueTokensAndNotify(context.Background(), prof, f.courseID, &deadline)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	for _, r := range res.Results {
		if r.Email == "ben@x.com" {
			assert.False(t, r.Sent)
			assert.Equal(t, "smtp 550", r.Error)
		}
	}
	f.token(t, "2")
}

func TestIssueTokensErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.IssueTokensAndNotify(ctx, "prof-2", f.courseID, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.DeleteAllStudents(ctx, f.courseID)
	require.NoError(t, err)
	_, err = f.svc.IssueTokensAndNotify(ctx, prof, f.courseID, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIssueTokensRetriesCollisions(t *testing.T) {
	f := setup(t)
	seq := []string{"tok-1", "tok-1", "tok-2", "tok-3"}
	f.svc.newToken = func() (string, error) {
		tok := seq[0]
		seq = seq[1:]
		return tok, nil
	}

	res := f.sendAll(t)
	assert.Equal(t, 3, res.TokensIssued)

	got := map[string]bool{f.token(t, "1"): true, f.token(t, "2"): true, f.token(t, "3"): true}
	assert.Equal(t, map[string]bool{"tok-1": true, "tok-2": true, "tok-3": true}, got)
}

func TestGetForm(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sendAll(t)
	ann, ben := f.student(t, "1"), f.student(t, "2")

	form, err := f.svc.GetForm(ctx, f.token(t, "1"))
	require.NoError(t, err)
	assert.False(t, form.Completed)
	assert.Equal(t, "Ann", form.Student.Name)
	assert.Equal(t, "CS499", form.Course.Number)
	assert.Equal(t, []FormStudent{{ID: ben.ID, Name: "Ben"}}, form.Teammates)
	require.NotNil(t, form.Rubric)
	assert.Len(t, form.Rubric.Criteria, 6)

	again, err := f.svc.GetForm(ctx, f.token(t, "1"))
	require.NoError(t, err)
	assert.Equal(t, form.Teammates, again.Teammates)

	_, err = f.svc.Submit(ctx, f.token(t, "1"), []models.EvaluationInput{goodInput(ben.ID)})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		done, err := f.svc.GetForm(ctx, f.token(t, "1"))
		require.NoError(t, err)
		assert.True(t, done.Completed)
		assert.Empty(t, done.Teammates)
		assert.Equal(t, ann.ID, done.Student.ID)
	}
}

func TestGetFormWithoutTeamFallsBackToCourse(t *testing.T) {
	f := setup(t)
	f.sendAll(t)

	form, err := f.svc.GetForm(context.Background(), f.token(t, "3"))
	require.NoError(t, err)
	require.Len(t, form.Teammates, 2)
	assert.Equal(t, "Ann", form.Teammates[0].Name)
	assert.Equal(t, "Ben", form.Teammates[1].Name)
}

func TestGetFormUnknownToken(t *testing.T) {
	f := setup(t)

	_, err := f.svc.GetForm(context.Background(), "sk-semla-nope")
	assert.ErrorIs(t, err, apperr.ErrEvaluationCancelled)

	_, err = f.svc.GetForm(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrEvaluationCancelled)
}

func TestSubmitTwiceIsConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sendAll(t)
	ben := f.student(t, "2")
	tok := f.token(t, "1")

	res, err := f.svc.Submit(ctx, tok, []models.EvaluationInput{goodInput(ben.ID)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Submitted)
	assert.Equal(t, f.now.Unix(), res.SubmittedAt)

	_, err = f.svc.Submit(ctx, tok, []models.EvaluationInput{goodInput(ben.ID)})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// a stale payload that would no longer validate still reports the completed submission
	_, err = f.svc.Submit(ctx, tok, []models.EvaluationInput{goodInput(f.student(t, "3").ID)})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.Submit(ctx, tok, nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	evals, err := f.store.ListCourseEvaluations(ctx, f.courseID)
	require.NoError(t, err)
	assert.Len(t, evals, 1)
	assert.True(t, f.student(t, "1").EvaluationCompleted)
}

func TestSubmitConcurrentSameToken(t *testing.T) {
	f := setup(t)
	f.sendAll(t)
	ben := f.student(t, "2")
	tok := f.token(t, "1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, conflicts int
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), tok, []models.EvaluationInput{goodInput(ben.ID)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, apperr.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, conflicts)
	evals, err := f.store.ListCourseEvaluations(context.Background(), f.courseID)
	require.NoError(t, err)
	assert.Len(t, evals, 1)
}

func TestSubmitValidation(t *testing.T) {
	f := setup(t)
	f.sendAll(t)
	ann, ben, cat := f.student(t, "1"), f.student(t, "2"), f.student(t, "3")
	tok := f.token(t, "1")

	withRatings := func(mutate func(*models.EvaluationInput)) []models.EvaluationInput {
		in := goodInput(ben.ID)
		mutate(&in)
		return []models.EvaluationInput{in}
	}

	testCases := []struct {
		name   string
		inputs []models.EvaluationInput
		msg    string
	}{
		{"empty batch", nil, "no evaluations provided"},
		{"missing rating", withRatings(func(in *models.EvaluationInput) { in.Ratings.WorkEthic = 0 }), "work_ethic is required"},
		{"participation above 4", withRatings(func(in *models.EvaluationInput) { in.Ratings.Participation = 5 }), "participation must be at most 4"},
		{"rating above 5", withRatings(func(in *models.EvaluationInput) { in.Ratings.Communication = 6 }), "communication must be at most 5"},
		{"short feedback", withRatings(func(in *models.EvaluationInput) { in.OverallFeedback = "  ok fine  " }), "overall_feedback must be between 10 and 1000 characters"},
		{"long feedback", withRatings(func(in *models.EvaluationInput) { in.OverallFeedback = strings.Repeat("é", 1001) }), "overall_feedback must be between 10 and 1000 characters"},
		{"self", []models.EvaluationInput{goodInput(ann.ID)}, "you cannot evaluate yourself"},
		{"not a teammate", []models.EvaluationInput{goodInput(cat.ID)}, "is not your teammate"},
		{"duplicate ratee", []models.EvaluationInput{goodInput(ben.ID), goodInput(ben.ID)}, "evaluated more than once"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), tok, tc.inputs)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	submitted, err := f.store.HasSubmitted(context.Background(), f.courseID, ann.ID)
	require.NoError(t, err)
	assert.False(t, submitted)
}

func TestSubmitLockHeldElsewhere(t *testing.T) {
	f := setup(t)
	f.sendAll(t)
	f.svc.locker = stubLocker{acquired: false}

	_, err := f.svc.Submit(context.Background(), f.token(t, "1"), []models.EvaluationInput{goodInput(f.student(t, "2").ID)})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestResetAndReissue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sendAll(t)
	ann, ben := f.student(t, "1"), f.student(t, "2")
	oldToken := f.token(t, "1")

	_, err := f.svc.Submit(ctx, oldToken, []models.EvaluationInput{goodInput(ben.ID)})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.token(t, "2"), []models.EvaluationInput{goodInput(ann.ID)})
	require.NoError(t, err)

	n, err := f.svc.Reset(ctx, prof, f.courseID, []string{ann.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.False(t, f.student(t, "1").HasToken())
	assert.False(t, f.student(t, "1").EvaluationCompleted)
	_, err = f.svc.GetForm(ctx, oldToken)
	assert.ErrorIs(t, err, apperr.ErrEvaluationCancelled)

	evals, err := f.store.ListCourseEvaluations(ctx, f.courseID)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, ben.ID, evals[0].EvaluatorID)

	res, err := f.svc.IssueTokensAndNotify(ctx, prof, f.courseID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TokensIssued)
	newToken := f.token(t, "1")
	assert.NotEqual(t, oldToken, newToken)

	form, err := f.svc.GetForm(ctx, newToken)
	require.NoError(t, err)
	assert.False(t, form.Completed)
}

func TestStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	before, err := f.svc.Status(ctx, prof, f.courseID)
	require.NoError(t, err)
	assert.False(t, before.EvaluationsSent)
	assert.Zero(t, before.TotalStudents)
	assert.Empty(t, before.Students)

	f.sendAll(t)
	_, err = f.svc.Submit(ctx, f.token(t, "1"), []models.EvaluationInput{goodInput(f.student(t, "2").ID)})
	require.NoError(t, err)

	after, err := f.svc.Status(ctx, prof, f.courseID)
	require.NoError(t, err)
	assert.True(t, after.EvaluationsSent)
	assert.Equal(t, 3, after.TotalStudents)
	assert.Equal(t, 1, after.Completed)
	assert.Equal(t, 2, after.Pending)
	assert.Equal(t, 33.33, after.CompletionRate)

	require.Len(t, after.Students, 3)
	annStatus := after.Students[0]
	assert.Equal(t, "Ann", annStatus.Name)
	assert.True(t, annStatus.Completed)
	assert.Equal(t, 1, annStatus.EvaluationsSubmitted)
	require.NotNil(t, annStatus.LastSubmittedAt)
	assert.Equal(t, f.now.Unix(), *annStatus.LastSubmittedAt)
	assert.False(t, after.Students[1].Completed)
	assert.Nil(t, after.Students[1].LastSubmittedAt)
}

func TestRemind(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sendAll(t)
	_, err := f.svc.Submit(ctx, f.token(t, "1"), []models.EvaluationInput{goodInput(f.student(t, "2").ID)})
	require.NoError(t, err)
	_, err = f.svc.Reset(ctx, prof, f.courseID, []string{f.student(t, "3").ID})
	require.NoError(t, err)

	res, err := f.svc.Remind(ctx, prof, f.courseID, nil)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "ben@x.com", res.Results[0].Email)
	assert.Equal(t, 1, res.Sent)

	last := f.notifier.Calls[len(f.notifier.Calls)-1].Arguments.Get(1).(notify.Invitation)
	assert.Equal(t, notify.KindReminder, last.Kind)
}

func TestTokenStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.sendAll(t)

	st, err := f.svc.TokenStatus(ctx, "sk-semla-unknown")
	require.NoError(t, err)
	assert.Equal(t, TokenStatus{}, *st)

	tok := f.token(t, "1")
	st, err = f.svc.TokenStatus(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, TokenStatus{Valid: true}, *st)

	_, err = f.svc.Submit(ctx, tok, []models.EvaluationInput{goodInput(f.student(t, "2").ID)})
	require.NoError(t, err)
	st, err = f.svc.TokenStatus(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, TokenStatus{Valid: true, Completed: true}, *st)
}
