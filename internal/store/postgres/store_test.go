package postgres

import (
	"context"
	"flag"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/store"
	"github.com/shrimpsizemoose/semla/migrations"
)

// setupTestDB starts a throwaway Postgres container and applies the embedded migrations
func setupTestDB(t *testing.T) *PostgresStore {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := NewPostgresStore(dsn, migrations.FS)
	require.NoError(t, err, "Failed to create store")

	t.Cleanup(func() {
		s.Close()
		container.Terminate(ctx)
	})

	return s
}

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() || os.Getenv("SEMLA_PG_TESTS") != "1" {
		log.Println("Skipping Postgres integration tests. Set SEMLA_PG_TESTS=1 to run them.")
		os.Exit(0)
	}
	log.Println("Starting Postgres store tests...")
	code := m.Run()
	log.Println("Finished Postgres store tests")
	os.Exit(code)
}

func TestSubmissionGuards(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Unix()

	course := &models.Course{
		ID:          uuid.NewString(),
		ProfessorID: "prof-1",
		Name:        "Databases",
		Number:      "CS340",
		Semester:    "Fall 2024",
		Status:      models.StatusActive,
		CreatedAt:   now,
	}
	require.NoError(t, s.CreateCourse(ctx, course))

	newStudent := func(id, name string) *models.Student {
		st := &models.Student{ID: uuid.NewString(), CourseID: course.ID, StudentID: id, Name: name, Email: id + "@uni.edu", CreatedAt: now}
		require.NoError(t, s.CreateStudent(ctx, st))
		return st
	}
	alice := newStudent("s1", "Alice")
	bob := newStudent("s2", "Bob")

	t.Run("duplicate student", func(t *testing.T) {
		err := s.CreateStudent(ctx, &models.Student{ID: uuid.NewString(), CourseID: course.ID, StudentID: "s1", Name: "A", Email: "a@uni.edu", CreatedAt: now})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("token unique", func(t *testing.T) {
		set, err := s.SetEvaluationToken(ctx, alice.ID, "tok-a")
		require.NoError(t, err)
		assert.True(t, set)

		_, err = s.SetEvaluationToken(ctx, bob.ID, "tok-a")
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("submit once", func(t *testing.T) {
		eval := models.Evaluation{
			ID:              uuid.NewString(),
			CourseID:        course.ID,
			StudentID:       bob.ID,
			EvaluatorID:     alice.ID,
			Ratings:         models.Ratings{Professionalism: 5, Communication: 4, WorkEthic: 4, ContentKnowledgeSkills: 4, OverallContribution: 4, Participation: 3},
			OverallFeedback: "reliable and on time",
			EvaluationToken: "tok-a",
			SubmittedAt:     now,
		}
		require.NoError(t, s.SubmitEvaluations(ctx, alice.ID, []models.Evaluation{eval}))

		eval.ID = uuid.NewString()
		err := s.SubmitEvaluations(ctx, alice.ID, []models.Evaluation{eval})
		assert.ErrorIs(t, err, store.ErrAlreadySubmitted)

		got, err := s.GetStudent(ctx, course.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, got.EvaluationCompleted)
	})

	t.Run("counts", func(t *testing.T) {
		counts, err := s.RefreshCounts(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CourseCounts{Students: 2, Teams: 0}, counts)
	})
}

func TestSubmitConcurrentDisjointBatches(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Unix()

	course := &models.Course{ID: uuid.NewString(), ProfessorID: "prof-1", Name: "Networks", Number: "CS360", Semester: "Fall 2024", Status: models.StatusActive, CreatedAt: now}
	require.NoError(t, s.CreateCourse(ctx, course))

	ids := make([]string, 0, 3)
	for _, id := range []string{"s1", "s2", "s3"} {
		st := &models.Student{ID: uuid.NewString(), CourseID: course.ID, StudentID: id, Name: id, Email: id + "@uni.edu", CreatedAt: now}
		require.NoError(t, s.CreateStudent(ctx, st))
		ids = append(ids, st.ID)
	}
	evaluator := ids[0]

	batch := func(rateeID string) []models.Evaluation {
		return []models.Evaluation{{
			ID:              uuid.NewString(),
			CourseID:        course.ID,
			StudentID:       rateeID,
			EvaluatorID:     evaluator,
			Ratings:         models.Ratings{Professionalism: 4, Communication: 4, WorkEthic: 4, ContentKnowledgeSkills: 4, OverallContribution: 4, Participation: 3},
			OverallFeedback: "steady contributor",
			EvaluationToken: "tok-race",
			SubmittedAt:     now,
		}}
	}

	// each goroutine rates a different teammate, so the unique index alone cannot catch the race
	batches := [][]models.Evaluation{batch(ids[1]), batch(ids[2])}
	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.SubmitEvaluations(ctx, evaluator, batches[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrAlreadySubmitted)
	}
	assert.Equal(t, 1, succeeded)

	stats, err := s.ListSubmissionStats(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Submitted)
}
