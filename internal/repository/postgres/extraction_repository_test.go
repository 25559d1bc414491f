package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/domain"
	"github.com/medextract/medextract/api/internal/pkg/database"
	apperrors "github.com/medextract/medextract/api/internal/pkg/errors"
	"github.com/medextract/medextract/api/internal/testutil"
)

// getTestDB returns a database connection for integration tests.
// Returns nil if the database is not available (skips tests).
func getTestDB(t *testing.T) *database.PostgresDB {
	if os.Getenv("POSTGRES_TEST_HOST") == "" {
		t.Skip("Skipping integration test: POSTGRES_TEST_HOST not set")
		return nil
	}

	cfg := config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_TEST_HOST"),
		Port:     5432,
		User:     os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASS"),
		Database: os.Getenv("POSTGRES_TEST_DB"),
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	if cfg.Database == "" {
		cfg.Database = "test_medextract"
	}
	if cfg.User == "" {
		cfg.User = "postgres"
	}

	db, err := database.NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to PostgreSQL: %v", err)
		return nil
	}

	ensureSchema(t, db)
	return db
}

func ensureSchema(t *testing.T, db *database.PostgresDB) {
	_, err := db.Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS extraction_runs (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			note_text TEXT NOT NULL,
			structured_note JSONB,
			trajectory JSONB,
			warnings JSONB,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)
	`)
	require.NoError(t, err)
}

func cleanupRuns(t *testing.T, db *database.PostgresDB, ids ...uuid.UUID) {
	ctx := context.Background()
	for _, id := range ids {
		_, _ = db.Pool.Exec(ctx, "DELETE FROM extraction_runs WHERE id = $1", id)
	}
}

func newTestRun() *domain.ExtractionRun {
	return &domain.ExtractionRun{
		ID:        uuid.New(),
		Status:    domain.RunStatusRunning,
		NoteText:  testutil.SampleNoteText,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestExtractionRepository_CreateAndGet(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewExtractionRepository(db)
	ctx := context.Background()

	run := newTestRun()
	defer cleanupRuns(t, db, run.ID)

	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, domain.RunStatusRunning, got.Status)
	assert.Equal(t, run.NoteText, got.NoteText)
	assert.Nil(t, got.Note)
	assert.Nil(t, got.CompletedAt)
}

func TestExtractionRepository_Update(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewExtractionRepository(db)
	ctx := context.Background()

	run := newTestRun()
	defer cleanupRuns(t, db, run.ID)
	require.NoError(t, repo.Create(ctx, run))

	completed := time.Now().UTC().Truncate(time.Microsecond)
	run.Status = domain.RunStatusSucceeded
	run.Note = testutil.SampleStructuredNote()
	run.Warnings = []string{"Patient identification is incomplete"}
	run.Trajectory = map[string]any{"agent_name": "ClinicalExtractionAgent"}
	run.CompletedAt = &completed

	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.Note)
	assert.Equal(t, "I10", got.Note.Conditions[0].Code.Code)
	assert.Equal(t, run.Warnings, got.Warnings)
	assert.Equal(t, "ClinicalExtractionAgent", got.Trajectory["agent_name"])
	require.NotNil(t, got.CompletedAt)
}

func TestExtractionRepository_UpdateMissing(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewExtractionRepository(db)

	run := newTestRun()
	err := repo.Update(context.Background(), run)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExtractionRepository_GetMissing(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewExtractionRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExtractionRepository_List(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewExtractionRepository(db)
	ctx := context.Background()

	older := newTestRun()
	older.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	newer := newTestRun()
	defer cleanupRuns(t, db, older.ID, newer.ID)

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	runs, err := repo.List(ctx, 100, 0)
	require.NoError(t, err)

	// Newest first.
	var newerIdx, olderIdx = -1, -1
	for i, r := range runs {
		switch r.ID {
		case newer.ID:
			newerIdx = i
		case older.ID:
			olderIdx = i
		}
	}
	require.NotEqual(t, -1, newerIdx)
	require.NotEqual(t, -1, olderIdx)
	assert.Less(t, newerIdx, olderIdx)
}

func TestExtractionRepository_Delete(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewExtractionRepository(db)
	ctx := context.Background()

	run := newTestRun()
	require.NoError(t, repo.Create(ctx, run))
	require.NoError(t, repo.Delete(ctx, run.ID))

	_, err := repo.GetByID(ctx, run.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = repo.Delete(ctx, run.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
