package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/envup/internal/log"
	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/storage/sqlite"
)

func runFixture(id string, createdAt time.Time) model.Run {
	return model.Run{
		ID:        id,
		PlanName:  "test-plan",
		Status:    model.RunStatusRunning,
		CreatedAt: createdAt,
		StartedAt: createdAt,
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryRunCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	now := time.Now().Truncate(time.Second).UTC()
	run := runFixture("run-1", now)
	require.NoError(t, repo.CreateRun(ctx, run))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "test-plan", got.PlanName)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, now, got.CreatedAt)
	assert.Nil(t, got.FinishedAt)

	finishedAt := now.Add(time.Minute)
	run.Status = model.RunStatusCompleted
	run.FinishedAt = &finishedAt
	require.NoError(t, repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, finishedAt, *got.FinishedAt)
}

func TestRepositoryRunNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.GetLatestRun(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = repo.UpdateRun(ctx, runFixture("missing", time.Now().UTC()))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryListRuns(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	now := time.Now().Truncate(time.Second).UTC()
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-1", now.Add(-2*time.Hour))))
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-2", now.Add(-time.Hour))))
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-3", now)))

	runs, err := repo.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, "run-1", runs[2].ID)

	latest, err := repo.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-3", latest.ID)
}

func TestRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath, Logger: log.Noop})
	require.NoError(t, err)
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-1", time.Now().Truncate(time.Second).UTC())))
	require.NoError(t, repo.Close())

	// Reopening runs the migrations again as a no-op and keeps the data.
	repo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath, Logger: log.Noop})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "test-plan", got.PlanName)
}
