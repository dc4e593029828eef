package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/envup/internal/model"
	"github.com/slok/envup/internal/storage/memory"
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

func newRepo(t *testing.T) *memory.Repository {
	t.Helper()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	return repo
}

func TestRepositoryRunCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	now := time.Now().UTC()
	run := runFixture("run-1", now)
	require.NoError(t, repo.CreateRun(ctx, run))

	// Duplicated IDs are rejected.
	err := repo.CreateRun(ctx, run)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "test-plan", got.PlanName)

	finishedAt := now.Add(time.Minute)
	run.Status = model.RunStatusCompleted
	run.FinishedAt = &finishedAt
	require.NoError(t, repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
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

	_, err = repo.ListTaskRecords(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryListRuns(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-1", now.Add(-2*time.Hour))))
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-2", now.Add(-time.Hour))))
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-3", now)))

	runs, err := repo.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-1", runs[2].ID)

	latest, err := repo.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-3", latest.ID)
}

func TestRepositoryTaskRecords(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	now := time.Now().UTC()
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-1", now)))

	records := []model.TaskRecord{
		{ID: "rec-2", RunID: "run-1", Phase: "setup", Sequence: 1, Name: "b", Status: model.TaskStatusFailed, ExitCode: 2},
		{ID: "rec-1", RunID: "run-1", Phase: "setup", Sequence: 0, Name: "a", Status: model.TaskStatusSucceeded},
	}
	require.NoError(t, repo.CreateTaskRecords(ctx, records))

	got, err := repo.ListTaskRecords(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)

	// Records for an unknown run are rejected.
	err = repo.CreateTaskRecords(ctx, []model.TaskRecord{{ID: "rec-3", RunID: "missing", Name: "x"}})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
