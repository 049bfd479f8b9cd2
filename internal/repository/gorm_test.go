package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	repos, err := Open(&config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "runs.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos
}

func TestGormRunRepository_CreateGet(t *testing.T) {
	repo := setupTestRepos(t).Runs
	ctx := context.Background()

	run := model.NewRun("run-1", "app.wasm")
	run.Format = "wasm"
	require.NoError(t, repo.Create(ctx, run))
	assert.NotZero(t, run.ID)

	got, err := repo.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "app.wasm", got.Source)
	assert.Equal(t, model.RunStatusPending, got.Status)

	_, err = repo.GetByRunID(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestGormRunRepository_CreateDuplicate(t *testing.T) {
	repo := setupTestRepos(t).Runs
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, model.NewRun("dup", "a")))
	err := repo.Create(ctx, model.NewRun("dup", "b"))
	require.Error(t, err)
	assert.True(t, errors.IsDatabaseError(err))
}

func TestGormRunRepository_Update(t *testing.T) {
	repo := setupTestRepos(t).Runs
	ctx := context.Background()

	run := model.NewRun("run-2", "lib.wasm")
	require.NoError(t, repo.Create(ctx, run))

	begin := time.Now().Add(-time.Second).UTC().Truncate(time.Millisecond)
	end := begin.Add(250 * time.Millisecond)
	run.Status = model.RunStatusCompleted
	run.BeginTime = &begin
	run.EndTime = &end
	run.ReportKey = "reports/run-2.json"
	run.ApplySummary(&model.Summary{ItemCount: 10, AliveCount: 7, GarbageCount: 3, TotalSize: 100, GarbageSize: 30, SharedSize: 4})
	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.GetByRunID(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, 10, got.ItemCount)
	assert.Equal(t, uint64(30), got.GarbageSize)
	assert.Equal(t, uint64(4), got.SharedSize)
	assert.Equal(t, "reports/run-2.json", got.ReportKey)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 250*time.Millisecond, got.Duration())

	err = repo.Update(ctx, model.NewRun("ghost", "x"))
	assert.True(t, errors.IsNotFound(err))
}

func TestGormRunRepository_List(t *testing.T) {
	repo := setupTestRepos(t).Runs
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, source := range []string{"a.wasm", "b.wasm", "a.wasm"} {
		run := model.NewRun(string(rune('x'+i)), source)
		run.CreateTime = base.Add(time.Duration(i) * time.Minute)
		if i == 1 {
			run.Status = model.RunStatusFailed
		}
		require.NoError(t, repo.Create(ctx, run))
	}

	runs, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"z", "y", "x"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})

	runs, err = repo.List(ctx, ListFilter{Source: "a.wasm", Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "z", runs[0].RunID)

	failed := model.RunStatusFailed
	runs, err = repo.List(ctx, ListFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "y", runs[0].RunID)

	runs, err = repo.List(ctx, ListFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "x", runs[0].RunID)
}

func TestGormRunRepository_DeleteBefore(t *testing.T) {
	repo := setupTestRepos(t).Runs
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := model.NewRun(string(rune('a'+i)), "m.wasm")
		run.CreateTime = base.AddDate(0, 0, i)
		require.NoError(t, repo.Create(ctx, run))
	}

	n, err := repo.DeleteBefore(ctx, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "c", runs[0].RunID)
}

func TestRepositories_HealthCheck(t *testing.T) {
	repos := setupTestRepos(t)
	assert.NoError(t, repos.HealthCheck(context.Background()))
	assert.NotNil(t, repos.GormDB())
}
