package job_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itamaramsalem1/hppdauto-web/constants"
	"github.com/itamaramsalem1/hppdauto-web/internal/common"
	"github.com/itamaramsalem1/hppdauto-web/internal/entity"
	"github.com/itamaramsalem1/hppdauto-web/internal/job"
)

func openSQLiteRegistry(t *testing.T) *job.SQLiteRegistry {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	r, err := job.NewSQLiteRegistry(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSQLiteRegistry_RoundTripsAllFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openSQLiteRegistry(t)

	finished := time.Date(2024, time.January, 10, 12, 30, 0, 123456000, time.UTC)
	in := entity.Job{
		ID:            "r1",
		State:         constants.JobStateCompleted,
		Percent:       100,
		StatusMessage: "Report ready",
		TargetDate:    time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		ResultPath:    "/tmp/hppd/HPPD_Comparison_20240110.xlsx",
		Error:         "",
		CreatedAt:     time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC),
		FinishedAt:    &finished,
	}
	require.NoError(t, r.Create(ctx, in))

	got, err := r.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, in.State, got.State)
	assert.Equal(t, in.Percent, got.Percent)
	assert.Equal(t, in.StatusMessage, got.StatusMessage)
	assert.True(t, in.TargetDate.Equal(got.TargetDate))
	assert.Equal(t, in.ResultPath, got.ResultPath)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func TestSQLiteRegistry_NilFinishedAtStaysNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openSQLiteRegistry(t)

	require.NoError(t, r.Create(ctx, pendingJob("p1")))
	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)
}

func TestSQLiteRegistry_UpdatePersistsTerminalState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openSQLiteRegistry(t)

	require.NoError(t, r.Create(ctx, pendingJob("u1")))

	finished := time.Now().UTC()
	j, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	j.State = constants.JobStateFailed
	j.StatusMessage = "Failed"
	j.Error = "no staffing records survived parsing"
	j.FinishedAt = &finished
	require.NoError(t, r.Update(ctx, j))

	got, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStateFailed, got.State)
	assert.Equal(t, "no staffing records survived parsing", got.Error)
	require.NotNil(t, got.FinishedAt)
}

func TestSQLiteRegistry_DuplicateCreate_IsInvalidInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openSQLiteRegistry(t)

	require.NoError(t, r.Create(ctx, pendingJob("d1")))
	require.ErrorIs(t, r.Create(ctx, pendingJob("d1")), common.ErrInvalidInput)
}

func TestSQLiteRegistry_MissingRows_ReturnNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openSQLiteRegistry(t)

	_, err := r.Get(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, r.Update(ctx, pendingJob("ghost")), common.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, "ghost"), common.ErrNotFound)
}

func TestSQLiteRegistry_ListAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := openSQLiteRegistry(t)

	require.NoError(t, r.Create(ctx, pendingJob("a")))
	require.NoError(t, r.Create(ctx, pendingJob("b")))

	jobs, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	require.NoError(t, r.Delete(ctx, "a"))
	jobs, err = r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, "b", jobs[0].ID)
}
