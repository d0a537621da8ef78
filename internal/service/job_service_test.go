package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/repository"
)

func seedJobs(t *testing.T, repo repository.JobRepository, n int, printerID string, status model.JobStatus, age time.Duration) {
	created := time.Now().Add(-age)
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Create(context.Background(), &model.PrintJob{
			ID:          uuid.New(),
			PrinterID:   printerID,
			Source:      model.SourceBus,
			Status:      status,
			Stage:       model.StageDeliver,
			Attempts:    1,
			CreatedAt:   created,
			CompletedAt: created.Add(10 * time.Millisecond),
		}))
	}
}

func TestJobService_ListJobs(t *testing.T) {
	logger := zaptest.NewLogger(t)
	repo := repository.NewMemoryJobRepository(100, logger)
	seedJobs(t, repo, 7, "kitchen", model.JobStatusPrinted, time.Minute)
	seedJobs(t, repo, 2, "bar", model.JobStatusFailed, time.Minute)
	js := NewJobService(repo, logger)

	printer := "kitchen"
	jobs, page, err := js.ListJobs(context.Background(), &JobFilter{PrinterID: &printer, Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	assert.Equal(t, &PaginationResult{Total: 7, Page: 2, PerPage: 3, TotalPages: 3}, page)

	jobs, page, err = js.ListJobs(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, jobs, 9)
	assert.Equal(t, 1, page.TotalPages)

	got, err := js.GetJob(context.Background(), jobs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, jobs[0].ID, got.ID)

	_, err = js.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}

func TestJobService_StatsAndPrune(t *testing.T) {
	logger := zaptest.NewLogger(t)
	repo := repository.NewMemoryJobRepository(100, logger)
	seedJobs(t, repo, 3, "kitchen", model.JobStatusPrinted, 48*time.Hour)
	seedJobs(t, repo, 2, "kitchen", model.JobStatusFailed, time.Minute)
	seedJobs(t, repo, 1, "bar", model.JobStatusPrinted, time.Minute)
	js := NewJobService(repo, logger)

	stats, err := js.GetStats(context.Background(), "kitchen")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalJobs)
	assert.Equal(t, 3, stats.PrintedJobs)
	assert.Equal(t, 2, stats.FailedJobs)

	removed, err := js.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	stats, err = js.GetStats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalJobs)
}
