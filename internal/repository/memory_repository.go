// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-bridge/internal/model"
)

// DefaultJournalCapacity bounds the in-memory journal when none is configured
const DefaultJournalCapacity = 500

// memoryJobRepository keeps the most recent jobs in a ring buffer. The
// oldest job is overwritten once the buffer is full.
type memoryJobRepository struct {
	jobs   []*model.PrintJob
	next   int
	size   int
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewMemoryJobRepository creates a journal holding at most capacity jobs
func NewMemoryJobRepository(capacity int, logger *zap.Logger) JobRepository {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &memoryJobRepository{
		jobs:   make([]*model.PrintJob, capacity),
		logger: logger,
	}
}

// Create appends a job, evicting the oldest when full
func (r *memoryJobRepository) Create(ctx context.Context, job *model.PrintJob) error {
	if job.ID == uuid.Nil {
		return fmt.Errorf("failed to create job: missing id")
	}

	stored := *job
	r.mu.Lock()
	r.jobs[r.next] = &stored
	r.next = (r.next + 1) % len(r.jobs)
	if r.size < len(r.jobs) {
		r.size++
	}
	r.mu.Unlock()
	return nil
}

// GetByID retrieves a job by ID
func (r *memoryJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.newest() {
		if job.ID == id {
			out := *job
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// List retrieves jobs with filtering and pagination
func (r *memoryJobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error) {
	if filter == nil {
		filter = &JobFilter{}
	}
	filter.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*model.PrintJob
	for _, job := range r.newest() {
		if filter.matches(job) {
			matched = append(matched, job)
		}
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.PerPage
	if start >= total {
		return []*model.PrintJob{}, total, nil
	}
	end := min(start+filter.PerPage, total)

	jobs := make([]*model.PrintJob, 0, end-start)
	for _, job := range matched[start:end] {
		out := *job
		jobs = append(jobs, &out)
	}
	return jobs, total, nil
}

// GetJobStats aggregates the jobs matching the filter
func (r *memoryJobRepository) GetJobStats(ctx context.Context, filter *JobFilter) (*JobStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &JobStats{ByStage: make(map[model.JobStage]int)}
	var attempts int
	var duration time.Duration

	for _, job := range r.newest() {
		if !filter.matches(job) {
			continue
		}
		stats.TotalJobs++
		switch job.Status {
		case model.JobStatusPrinted:
			stats.PrintedJobs++
		case model.JobStatusRejected:
			stats.RejectedJobs++
		case model.JobStatusFailed:
			stats.FailedJobs++
		}
		stats.ByStage[job.Stage]++
		stats.TotalBytes += int64(job.Bytes)
		attempts += job.Attempts
		duration += job.Duration()
	}

	if stats.TotalJobs > 0 {
		stats.AvgAttempts = float64(attempts) / float64(stats.TotalJobs)
		stats.AvgDuration = duration / time.Duration(stats.TotalJobs)
	}
	return stats, nil
}

// DeleteOldJobs removes jobs created before olderThan
func (r *memoryJobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*model.PrintJob, 0, r.size)
	jobs := r.newest()
	for i := len(jobs) - 1; i >= 0; i-- {
		if !jobs[i].CreatedAt.Before(olderThan) {
			kept = append(kept, jobs[i])
		}
	}
	removed := int64(r.size - len(kept))

	clear(r.jobs)
	copy(r.jobs, kept)
	r.size = len(kept)
	r.next = r.size % len(r.jobs)

	if removed > 0 {
		r.logger.Info("Deleted old jobs",
			zap.Int64("rows_deleted", removed),
			zap.Time("older_than", olderThan),
		)
	}
	return removed, nil
}

// newest returns the stored jobs, most recent first. Callers hold r.mu.
func (r *memoryJobRepository) newest() []*model.PrintJob {
	out := make([]*model.PrintJob, 0, r.size)
	for i := 1; i <= r.size; i++ {
		idx := (r.next - i + len(r.jobs)) % len(r.jobs)
		out = append(out, r.jobs[idx])
	}
	return out
}
