// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"escpos-bridge/internal/model"
)

// ErrJobNotFound is returned when a job id is not in the journal
var ErrJobNotFound = errors.New("job not found")

// JobRepository defines job journal access operations
type JobRepository interface {
	Create(ctx context.Context, job *model.PrintJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error)

	// Listing and filtering, newest first
	List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error)

	// Analytics
	GetJobStats(ctx context.Context, filter *JobFilter) (*JobStats, error)

	// Cleanup
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

// JobFilter represents job listing filters
type JobFilter struct {
	PrinterID *string          `json:"printer_id,omitempty"`
	Status    *model.JobStatus `json:"status,omitempty"`
	Source    *model.JobSource `json:"source,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	Page      int              `json:"page"`
	PerPage   int              `json:"per_page"`
}

// Normalize fills in paging defaults
func (f *JobFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	if f.PerPage > 500 {
		f.PerPage = 500
	}
}

func (f *JobFilter) matches(job *model.PrintJob) bool {
	if f == nil {
		return true
	}
	if f.PrinterID != nil && job.PrinterID != *f.PrinterID {
		return false
	}
	if f.Status != nil && job.Status != *f.Status {
		return false
	}
	if f.Source != nil && job.Source != *f.Source {
		return false
	}
	if f.StartDate != nil && job.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && job.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}

// JobStats represents journal statistics
type JobStats struct {
	TotalJobs    int                    `json:"total_jobs"`
	PrintedJobs  int                    `json:"printed_jobs"`
	RejectedJobs int                    `json:"rejected_jobs"`
	FailedJobs   int                    `json:"failed_jobs"`
	TotalBytes   int64                  `json:"total_bytes"`
	AvgAttempts  float64                `json:"average_attempts"`
	AvgDuration  time.Duration          `json:"average_duration"`
	ByStage      map[model.JobStage]int `json:"by_stage"`
}
