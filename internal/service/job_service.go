// internal/service/job_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/repository"
	"escpos-bridge/internal/utils"
)

// JobService reads the job journal
type JobService struct {
	jobRepo repository.JobRepository
	logger  *utils.ServiceLogger
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

// PaginationResult represents pagination information
type PaginationResult struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// NewJobService creates a new job service
func NewJobService(jobRepo repository.JobRepository, logger *zap.Logger) *JobService {
	return &JobService{
		jobRepo: jobRepo,
		logger:  utils.NewServiceLogger(logger, "job-service"),
	}
}

// GetJob retrieves job details
func (js *JobService) GetJob(ctx context.Context, jobID uuid.UUID) (*model.PrintJob, error) {
	job, err := js.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job lookup failed: %w", err)
	}
	return job, nil
}

// ListJobs lists jobs with filtering, newest first
func (js *JobService) ListJobs(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, *PaginationResult, error) {
	repoFilter := filter.toRepoFilter()
	repoFilter.Normalize()

	jobs, total, err := js.jobRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	pagination := &PaginationResult{
		Total:      total,
		Page:       repoFilter.Page,
		PerPage:    repoFilter.PerPage,
		TotalPages: (total + repoFilter.PerPage - 1) / repoFilter.PerPage,
	}

	return jobs, pagination, nil
}

// GetStats aggregates the journal
func (js *JobService) GetStats(ctx context.Context, printerID string) (*repository.JobStats, error) {
	filter := &repository.JobFilter{}
	if printerID != "" {
		filter.PrinterID = &printerID
	}

	stats, err := js.jobRepo.GetJobStats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	return stats, nil
}

// Prune deletes jobs older than retention
func (js *JobService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := js.jobRepo.DeleteOldJobs(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", err)
	}
	return removed, nil
}

// toRepoFilter converts to repository filter
func (jf *JobFilter) toRepoFilter() *repository.JobFilter {
	if jf == nil {
		return &repository.JobFilter{}
	}
	return &repository.JobFilter{
		PrinterID: jf.PrinterID,
		Status:    jf.Status,
		Source:    jf.Source,
		StartDate: jf.StartDate,
		EndDate:   jf.EndDate,
		Page:      jf.Page,
		PerPage:   jf.PerPage,
	}
}
