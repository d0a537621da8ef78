// internal/repository/job_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-bridge/internal/database"
	"escpos-bridge/internal/model"
)

const jobColumns = `id, printer_id, source, status, stage, error_kind, error_message,
		error_line, commands, bytes, attempts, metadata, created_at, completed_at`

// jobRepository implements JobRepository on PostgreSQL
type jobRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(db *database.DB, logger *zap.Logger) JobRepository {
	return &jobRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a job record
func (r *jobRepository) Create(ctx context.Context, job *model.PrintJob) error {
	query := `
		INSERT INTO print_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.PrinterID, job.Source, job.Status, job.Stage,
		job.ErrorKind, job.ErrorMessage, job.ErrorLine,
		job.Commands, job.Bytes, job.Attempts, job.Metadata,
		job.CreatedAt, job.CompletedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create job", zap.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by ID
func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	query := `SELECT ` + jobColumns + ` FROM print_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// List retrieves jobs with filtering and pagination
func (r *jobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error) {
	if filter == nil {
		filter = &JobFilter{}
	}
	filter.Normalize()

	whereClause, args := buildWhere(filter)
	argIndex := len(args) + 1

	// Count total records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM print_jobs %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT %s
		FROM print_jobs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, jobColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*model.PrintJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			r.logger.Error("Failed to scan job row", zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, total, rows.Err()
}

// GetJobStats retrieves journal statistics
func (r *jobRepository) GetJobStats(ctx context.Context, filter *JobFilter) (*JobStats, error) {
	if filter == nil {
		filter = &JobFilter{}
	}
	whereClause, args := buildWhere(filter)

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) as total_jobs,
			COUNT(CASE WHEN status = 'PRINTED' THEN 1 END) as printed_jobs,
			COUNT(CASE WHEN status = 'REJECTED' THEN 1 END) as rejected_jobs,
			COUNT(CASE WHEN status = 'FAILED' THEN 1 END) as failed_jobs,
			COALESCE(SUM(bytes), 0) as total_bytes,
			AVG(attempts) as avg_attempts,
			AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) * 1000) as avg_duration_ms
		FROM print_jobs %s
	`, whereClause)

	stats := &JobStats{ByStage: make(map[model.JobStage]int)}

	var avgAttempts, avgDurationMs sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalJobs,
		&stats.PrintedJobs,
		&stats.RejectedJobs,
		&stats.FailedJobs,
		&stats.TotalBytes,
		&avgAttempts,
		&avgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}

	if avgAttempts.Valid {
		stats.AvgAttempts = avgAttempts.Float64
	}
	if avgDurationMs.Valid {
		stats.AvgDuration = time.Duration(avgDurationMs.Float64 * float64(time.Millisecond))
	}

	stageQuery := fmt.Sprintf("SELECT stage, COUNT(*) FROM print_jobs %s GROUP BY stage", whereClause)
	rows, err := r.db.QueryContext(ctx, stageQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage model.JobStage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		stats.ByStage[stage] = count
	}

	return stats, rows.Err()
}

// DeleteOldJobs removes old job records
func (r *jobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM print_jobs WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Deleted old jobs",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("older_than", olderThan),
	)

	return rowsAffected, nil
}

func buildWhere(filter *JobFilter) (string, []interface{}) {
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	add := func(column, op string, value interface{}) {
		whereConditions = append(whereConditions, fmt.Sprintf("%s %s $%d", column, op, argIndex))
		args = append(args, value)
		argIndex++
	}

	if filter.PrinterID != nil {
		add("printer_id", "=", *filter.PrinterID)
	}
	if filter.Status != nil {
		add("status", "=", *filter.Status)
	}
	if filter.Source != nil {
		add("source", "=", *filter.Source)
	}
	if filter.StartDate != nil {
		add("created_at", ">=", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at", "<=", *filter.EndDate)
	}

	if len(whereConditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(whereConditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.PrintJob, error) {
	job := &model.PrintJob{}
	var errorLine sql.NullInt64
	err := row.Scan(
		&job.ID, &job.PrinterID, &job.Source, &job.Status, &job.Stage,
		&job.ErrorKind, &job.ErrorMessage, &errorLine,
		&job.Commands, &job.Bytes, &job.Attempts, &job.Metadata,
		&job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if errorLine.Valid {
		line := int(errorLine.Int64)
		job.ErrorLine = &line
	}
	return job, nil
}
