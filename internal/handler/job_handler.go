// internal/handler/job_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-bridge/internal/model"
	"escpos-bridge/internal/repository"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/utils"
)

// JobHandler handles print journal requests
type JobHandler struct {
	jobService *service.JobService
	logger     *utils.ServiceLogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService *service.JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     utils.NewServiceLogger(logger, "job-handler"),
	}
}

// ListJobs lists journaled print jobs
// @Summary List print jobs
// @Description Get the print journal, newest first
// @Tags Jobs
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param printer_id query string false "Filter by printer ID"
// @Param status query string false "Filter by status" Enums(PRINTED, REJECTED, FAILED)
// @Param source query string false "Filter by source" Enums(bus, http)
// @Param start_date query string false "Start date filter (RFC3339)"
// @Param end_date query string false "End date filter (RFC3339)"
// @Success 200 {object} utils.APIResponse{data=object{jobs=[]model.PrintJob,pagination=service.PaginationResult}} "Jobs retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /api/v1/jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := &service.JobFilter{
		Page:    1,
		PerPage: 20,
	}

	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if perPage := c.Query("per_page"); perPage != "" {
		if pp, err := strconv.Atoi(perPage); err == nil && pp > 0 && pp <= 100 {
			filter.PerPage = pp
		}
	}

	if printerID := c.Query("printer_id"); printerID != "" {
		filter.PrinterID = &printerID
	}
	if status := c.Query("status"); status != "" {
		s := model.JobStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	if source := c.Query("source"); source != "" {
		s := model.JobSource(strings.ToLower(source))
		filter.Source = &s
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if date, err := time.Parse(time.RFC3339, startDate); err == nil {
			filter.StartDate = &date
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if date, err := time.Parse(time.RFC3339, endDate); err == nil {
			filter.EndDate = &date
		}
	}

	jobs, pagination, err := h.jobService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Jobs retrieved successfully", gin.H{
		"jobs":       jobs,
		"pagination": pagination,
	})
}

// GetJob retrieves a journaled job
// @Summary Get print job
// @Tags Jobs
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} utils.APIResponse{data=model.PrintJob} "Job retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid job ID"
// @Failure 404 {object} utils.APIResponse "Job not found"
// @Router /api/v1/jobs/{job_id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid job ID", err)
		return
	}

	job, err := h.jobService.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Job not found", err)
			return
		}
		h.logger.Error("Failed to get job", zap.String("job_id", id.String()), zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get job", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Job retrieved successfully", job)
}

// GetStats aggregates the journal
// @Summary Get job statistics
// @Tags Jobs
// @Produce json
// @Param printer_id query string false "Limit to one printer"
// @Success 200 {object} utils.APIResponse{data=repository.JobStats} "Job statistics retrieved"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /api/v1/jobs/stats [get]
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.jobService.GetStats(c.Request.Context(), c.Query("printer_id"))
	if err != nil {
		h.logger.Error("Failed to get job stats", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get job statistics", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Job statistics retrieved", stats)
}
