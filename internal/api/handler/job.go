package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/repository"
	"gorm.io/gorm"
)

// JobStore reads persisted postings.
type JobStore interface {
	List(ctx context.Context, filter repository.JobFilter) ([]domain.Job, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}

// JobHandler handles job-related endpoints.
type JobHandler struct {
	jobs JobStore
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobs: persisted postings.
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs JobStore) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListJobs handles GET /api/v1/jobs.
// Query: limit (default 20, max 200), offset, match=true, run_date=YYYY-MM-DD.
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	matchOnly, _ := strconv.ParseBool(c.DefaultQuery("match", "false"))

	jobs, err := h.jobs.List(c.Request.Context(), repository.JobFilter{
		MatchOnly: matchOnly,
		RunDate:   c.Query("run_date"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"total":  len(jobs),
		"limit":  limit,
		"offset": offset,
	})
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}
