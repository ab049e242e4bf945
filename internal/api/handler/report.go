package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/jobscout/internal/report"
)

// ReportStore loads archived reports.
type ReportStore interface {
	Load(ctx context.Context, runDate, format string) ([]byte, string, error)
}

// ReportHandler serves archived reports.
type ReportHandler struct {
	reports ReportStore
}

// NewReportHandler creates a report handler.
func NewReportHandler(reports ReportStore) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GetReport handles GET /api/v1/reports/:date?format=md|html.
func (h *ReportHandler) GetReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reports are disabled"})
		return
	}

	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	format := c.DefaultQuery("format", "html")
	if format != "html" && format != "md" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be html or md"})
		return
	}

	body, contentType, err := h.reports.Load(c.Request.Context(), date, format)
	if errors.Is(err, report.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, contentType, body)
}
