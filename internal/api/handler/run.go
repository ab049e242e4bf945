package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/jobscout/internal/app"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/pipeline"
	"gorm.io/gorm"
)

// RunStore reads the run log.
type RunStore interface {
	ListRecent(ctx context.Context, limit int) ([]domain.RunLog, error)
	GetByID(ctx context.Context, id uint) (*domain.RunLog, error)
}

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context, opts app.RunOptions) (*pipeline.RunState, error)

// RunHandler serves the run log and triggers runs.
type RunHandler struct {
	runs    RunStore
	runFn   RunFunc
	running func() bool

	mu            sync.RWMutex
	isRunning     bool
	lastRunTime   time.Time
	lastRunStatus string
}

// NewRunHandler creates a run handler.
// Parameters:
//   - runs: run log store.
//   - runFn: executes a pipeline run; nil disables POST /runs.
//   - running: reports a run started outside this handler; may be nil.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(runs RunStore, runFn RunFunc, running func() bool) *RunHandler {
	return &RunHandler{runs: runs, runFn: runFn, running: running}
}

// RunRequest is the body of POST /api/v1/runs.
type RunRequest struct {
	Mode    domain.RunMode `json:"mode"`
	DryRun  bool           `json:"dry_run"`
	NoEmail bool           `json:"no_email"`
}

// RunResponse summarizes a finished run.
type RunResponse struct {
	RunID           string   `json:"run_id"`
	RunDate         string   `json:"run_date"`
	Mode            string   `json:"mode"`
	TotalFetched    int      `json:"total_fetched"`
	TotalFiltered   int      `json:"total_filtered"`
	TotalScored     int      `json:"total_scored"`
	TotalMatched    int      `json:"total_matched"`
	TotalNew        int      `json:"total_new"`
	TotalEmailed    int      `json:"total_emailed"`
	Fallback        bool     `json:"fallback"`
	ReportLocations []string `json:"report_locations,omitempty"`
	Errors          []string `json:"errors"`
}

// RunStatusResponse reports whether a run is in progress.
type RunStatusResponse struct {
	IsRunning     bool   `json:"is_running"`
	LastRunTime   string `json:"last_run_time,omitempty"`
	LastRunStatus string `json:"last_run_status,omitempty"`
}

func newRunResponse(st *pipeline.RunState) RunResponse {
	errs := st.Errors
	if errs == nil {
		errs = []string{}
	}
	return RunResponse{
		RunID:           st.RunID,
		RunDate:         st.RunDate,
		Mode:            string(st.Mode),
		TotalFetched:    st.TotalFetched,
		TotalFiltered:   st.TotalFiltered,
		TotalScored:     st.TotalScored,
		TotalMatched:    st.TotalMatched,
		TotalNew:        st.TotalNew,
		TotalEmailed:    st.TotalEmailed,
		Fallback:        st.Fallback,
		ReportLocations: st.ReportLocations,
		Errors:          errs,
	}
}

// ListRuns handles GET /api/v1/runs.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	runs, err := h.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// GetRun handles GET /api/v1/runs/:id.
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// TriggerRun handles POST /api/v1/runs. The run executes synchronously and
// the response carries its summary.
func (h *RunHandler) TriggerRun(c *gin.Context) {
	ctx := c.Request.Context()
	if h.runFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Runs are disabled"})
		return
	}

	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.CtxWarn(ctx, "Invalid run request: client_ip=%s, error=%v", c.ClientIP(), err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Mode == "" {
		req.Mode = domain.RunModeDaily
	}
	if !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be daily or weekly"})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Run request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{"error": "A run is already in progress"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting run: mode=%s, dry_run=%v, no_email=%v", req.Mode, req.DryRun, req.NoEmail)

	// Detach from the request so a client disconnect does not cut the run short.
	runCtx := context.WithoutCancel(ctx)
	st, err := h.runFn(runCtx, app.RunOptions{Mode: req.Mode, DryRun: req.DryRun, NoEmail: req.NoEmail})

	h.mu.Lock()
	h.isRunning = false
	h.lastRunTime = time.Now()
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		// Another process holds the lock; this attempt did not run.
	case err != nil:
		h.lastRunStatus = "failed: " + err.Error()
	default:
		h.lastRunStatus = "success"
	}
	h.mu.Unlock()

	if errors.Is(err, pipeline.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		resp := gin.H{"error": err.Error()}
		if st != nil {
			resp["run"] = newRunResponse(st)
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, newRunResponse(st))
}

// GetRunStatus handles GET /api/v1/status.
func (h *RunHandler) GetRunStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := RunStatusResponse{
		IsRunning:     h.isRunning || (h.running != nil && h.running()),
		LastRunStatus: h.lastRunStatus,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
