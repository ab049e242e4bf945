package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/jobscout/internal/api/handler"
	"github.com/timmy/jobscout/internal/api/middleware"
	"github.com/timmy/jobscout/internal/config"
)

// Deps are the stores and actions the routes serve.
type Deps struct {
	DB      handler.Pinger
	Jobs    handler.JobStore
	Runs    handler.RunStore
	Reports handler.ReportStore
	RunFn   handler.RunFunc
	Running func() bool
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(deps.DB)
	jobHandler := handler.NewJobHandler(deps.Jobs)
	runHandler := handler.NewRunHandler(deps.Runs, deps.RunFn, deps.Running)
	reportHandler := handler.NewReportHandler(deps.Reports)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs", jobHandler.ListJobs)
		v1.GET("/jobs/:id", jobHandler.GetJob)

		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/runs/:id", runHandler.GetRun)
		v1.POST("/runs", runHandler.TriggerRun)

		v1.GET("/reports/:date", reportHandler.GetReport)

		v1.GET("/status", runHandler.GetRunStatus)
	}

	return r
}
