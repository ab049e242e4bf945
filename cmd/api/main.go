package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/jobscout/internal/api"
	"github.com/timmy/jobscout/internal/app"
	"github.com/timmy/jobscout/internal/config"
	"github.com/timmy/jobscout/internal/logger"
)

func main() {
	envCfg := logger.LoadFromEnv()
	envCfg.ServiceName = "jobscout-api"
	log := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx := logger.SetComponent(context.Background(), "api")
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	sqlDB, err := a.DB.DB()
	if err != nil {
		log.WithError(err).Fatal("Failed to get database handle")
	}

	router := api.SetupRouter(api.Deps{
		DB:      sqlDB,
		Jobs:    a.Jobs,
		Runs:    a.Runs,
		Reports: a.Archive,
		RunFn:   a.Run,
		Running: a.Orchestrator.Running,
	}, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// A triggered run is synchronous, so allow it time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}
