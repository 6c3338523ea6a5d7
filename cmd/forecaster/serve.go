package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/OldStager01/stock-forecaster/api"
	"github.com/OldStager01/stock-forecaster/api/handlers"
	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/internal/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	if cfg.App.Mode == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Scheduler.RetrainCron != "" {
		scheduler, err := orchestrator.NewScheduler(a.orchestrator, cfg.Scheduler.RetrainCron, cfg.Forecast.TrainDays, cfg.Scheduler.RetrainTimeout)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := api.NewServer(cfg.API, cfg.Prometheus, api.Deps{
		Service: a.orchestrator,
		Plots:   a.renderer,
		Health:  map[string]handlers.HealthChecker{"database": a.orchestrator},
		Metrics: a.metrics,
	})

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on %s", cfg.API.Addr())
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
