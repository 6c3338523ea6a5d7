package main

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/stock-forecaster/internal/collector"
	"github.com/OldStager01/stock-forecaster/internal/forecast"
	"github.com/OldStager01/stock-forecaster/internal/lock"
	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/internal/metrics"
	"github.com/OldStager01/stock-forecaster/internal/orchestrator"
	"github.com/OldStager01/stock-forecaster/internal/plots"
	"github.com/OldStager01/stock-forecaster/internal/resilience"
	"github.com/OldStager01/stock-forecaster/pkg/config"
	"github.com/OldStager01/stock-forecaster/pkg/database"
)

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg          *config.Config
	metrics      *metrics.Metrics
	renderer     *plots.Renderer
	orchestrator *orchestrator.Orchestrator
	closers      []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

// newApp connects to the database and builds the pipelines on top of it.
func newApp(cfg *config.Config) (*app, error) {
	db, err := database.New(context.Background(), cfg.Database.ToDBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{cfg: cfg, metrics: metrics.New()}
	a.closers = append(a.closers, db.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if version, err := db.GetVersion(ctx); err == nil {
		logger.WithField("version", version).Info("Database connection established")
	}

	loc := cfg.Forecast.Location()
	var source collector.Collector = collector.NewResilientCollector(collector.ResilientCollectorConfig{
		Collector:     collector.NewPostgresCollector(db, loc),
		MaxFailures:   cfg.Collector.CircuitBreaker.MaxFailures,
		BreakerReset:  cfg.Collector.CircuitBreaker.Timeout,
		Timeout:       cfg.Collector.Timeout,
		RetryAttempts: cfg.Collector.RetryAttempts,
		RetryDelay:    cfg.Collector.RetryDelay,
		OnStateChange: func(name string, from, to resilience.State) {
			a.metrics.SetCircuitBreakerState(name, to)
		},
		OnFailure: func(op string, err error) {
			a.metrics.IncFetchError(op)
		},
	})
	if cfg.Collector.CacheTTL > 0 {
		source = collector.NewCachedCollector(source, cfg.Collector.CacheSize, cfg.Collector.CacheTTL)
	}

	if err := a.build(source); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// build wires the forecasters, artifact writers and the orchestrator around
// source.
func (a *app) build(source collector.Collector) error {
	cfg := a.cfg

	store, err := forecast.NewFileStore(cfg.Forecast.ModelsDir())
	if err != nil {
		return fmt.Errorf("failed to create model store: %w", err)
	}
	reports, err := orchestrator.NewReportWriter(cfg.Forecast.DataDir(), time.Now)
	if err != nil {
		return fmt.Errorf("failed to create report writer: %w", err)
	}
	renderer, err := plots.NewRenderer(cfg.Forecast.PlotsDir(), time.Now)
	if err != nil {
		return fmt.Errorf("failed to create plot renderer: %w", err)
	}
	a.renderer = renderer

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Enabled {
		rl, err := lock.NewRedisLocker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, rl.Close)
		locker = rl
		logger.WithField("addr", cfg.Redis.Addr).Info("Using redis training lock")
	}

	seasonal := forecast.NewSeasonal(forecast.SeasonalConfig{
		Changepoints:          cfg.Forecast.Seasonal.Changepoints,
		ChangepointRange:      cfg.Forecast.Seasonal.ChangepointRange,
		ChangepointPriorScale: cfg.Forecast.Seasonal.ChangepointPriorScale,
		SeasonalityPriorScale: cfg.Forecast.Seasonal.SeasonalityPriorScale,
		IntervalWidth:         cfg.Forecast.Seasonal.IntervalWidth,
	}, store)

	regression := forecast.NewRegression(forecast.RegressionConfig{
		Forest: forecast.ForestConfig{
			Trees:           cfg.Forecast.Regression.Trees,
			MaxDepth:        cfg.Forecast.Regression.MaxDepth,
			MinSamplesSplit: cfg.Forecast.Regression.MinSamplesSplit,
			MinSamplesLeaf:  cfg.Forecast.Regression.MinSamplesLeaf,
			Seed:            cfg.Forecast.Regression.Seed,
		},
		TestFraction: cfg.Forecast.Regression.TestFraction,
	}, store)

	a.orchestrator, err = orchestrator.New(orchestrator.Config{
		TrainDays:           cfg.Forecast.TrainDays,
		HistoryDays:         cfg.Forecast.HistoryDays,
		PatternDays:         cfg.Forecast.PatternDays,
		AverageWindow:       cfg.Forecast.AverageWindow,
		DefaultForecastDays: cfg.Forecast.DefaultForecastDays,
		TopFeatures:         cfg.Forecast.TopFeatures,
		Location:            cfg.Forecast.Location(),
	}, orchestrator.Deps{
		Collector:  source,
		Seasonal:   seasonal,
		Regression: regression,
		Reports:    reports,
		Locker:     locker,
		Plots:      renderer,
		Metrics:    a.metrics,
	})
	return err
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("Failed to release resource: %v", err)
		}
	}
	a.closers = nil
}
