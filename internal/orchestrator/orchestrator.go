// Package orchestrator runs the training, prediction and pattern analysis
// pipelines on top of the collector and the forecasters.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OldStager01/stock-forecaster/internal/analyzer"
	"github.com/OldStager01/stock-forecaster/internal/collector"
	"github.com/OldStager01/stock-forecaster/internal/forecast"
	"github.com/OldStager01/stock-forecaster/internal/lock"
	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/internal/metrics"
	"github.com/OldStager01/stock-forecaster/internal/plots"
	"github.com/OldStager01/stock-forecaster/internal/usage"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

const (
	MaxTrainDays    = 3650
	MaxForecastDays = 365

	msgNoTrainingData = "No stock history data available for training"
	msgTooFewDays     = "Insufficient stock history data available for training"
	msgInsufficient   = "Insufficient data available for prediction"
	msgNoPatternData  = "No stock history data available for pattern analysis"
)

// SeasonalModel is a forecaster that can decompose its forecast.
type SeasonalModel interface {
	forecast.Forecaster
	Components(forecast []models.ForecastPoint) ([]models.ComponentPoint, error)
	History() ([]models.SeriesPoint, error)
}

// RegressionModel is a forecaster that ranks its input features.
type RegressionModel interface {
	forecast.Forecaster
	FeatureImportance(top int) ([]models.FeatureImportance, error)
}

type Config struct {
	TrainDays           int
	HistoryDays         int
	PatternDays         int
	AverageWindow       int
	DefaultForecastDays int
	TopFeatures         int
	Location            *time.Location
	Now                 func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TrainDays <= 0 {
		c.TrainDays = 90
	}
	if c.HistoryDays <= 0 {
		c.HistoryDays = 90
	}
	if c.PatternDays <= 0 {
		c.PatternDays = 180
	}
	if c.AverageWindow <= 0 {
		c.AverageWindow = 30
	}
	if c.DefaultForecastDays <= 0 {
		c.DefaultForecastDays = 30
	}
	if c.TopFeatures <= 0 {
		c.TopFeatures = 20
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Deps are the collaborators of an Orchestrator. Locker defaults to an
// in-process locker; Plots and Metrics are optional.
type Deps struct {
	Collector  collector.Collector
	Seasonal   SeasonalModel
	Regression RegressionModel
	Reports    *ReportWriter
	Locker     lock.Locker
	Plots      *plots.Renderer
	Metrics    *metrics.Metrics
}

type Orchestrator struct {
	config     Config
	collector  collector.Collector
	aggregator *usage.Aggregator
	patterns   *analyzer.PatternAnalyzer
	seasonal   SeasonalModel
	regression RegressionModel
	reports    *ReportWriter
	locker     lock.Locker
	plots      *plots.Renderer
	metrics    *metrics.Metrics
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Collector == nil || deps.Seasonal == nil || deps.Regression == nil || deps.Reports == nil {
		return nil, errors.New("orchestrator requires a collector, both forecasters and a report writer")
	}
	cfg = cfg.withDefaults()
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}

	return &Orchestrator{
		config:     cfg,
		collector:  deps.Collector,
		aggregator: usage.NewAggregator(cfg.Location),
		patterns:   analyzer.NewPatternAnalyzer(cfg.Location),
		seasonal:   deps.Seasonal,
		regression: deps.Regression,
		reports:    deps.Reports,
		locker:     deps.Locker,
		plots:      deps.Plots,
		metrics:    deps.Metrics,
	}, nil
}

// TrainModels fits both forecasters on the last days days of history.
// days == 0 selects the configured default.
func (o *Orchestrator) TrainModels(ctx context.Context, days int) (*models.TrainingReport, error) {
	if days == 0 {
		days = o.config.TrainDays
	}
	if days < 0 || days > MaxTrainDays {
		return nil, fmt.Errorf("%w: training days must be between 1 and %d", models.ErrInvalidParameter, MaxTrainDays)
	}

	runID := models.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	logger.InfoCtxf(ctx, "Training models on %d days of history", days)

	events, err := o.collector.StockHistory(ctx, days)
	if err != nil {
		o.metrics.IncReport("training", "error")
		return nil, err
	}

	report, err := o.trainOn(ctx, events)
	if err != nil {
		o.metrics.IncReport("training", "error")
		return nil, err
	}
	report.RunID = runID
	if report.Success {
		o.metrics.IncReport("training", "success")
	} else {
		o.metrics.IncReport("training", "no_data")
	}
	return report, nil
}

func (o *Orchestrator) trainOn(ctx context.Context, events []models.StockEvent) (*models.TrainingReport, error) {
	points, err := o.aggregator.Aggregate(events)
	if errors.Is(err, models.ErrEmptyInput) {
		logger.WarnCtxf(ctx, "Training skipped: %v", err)
		return &models.TrainingReport{Success: false, Error: msgNoTrainingData}, nil
	}
	if err != nil {
		return nil, err
	}

	series := usage.ToSeries(points)
	results, err := o.trainAll(ctx, series)
	if errors.Is(err, models.ErrEmptyInput) {
		logger.WarnCtxf(ctx, "Training skipped on %d points: %v", len(series), err)
		return &models.TrainingReport{Success: false, Error: msgTooFewDays}, nil
	}
	if err != nil {
		return nil, err
	}

	report := &models.TrainingReport{
		Success:       true,
		ModelsTrained: []string{o.seasonal.Name(), o.regression.Name()},
		DataPoints:    len(series),
		DateRange: &models.DateRange{
			Start: series[0].Date,
			End:   series[len(series)-1].Date,
		},
		RegressionMetrics: results[1].Metrics,
	}

	logger.InfoCtxf(ctx, "Trained %v on %d points (%s to %s)",
		report.ModelsTrained, report.DataPoints, report.DateRange.Start, report.DateRange.End)
	return report, nil
}

// trainAll trains the seasonal and regression models concurrently, each
// under its own lock. Results are in that order.
func (o *Orchestrator) trainAll(ctx context.Context, series []models.SeriesPoint) ([]*forecast.TrainResult, error) {
	return o.trainEach(ctx, []forecast.Forecaster{o.seasonal, o.regression}, series)
}

// trainEach trains forecasters concurrently and returns their results in
// the same order.
func (o *Orchestrator) trainEach(ctx context.Context, forecasters []forecast.Forecaster, series []models.SeriesPoint) ([]*forecast.TrainResult, error) {
	results := make([]*forecast.TrainResult, len(forecasters))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range forecasters {
		i, m := i, m
		g.Go(func() error {
			res, err := o.trainOne(gctx, m, series)
			if err != nil {
				return fmt.Errorf("%s: %w", m.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) trainOne(ctx context.Context, m forecast.Forecaster, series []models.SeriesPoint) (*forecast.TrainResult, error) {
	unlock, err := o.locker.Lock(ctx, m.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire training lock: %w", err)
	}
	defer unlock()

	start := time.Now()
	res, err := m.Train(ctx, series)
	if err != nil {
		return nil, err
	}
	o.metrics.ObserveTrain(m.Name(), time.Since(start), res.DataPoints)
	return res, nil
}

// ensureTrained loads persisted state for any model that is not in memory
// and trains on series only the models that are still missing or whose
// persisted state is unreadable.
func (o *Orchestrator) ensureTrained(ctx context.Context, series []models.SeriesPoint) error {
	var missing []forecast.Forecaster
	var names []string
	for _, m := range []forecast.Forecaster{o.seasonal, o.regression} {
		if m.Trained() {
			continue
		}
		ok, err := m.Load()
		if err != nil {
			logger.WarnCtxf(ctx, "Discarding persisted %s model: %v", m.Name(), err)
		}
		if !ok || err != nil {
			missing = append(missing, m)
			names = append(names, m.Name())
		}
	}
	if len(missing) == 0 {
		return nil
	}

	logger.InfoCtxf(ctx, "No trained %v model found, training on %d points", names, len(series))
	_, err := o.trainEach(ctx, missing, series)
	return err
}

// PredictStockUsage forecasts days days of usage and relates the trailing
// average usage to the current unreserved stock. days == 0 selects the
// configured default.
func (o *Orchestrator) PredictStockUsage(ctx context.Context, days int) (*models.PredictionReport, error) {
	if days == 0 {
		days = o.config.DefaultForecastDays
	}
	if days < 0 || days > MaxForecastDays {
		return nil, fmt.Errorf("%w: forecast days must be between 1 and %d", models.ErrInvalidParameter, MaxForecastDays)
	}

	runID := models.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	now := o.config.Now()

	report, err := o.predict(ctx, days, now)
	if err != nil {
		o.metrics.IncReport("prediction", "error")
		return nil, err
	}
	report.Version = models.ReportVersion
	report.RunID = runID
	report.GeneratedAt = now.UTC()

	if !report.Success {
		o.metrics.IncReport("prediction", "no_data")
		return report, nil
	}

	if _, err := o.reports.Write(KindPrediction, report); err != nil {
		o.metrics.IncReport("prediction", "error")
		return nil, err
	}
	o.metrics.IncReport("prediction", "success")
	return report, nil
}

func (o *Orchestrator) predict(ctx context.Context, days int, now time.Time) (*models.PredictionReport, error) {
	events, err := o.collector.StockHistory(ctx, o.config.HistoryDays)
	if err != nil {
		return nil, err
	}
	snapshot, err := o.collector.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	insufficient := &models.PredictionReport{Success: false, Error: msgInsufficient}
	if snapshot == nil {
		logger.WarnCtxf(ctx, "Prediction skipped: no stock snapshot")
		return insufficient, nil
	}
	points, err := o.aggregator.Aggregate(events)
	if errors.Is(err, models.ErrEmptyInput) {
		logger.WarnCtxf(ctx, "Prediction skipped: %v", err)
		return insufficient, nil
	}
	if err != nil {
		return nil, err
	}

	series := usage.ToSeries(points)
	if err := o.ensureTrained(ctx, series); err != nil {
		if errors.Is(err, models.ErrEmptyInput) {
			logger.WarnCtxf(ctx, "Prediction skipped: %v", err)
			return insufficient, nil
		}
		return nil, err
	}

	today := models.DateOf(now, o.config.Location)
	var full, regression []models.ForecastPoint

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		full, err = o.seasonal.Forecast(gctx, forecast.Request{Days: days})
		o.metrics.ObservePredict(o.seasonal.Name(), time.Since(start))
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		regression, err = o.regression.Forecast(gctx, forecast.Request{Start: today, Days: days})
		o.metrics.ObservePredict(o.regression.Name(), time.Since(start))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avg := usage.AverageDaily(points, o.config.AverageWindow)
	remaining := usage.DaysUntilEmpty(snapshot.UnreservedStock, avg)
	o.metrics.SetUsage(avg, float64(remaining))

	future := full[len(full)-days:]
	report := &models.PredictionReport{
		Success:      true,
		CurrentStock: snapshot,
		HistoricalAnalysis: &models.HistoricalAnalysis{
			AvgDailyUsage:        avg,
			DaysUntilEmpty:       remaining,
			TotalUsageLast30Days: usage.Total(usage.Trailing(points, o.config.AverageWindow)),
		},
		ForecastSummary: &models.ForecastSummary{
			Next7Days:  Summarize(future, 7),
			Next14Days: Summarize(future, 14),
			Next30Days: Summarize(future, 30),
		},
		FullForecast:       full,
		RegressionForecast: regression,
	}
	report.Plots = o.renderPredictionPlots(ctx, series, full, regression)

	logger.InfoCtxf(ctx, "Predicted %d days: avg daily usage %.2f, days until empty %v",
		days, avg, float64(remaining))
	return report, nil
}

// renderPredictionPlots draws the forecast charts. A chart that fails is
// logged and left out of the result.
func (o *Orchestrator) renderPredictionPlots(ctx context.Context, series []models.SeriesPoint, full, regression []models.ForecastPoint) map[string]string {
	if o.plots == nil {
		return nil
	}
	out := make(map[string]string, 3)

	history, err := o.seasonal.History()
	if err != nil {
		history = series
	}
	if name, err := o.plots.SeasonalForecast(history, full); err != nil {
		logger.WarnCtxf(ctx, "Failed to render forecast plot: %v", err)
	} else {
		out["forecast"] = name
	}

	components, err := o.seasonal.Components(full)
	if err == nil {
		var name string
		name, err = o.plots.Components(components)
		if err == nil {
			out["components"] = name
		}
	}
	if err != nil {
		logger.WarnCtxf(ctx, "Failed to render components plot: %v", err)
	}

	if name, err := o.plots.RegressionForecast(series, regression); err != nil {
		logger.WarnCtxf(ctx, "Failed to render regression plot: %v", err)
	} else {
		out["regression"] = name
	}
	return out
}

// Summarize rolls up the first n points of a forecast. Fewer points are
// summarized as they are.
func Summarize(points []models.ForecastPoint, n int) models.WindowSummary {
	if n > len(points) {
		n = len(points)
	}
	if n <= 0 {
		return models.WindowSummary{}
	}

	s := models.WindowSummary{
		Days:     n,
		MaxUsage: points[0].PredictedValue,
		MinUsage: points[0].PredictedValue,
	}
	for _, p := range points[:n] {
		s.TotalUsage += p.PredictedValue
		if p.PredictedValue > s.MaxUsage {
			s.MaxUsage = p.PredictedValue
		}
		if p.PredictedValue < s.MinUsage {
			s.MinUsage = p.PredictedValue
		}
	}
	s.AvgDailyUsage = s.TotalUsage / float64(n)
	return s
}

// AnalyzePatterns computes hourly, weekly and monthly activity
// distributions over the pattern window.
func (o *Orchestrator) AnalyzePatterns(ctx context.Context) (*models.PatternReport, error) {
	runID := models.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	now := o.config.Now()

	report := &models.PatternReport{
		Version:     models.ReportVersion,
		RunID:       runID,
		GeneratedAt: now.UTC(),
	}

	events, err := o.collector.StockHistory(ctx, o.config.PatternDays)
	if err != nil {
		o.metrics.IncReport("patterns", "error")
		return nil, err
	}
	if len(events) == 0 {
		o.metrics.IncReport("patterns", "no_data")
		report.Error = msgNoPatternData
		return report, nil
	}
	orders, err := o.collector.Orders(ctx, o.config.PatternDays)
	if err != nil {
		o.metrics.IncReport("patterns", "error")
		return nil, err
	}

	result := o.patterns.Analyze(orders, events)
	report.Success = true
	report.Hourly = &result.Hourly
	report.Weekly = &result.Weekly
	report.Monthly = &result.Monthly

	if _, err := o.reports.Write(KindPatterns, report); err != nil {
		o.metrics.IncReport("patterns", "error")
		return nil, err
	}
	o.metrics.IncReport("patterns", "success")

	logger.InfoCtxf(ctx, "Analyzed patterns over %d stock operations and %d orders", len(events), len(orders))
	return report, nil
}

// FeatureImportance ranks the regression features of the trained model and
// renders them when a plot renderer is configured.
func (o *Orchestrator) FeatureImportance(ctx context.Context) (*models.ImportanceReport, error) {
	features, err := o.regression.FeatureImportance(o.config.TopFeatures)
	if err != nil {
		return nil, err
	}

	report := &models.ImportanceReport{Features: features}
	if o.plots != nil {
		name, err := o.plots.Importance(features)
		if err != nil {
			logger.WarnCtxf(ctx, "Failed to render importance plot: %v", err)
		} else {
			report.Plot = name
		}
	}
	return report, nil
}

// HealthCheck reports whether the upstream store is reachable.
func (o *Orchestrator) HealthCheck(ctx context.Context) error {
	return o.collector.HealthCheck(ctx)
}
