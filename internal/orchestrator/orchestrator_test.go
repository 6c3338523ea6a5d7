package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/stock-forecaster/internal/collector"
	"github.com/OldStager01/stock-forecaster/internal/forecast"
	"github.com/OldStager01/stock-forecaster/internal/metrics"
	"github.com/OldStager01/stock-forecaster/internal/plots"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

type fixture struct {
	orch      *Orchestrator
	collector *collector.MockCollector
	dir       string
}

func fastForest() forecast.ForestConfig {
	cfg := forecast.DefaultForestConfig()
	cfg.Trees = 10
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, t.TempDir())
}

// newFixtureIn builds an orchestrator whose models, reports and plots live
// under dir, so a second fixture can pick up the first one's state.
func newFixtureIn(t *testing.T, dir string) *fixture {
	t.Helper()
	now := func() time.Time { return testNow }

	store, err := forecast.NewFileStore(filepath.Join(dir, "models"))
	require.NoError(t, err)
	reports, err := NewReportWriter(filepath.Join(dir, "data"), now)
	require.NoError(t, err)
	renderer, err := plots.NewRenderer(filepath.Join(dir, "plots"), now)
	require.NoError(t, err)

	mc := collector.NewMockCollector(now)
	o, err := New(Config{Now: now}, Deps{
		Collector:  mc,
		Seasonal:   forecast.NewSeasonal(forecast.DefaultSeasonalConfig(), store),
		Regression: forecast.NewRegression(forecast.RegressionConfig{Forest: fastForest()}, store),
		Reports:    reports,
		Plots:      renderer,
		Metrics:    metrics.New(),
	})
	require.NoError(t, err)

	return &fixture{orch: o, collector: mc, dir: dir}
}

// dailySales emits one sell per day for each of the n days before testNow,
// with heavier sales on Saturdays, plus an add that must be ignored.
func dailySales(n int) []models.StockEvent {
	var events []models.StockEvent
	for i := 1; i <= n; i++ {
		ts := testNow.AddDate(0, 0, -i).Add(-2 * time.Hour)
		qty := 5.0
		if ts.Weekday() == time.Saturday {
			qty = 8
		}
		events = append(events,
			models.StockEvent{ID: 2 * i, Action: models.StockActionSell, Quantity: qty, CreatedAt: ts},
			models.StockEvent{ID: 2*i + 1, Action: models.StockActionAdd, Quantity: 100, CreatedAt: ts},
		)
	}
	return events
}

func snapshot(unreserved float64) *models.StockSnapshot {
	return &models.StockSnapshot{
		ID:              1,
		Date:            testNow,
		CurrentStock:    unreserved + 20,
		ReservedStock:   20,
		UnreservedStock: unreserved,
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestTrainModels_Success(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(60))

	report, err := f.orch.TrainModels(context.Background(), 90)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{forecast.ModelSeasonal, forecast.ModelRegression}, report.ModelsTrained)
	assert.Equal(t, 60, report.DataPoints)
	require.NotNil(t, report.DateRange)
	assert.Equal(t, models.DateOf(testNow.AddDate(0, 0, -60), time.UTC), report.DateRange.Start)
	assert.Equal(t, models.DateOf(testNow.AddDate(0, 0, -1), time.UTC), report.DateRange.End)
	require.NotNil(t, report.RegressionMetrics)
	assert.False(t, math.IsNaN(report.RegressionMetrics.R2))

	for _, name := range []string{"seasonal_model.json", "regression_model.json"} {
		assert.FileExists(t, filepath.Join(f.dir, "models", name))
	}
}

func TestTrainModels_RespectsWindow(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(60))

	report, err := f.orch.TrainModels(context.Background(), 20)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 20, report.DataPoints)
}

func TestTrainModels_NoData(t *testing.T) {
	tests := []struct {
		name    string
		events  []models.StockEvent
		wantErr string
	}{
		{"no events", nil, "No stock history data available for training"},
		{"only additions", []models.StockEvent{
			{Action: models.StockActionAdd, Quantity: 10, CreatedAt: testNow.Add(-time.Hour)},
		}, "No stock history data available for training"},
		{"single day", []models.StockEvent{
			{Action: models.StockActionSell, Quantity: 10, CreatedAt: testNow.Add(-time.Hour)},
			{Action: models.StockActionSell, Quantity: 4, CreatedAt: testNow.Add(-2 * time.Hour)},
		}, "Insufficient stock history data available for training"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.collector.SetEvents(tt.events)

			report, err := f.orch.TrainModels(context.Background(), 0)
			require.NoError(t, err)
			assert.False(t, report.Success)
			assert.Equal(t, tt.wantErr, report.Error)
			assert.Empty(t, report.ModelsTrained)
		})
	}
}

func TestTrainModels_InvalidDays(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(60))

	for _, days := range []int{-1, -90, MaxTrainDays + 1} {
		_, err := f.orch.TrainModels(context.Background(), days)
		assert.ErrorIs(t, err, models.ErrInvalidParameter, "days=%d", days)
	}
	assert.NoFileExists(t, filepath.Join(f.dir, "models", "seasonal_model.json"))
}

func TestTrainModels_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.collector.SetShouldFail(true, models.ErrUpstreamFetch)

	_, err := f.orch.TrainModels(context.Background(), 90)
	assert.ErrorIs(t, err, models.ErrUpstreamFetch)
}

func TestPredictStockUsage_TrainsLazily(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(89))
	f.collector.SetSnapshot(snapshot(300))

	report, err := f.orch.PredictStockUsage(context.Background(), 14)
	require.NoError(t, err)
	require.True(t, report.Success, report.Error)

	assert.Equal(t, models.ReportVersion, report.Version)
	assert.Equal(t, testNow, report.GeneratedAt)
	assert.Len(t, report.FullForecast, 89+14)
	require.Len(t, report.RegressionForecast, 14)
	assert.Equal(t, models.NewDate(2024, 6, 30), report.RegressionForecast[0].Date)

	future := report.FullForecast[89:]
	assert.Equal(t, models.NewDate(2024, 6, 30), future[0].Date)
	for _, p := range report.FullForecast {
		assert.GreaterOrEqual(t, p.LowerBound, 0.0)
		assert.LessOrEqual(t, p.LowerBound, p.PredictedValue)
		assert.LessOrEqual(t, p.PredictedValue, p.UpperBound)
	}
	for _, p := range report.RegressionForecast {
		assert.InDelta(t, math.Max(0, 0.8*p.PredictedValue), p.LowerBound, 1e-9)
		assert.InDelta(t, 1.2*p.PredictedValue, p.UpperBound, 1e-9)
	}

	ha := report.HistoricalAnalysis
	require.NotNil(t, ha)
	assert.Greater(t, ha.AvgDailyUsage, 5.0)
	assert.Less(t, ha.AvgDailyUsage, 8.0)
	assert.InDelta(t, ha.AvgDailyUsage*30, ha.TotalUsageLast30Days, 1e-9)
	assert.InDelta(t, 300/ha.AvgDailyUsage, float64(ha.DaysUntilEmpty), 1e-9)

	fs := report.ForecastSummary
	require.NotNil(t, fs)
	assert.Equal(t, 7, fs.Next7Days.Days)
	assert.Equal(t, 14, fs.Next14Days.Days)
	assert.Equal(t, 14, fs.Next30Days.Days)
	assert.Equal(t, Summarize(future, 7), fs.Next7Days)

	assert.Len(t, report.Plots, 3)
	for _, name := range report.Plots {
		assert.FileExists(t, filepath.Join(f.dir, "plots", name))
	}

	written, err := filepath.Glob(filepath.Join(f.dir, "data", "prediction_*.json"))
	require.NoError(t, err)
	assert.Len(t, written, 1)
	assert.FileExists(t, filepath.Join(f.dir, "models", "seasonal_model.json"))
}

func TestPredictStockUsage_UsesPersistedModels(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(60))
	f.collector.SetSnapshot(snapshot(100))

	_, err := f.orch.TrainModels(context.Background(), 90)
	require.NoError(t, err)
	before, err := os.Stat(filepath.Join(f.dir, "models", "seasonal_model.json"))
	require.NoError(t, err)

	report, err := f.orch.PredictStockUsage(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, report.Success)

	after, err := os.Stat(filepath.Join(f.dir, "models", "seasonal_model.json"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestPredictStockUsage_RetrainsOnlyMissingModel(t *testing.T) {
	dir := t.TempDir()
	first := newFixtureIn(t, dir)
	first.collector.SetEvents(dailySales(60))
	_, err := first.orch.TrainModels(context.Background(), 90)
	require.NoError(t, err)

	regressionPath := filepath.Join(dir, "models", "regression_model.json")
	seasonalPath := filepath.Join(dir, "models", "seasonal_model.json")
	before, err := os.ReadFile(regressionPath)
	require.NoError(t, err)
	require.NoError(t, os.Remove(seasonalPath))

	second := newFixtureIn(t, dir)
	second.collector.SetEvents(dailySales(20))
	second.collector.SetSnapshot(snapshot(100))

	report, err := second.orch.PredictStockUsage(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, report.Success, report.Error)

	after, err := os.ReadFile(regressionPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.FileExists(t, seasonalPath)

	var state struct {
		TrainedFrom models.Date `json:"trained_from"`
	}
	require.NoError(t, json.Unmarshal(after, &state))
	assert.Equal(t, models.DateOf(testNow.AddDate(0, 0, -60), time.UTC), state.TrainedFrom)
}

func TestPredictStockUsage_ZeroUsageNeverEmpties(t *testing.T) {
	f := newFixture(t)
	var events []models.StockEvent
	for i := 1; i <= 30; i++ {
		events = append(events, models.StockEvent{
			Action:    models.StockActionSell,
			Quantity:  0,
			CreatedAt: testNow.AddDate(0, 0, -i),
		})
	}
	f.collector.SetEvents(events)
	f.collector.SetSnapshot(snapshot(50))

	report, err := f.orch.PredictStockUsage(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, report.Success, report.Error)

	assert.Equal(t, 0.0, report.HistoricalAnalysis.AvgDailyUsage)
	assert.True(t, report.HistoricalAnalysis.DaysUntilEmpty.IsInf())
}

func TestPredictStockUsage_InsufficientData(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.StockEvent
		snapshot *models.StockSnapshot
	}{
		{"no history", nil, snapshot(100)},
		{"no snapshot", dailySales(30), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.collector.SetEvents(tt.events)
			f.collector.SetSnapshot(tt.snapshot)

			report, err := f.orch.PredictStockUsage(context.Background(), 30)
			require.NoError(t, err)
			assert.False(t, report.Success)
			assert.Equal(t, "Insufficient data available for prediction", report.Error)
			assert.Nil(t, report.FullForecast)

			written, _ := filepath.Glob(filepath.Join(f.dir, "data", "*.json"))
			assert.Empty(t, written)
		})
	}
}

func TestPredictStockUsage_InvalidDays(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(30))
	f.collector.SetSnapshot(snapshot(100))

	for _, days := range []int{-1, -30, MaxForecastDays + 1} {
		_, err := f.orch.PredictStockUsage(context.Background(), days)
		assert.ErrorIs(t, err, models.ErrInvalidParameter, "days=%d", days)
	}
}

func TestPredictStockUsage_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection refused")
	f.collector.SetShouldFail(true, boom)

	_, err := f.orch.PredictStockUsage(context.Background(), 7)
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzePatterns(t *testing.T) {
	f := newFixture(t)
	f.collector.SetEvents(dailySales(14))
	f.collector.SetOrders([]models.Order{
		{ID: 1, CreatedAt: time.Date(2024, 6, 24, 9, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2024, 6, 25, 9, 30, 0, 0, time.UTC)},
		{ID: 3, CreatedAt: time.Date(2024, 6, 25, 17, 0, 0, 0, time.UTC)},
	})

	report, err := f.orch.AnalyzePatterns(context.Background())
	require.NoError(t, err)
	require.True(t, report.Success)

	assert.Equal(t, 2, report.Hourly.Orders["9"])
	assert.Equal(t, 1, report.Hourly.Orders["17"])
	assert.Equal(t, 66.7, report.Hourly.OrdersPct["9"])
	assert.Equal(t, 28, report.Hourly.StockOps["10"])
	assert.Equal(t, 100.0, report.Hourly.StockOpsPct["10"])
	assert.Equal(t, 1, report.Weekly.Orders["Monday"])
	assert.Equal(t, 3, report.Monthly.Orders["June"])

	written, err := filepath.Glob(filepath.Join(f.dir, "data", "pattern_analysis_*.json"))
	require.NoError(t, err)
	assert.Len(t, written, 1)
}

func TestAnalyzePatterns_NoData(t *testing.T) {
	f := newFixture(t)
	f.collector.SetOrders([]models.Order{{ID: 1, CreatedAt: testNow.Add(-time.Hour)}})

	report, err := f.orch.AnalyzePatterns(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, "No stock history data available for pattern analysis", report.Error)
	assert.Nil(t, report.Hourly)
	assert.Equal(t, 0, f.collector.Calls("orders"))
}

func TestFeatureImportance(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.FeatureImportance(context.Background())
	assert.ErrorIs(t, err, models.ErrModelNotTrained)

	f.collector.SetEvents(dailySales(60))
	_, err = f.orch.TrainModels(context.Background(), 90)
	require.NoError(t, err)

	report, err := f.orch.FeatureImportance(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Features, 20)
	for i := 1; i < len(report.Features); i++ {
		assert.GreaterOrEqual(t, report.Features[i-1].Importance, report.Features[i].Importance)
	}
	assert.FileExists(t, filepath.Join(f.dir, "plots", report.Plot))
}

func TestSummarize(t *testing.T) {
	points := []models.ForecastPoint{
		{PredictedValue: 2}, {PredictedValue: 4}, {PredictedValue: 1}, {PredictedValue: 5},
	}

	tests := []struct {
		name string
		n    int
		want models.WindowSummary
	}{
		{"window shorter than forecast", 3, models.WindowSummary{Days: 3, TotalUsage: 7, AvgDailyUsage: 7.0 / 3, MaxUsage: 4, MinUsage: 1}},
		{"window longer than forecast", 10, models.WindowSummary{Days: 4, TotalUsage: 12, AvgDailyUsage: 3, MaxUsage: 5, MinUsage: 1}},
		{"empty window", 0, models.WindowSummary{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(points, tt.n))
		})
	}
}
