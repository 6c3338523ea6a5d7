package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ReportVersion tags every persisted report layout.
const ReportVersion = 1

type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

type TrainingReport struct {
	Success           bool               `json:"success"`
	Error             string             `json:"error,omitempty"`
	RunID             string             `json:"run_id,omitempty"`
	ModelsTrained     []string           `json:"models_trained,omitempty"`
	DataPoints        int                `json:"data_points,omitempty"`
	DateRange         *DateRange         `json:"date_range,omitempty"`
	RegressionMetrics *RegressionMetrics `json:"regression_metrics,omitempty"`
}

// DaysRemaining is a day count that may be +Inf. Infinity is encoded as the
// JSON string "Infinity".
type DaysRemaining float64

func (d DaysRemaining) IsInf() bool {
	return math.IsInf(float64(d), 1)
}

func (d DaysRemaining) MarshalJSON() ([]byte, error) {
	v := float64(d)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsNaN(v) || math.IsInf(v, -1):
		return nil, fmt.Errorf("unsupported days remaining value %v", v)
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (d *DaysRemaining) UnmarshalJSON(data []byte) error {
	if string(data) == `"Infinity"` {
		*d = DaysRemaining(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = DaysRemaining(v)
	return nil
}

type HistoricalAnalysis struct {
	AvgDailyUsage        float64       `json:"avg_daily_usage"`
	DaysUntilEmpty       DaysRemaining `json:"days_until_empty"`
	TotalUsageLast30Days float64       `json:"total_usage_last_30_days"`
}

// WindowSummary rolls up the predicted values of a forecast window.
type WindowSummary struct {
	Days          int     `json:"days"`
	TotalUsage    float64 `json:"total_usage"`
	AvgDailyUsage float64 `json:"avg_daily_usage"`
	MaxUsage      float64 `json:"max_usage"`
	MinUsage      float64 `json:"min_usage"`
}

type ForecastSummary struct {
	Next7Days  WindowSummary `json:"next_7_days"`
	Next14Days WindowSummary `json:"next_14_days"`
	Next30Days WindowSummary `json:"next_30_days"`
}

type PredictionReport struct {
	Version            int                 `json:"version"`
	Success            bool                `json:"success"`
	Error              string              `json:"error,omitempty"`
	RunID              string              `json:"run_id,omitempty"`
	GeneratedAt        time.Time           `json:"generated_at"`
	CurrentStock       *StockSnapshot      `json:"current_stock,omitempty"`
	HistoricalAnalysis *HistoricalAnalysis `json:"historical_analysis,omitempty"`
	ForecastSummary    *ForecastSummary    `json:"forecast_summary,omitempty"`
	Plots              map[string]string   `json:"plots,omitempty"`
	FullForecast       []ForecastPoint     `json:"full_forecast,omitempty"`
	RegressionForecast []ForecastPoint     `json:"regression_forecast,omitempty"`
}

// Distribution holds bucket counts and rounded percentages for orders and
// stock operations at one granularity.
type Distribution struct {
	Orders      map[string]int     `json:"orders"`
	OrdersPct   map[string]float64 `json:"orders_pct"`
	StockOps    map[string]int     `json:"stock_ops"`
	StockOpsPct map[string]float64 `json:"stock_ops_pct"`
}

type PatternReport struct {
	Version     int           `json:"version"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	RunID       string        `json:"run_id,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Hourly      *Distribution `json:"hourly_distribution,omitempty"`
	Weekly      *Distribution `json:"weekly_distribution,omitempty"`
	Monthly     *Distribution `json:"monthly_distribution,omitempty"`
}

type ImportanceReport struct {
	Features []FeatureImportance `json:"features"`
	Plot     string              `json:"plot,omitempty"`
}
