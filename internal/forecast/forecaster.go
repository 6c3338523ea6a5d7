// Package forecast contains the daily usage forecasters and their persisted
// state.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

const (
	ModelSeasonal   = "seasonal"
	ModelRegression = "regression"
)

// Forecaster is the lifecycle shared by every model: train on a daily
// series, persist, lazily reload and forecast.
type Forecaster interface {
	Name() string

	// Train fits the model on series and persists the resulting state,
	// replacing whatever was stored before.
	Train(ctx context.Context, series []models.SeriesPoint) (*TrainResult, error)

	// Load restores persisted state. It reports false when nothing has been
	// persisted yet.
	Load() (bool, error)

	Trained() bool

	// Forecast returns ErrModelNotTrained when no state is in memory or on disk.
	Forecast(ctx context.Context, req Request) ([]models.ForecastPoint, error)
}

// Request describes a forecast horizon. Start is the first forecast date for
// models that forecast from an arbitrary date; the seasonal model always
// continues from its last training date and ignores it.
type Request struct {
	Start models.Date
	Days  int
}

type TrainResult struct {
	Model      string
	DataPoints int
	Start      models.Date
	End        models.Date
	Metrics    *models.RegressionMetrics
}

func (r Request) validate() error {
	if r.Days <= 0 {
		return fmt.Errorf("%w: forecast days must be positive, got %d", models.ErrInvalidParameter, r.Days)
	}
	return nil
}

// validateSeries checks the input is long enough, strictly ascending and finite.
func validateSeries(series []models.SeriesPoint) error {
	if len(series) < 2 {
		return fmt.Errorf("%w: at least 2 daily points are required, got %d", models.ErrEmptyInput, len(series))
	}
	for i, p := range series {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: non-finite value on %s", models.ErrInvalidParameter, p.Date)
		}
		if i > 0 && !p.Date.After(series[i-1].Date.Time) {
			return fmt.Errorf("%w: series must be strictly ascending at %s", models.ErrInvalidParameter, p.Date)
		}
	}
	return nil
}

func isNotTrained(err error) bool {
	return errors.Is(err, models.ErrModelNotTrained)
}
