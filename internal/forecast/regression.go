package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// Heuristic band applied around regression point estimates. It is a fixed
// envelope, not a calibrated interval.
const (
	regressionLowerFactor = 0.8
	regressionUpperFactor = 1.2
)

type RegressionConfig struct {
	Forest       ForestConfig
	TestFraction float64
}

func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		Forest:       DefaultForestConfig(),
		TestFraction: 0.2,
	}
}

type regressionState struct {
	Features    []string                 `json:"features"`
	Scaler      *StandardScaler          `json:"scaler"`
	Forest      *Forest                  `json:"forest"`
	Metrics     models.RegressionMetrics `json:"metrics"`
	TrainedFrom models.Date              `json:"trained_from"`
	TrainedTo   models.Date              `json:"trained_to"`
}

// Regression forecasts daily usage from calendar features with a random
// forest.
type Regression struct {
	cfg   RegressionConfig
	store Store

	mu    sync.RWMutex
	state *regressionState
}

func NewRegression(cfg RegressionConfig, store Store) *Regression {
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = DefaultRegressionConfig().TestFraction
	}
	cfg.Forest = cfg.Forest.withDefaults()
	return &Regression{cfg: cfg, store: store}
}

func (r *Regression) Name() string { return ModelRegression }

func (r *Regression) Trained() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state != nil
}

func (r *Regression) Train(ctx context.Context, series []models.SeriesPoint) (*TrainResult, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	x := make([][]float64, len(series))
	y := make([]float64, len(series))
	for i, p := range series {
		x[i] = CalendarFeatures(p.Date)
		y[i] = p.Value
	}

	trainIdx, testIdx := splitIndices(len(series), r.cfg.TestFraction, r.cfg.Forest.Seed)
	xTrain, yTrain := subset(x, y, trainIdx)
	xTest, yTest := subset(x, y, testIdx)

	scaler := FitScaler(xTrain)
	forest, err := FitForest(ctx, r.cfg.Forest, scaler.Transform(xTrain), yTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}

	predicted := make([]float64, len(xTest))
	for i, row := range scaler.Transform(xTest) {
		predicted[i] = forest.Predict(row)
	}
	metrics := Evaluate(yTest, predicted)

	state := &regressionState{
		Features:    FeatureNames(),
		Scaler:      scaler,
		Forest:      forest,
		Metrics:     metrics,
		TrainedFrom: series[0].Date,
		TrainedTo:   series[len(series)-1].Date,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Save(ModelRegression, state); err != nil {
		return nil, fmt.Errorf("failed to persist regression model: %w", err)
	}
	r.state = state

	logger.WithModel(ModelRegression).Infof("Trained on %d points (holdout %d): rmse %.3f r2 %.3f",
		len(trainIdx), len(testIdx), metrics.RMSE, metrics.R2)

	return &TrainResult{
		Model:      ModelRegression,
		DataPoints: len(series),
		Start:      state.TrainedFrom,
		End:        state.TrainedTo,
		Metrics:    &metrics,
	}, nil
}

func (r *Regression) Load() (bool, error) {
	var state regressionState
	if err := r.store.Load(ModelRegression, &state); err != nil {
		if isNotTrained(err) {
			return false, nil
		}
		return false, err
	}
	if state.Scaler == nil || state.Forest == nil || len(state.Features) != len(featureNames) {
		return false, fmt.Errorf("persisted regression state does not match the feature layout")
	}

	r.mu.Lock()
	r.state = &state
	r.mu.Unlock()
	return true, nil
}

// Forecast predicts req.Days consecutive dates starting at req.Start.
func (r *Regression) Forecast(ctx context.Context, req Request) ([]models.ForecastPoint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Start.IsZero() {
		return nil, fmt.Errorf("%w: regression forecast needs a start date", models.ErrInvalidParameter)
	}
	state, err := r.current()
	if err != nil {
		return nil, err
	}

	points := make([]models.ForecastPoint, req.Days)
	for i := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := req.Start.AddDays(i)
		pred := state.Forest.Predict(state.Scaler.TransformRow(CalendarFeatures(d)))
		points[i] = models.ForecastPoint{
			Date:           d,
			PredictedValue: pred,
			LowerBound:     math.Max(0, regressionLowerFactor*pred),
			UpperBound:     regressionUpperFactor * pred,
		}
	}
	return points, nil
}

// FeatureImportance returns up to top features ranked by importance.
func (r *Regression) FeatureImportance(top int) ([]models.FeatureImportance, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}

	ranked := make([]models.FeatureImportance, len(state.Features))
	for i, name := range state.Features {
		ranked[i] = models.FeatureImportance{Feature: name, Importance: state.Forest.Importances[i]}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Importance > ranked[b].Importance
	})

	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	return ranked, nil
}

// Metrics returns the holdout metrics recorded at training time.
func (r *Regression) Metrics() (*models.RegressionMetrics, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}
	m := state.Metrics
	return &m, nil
}

func (r *Regression) current() (*regressionState, error) {
	r.mu.RLock()
	state := r.state
	r.mu.RUnlock()
	if state != nil {
		return state, nil
	}

	ok, err := r.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrModelNotTrained, ModelRegression)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, nil
}

// splitIndices shuffles 0..n-1 with seed and holds out ceil(fraction·n)
// indices, keeping at least one for training.
func splitIndices(n int, fraction float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(fraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

func subset(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// Evaluate computes holdout error metrics. R² is 1 for a perfect fit of a
// constant target and 0 when the target is constant but the fit is not.
func Evaluate(actual, predicted []float64) models.RegressionMetrics {
	n := float64(len(actual))
	if n == 0 {
		return models.RegressionMetrics{}
	}

	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= n

	var sse, sae, sst float64
	for i, v := range actual {
		d := v - predicted[i]
		sse += d * d
		sae += math.Abs(d)
		sst += (v - mean) * (v - mean)
	}

	mse := sse / n
	r2 := 0.0
	switch {
	case sst > 0:
		r2 = 1 - sse/sst
	case sse == 0:
		r2 = 1
	}

	return models.RegressionMetrics{
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  sae / n,
		R2:   r2,
	}
}
