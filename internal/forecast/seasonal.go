package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// Seasonality is one Fourier component with a period in days.
type Seasonality struct {
	Name   string  `json:"name"`
	Period float64 `json:"period"`
	Order  int     `json:"order"`
}

func DefaultSeasonalities() []Seasonality {
	return []Seasonality{
		{Name: "yearly", Period: 365.25, Order: 10},
		{Name: "weekly", Period: 7, Order: 3},
		{Name: "daily", Period: 1, Order: 4},
		{Name: "monthly", Period: 30.5, Order: 5},
	}
}

type SeasonalConfig struct {
	Changepoints          int
	ChangepointRange      float64
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	IntervalWidth         float64
	Seasonalities         []Seasonality
}

func DefaultSeasonalConfig() SeasonalConfig {
	return SeasonalConfig{
		Changepoints:          25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		IntervalWidth:         0.8,
		Seasonalities:         DefaultSeasonalities(),
	}
}

func (c SeasonalConfig) withDefaults() SeasonalConfig {
	d := DefaultSeasonalConfig()
	if c.Changepoints < 0 {
		c.Changepoints = 0
	} else if c.Changepoints == 0 {
		c.Changepoints = d.Changepoints
	}
	if c.ChangepointRange <= 0 || c.ChangepointRange > 1 {
		c.ChangepointRange = d.ChangepointRange
	}
	if c.ChangepointPriorScale <= 0 {
		c.ChangepointPriorScale = d.ChangepointPriorScale
	}
	if c.SeasonalityPriorScale <= 0 {
		c.SeasonalityPriorScale = d.SeasonalityPriorScale
	}
	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		c.IntervalWidth = d.IntervalWidth
	}
	if len(c.Seasonalities) == 0 {
		c.Seasonalities = d.Seasonalities
	}
	return c
}

// seasonalState is everything needed to rebuild a forecast. Trend time is
// scaled so the history spans [0, 1]; values are scaled by YScale.
type seasonalState struct {
	History       []models.SeriesPoint `json:"history"`
	YScale        float64              `json:"y_scale"`
	Changepoints  []float64            `json:"changepoints"`
	K             float64              `json:"k"`
	M             float64              `json:"m"`
	Deltas        []float64            `json:"deltas"`
	Seasonalities []Seasonality        `json:"seasonalities"`
	Betas         [][]float64          `json:"betas"`
	SigmaObs      float64              `json:"sigma_obs"`
	IntervalWidth float64              `json:"interval_width"`
}

func (s *seasonalState) start() models.Date { return s.History[0].Date }
func (s *seasonalState) end() models.Date   { return s.History[len(s.History)-1].Date }

func (s *seasonalState) scaledTime(d models.Date) float64 {
	span := float64(s.end().DaysSince(s.start()))
	return float64(d.DaysSince(s.start())) / span
}

// Seasonal is an additive model of a piecewise-linear trend plus Fourier
// seasonalities, fitted as a MAP estimate under Gaussian priors.
type Seasonal struct {
	cfg   SeasonalConfig
	store Store

	mu    sync.RWMutex
	state *seasonalState
}

func NewSeasonal(cfg SeasonalConfig, store Store) *Seasonal {
	return &Seasonal{cfg: cfg.withDefaults(), store: store}
}

func (s *Seasonal) Name() string { return ModelSeasonal }

func (s *Seasonal) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil
}

func (s *Seasonal) Train(ctx context.Context, series []models.SeriesPoint) (*TrainResult, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	state, err := fitSeasonal(ctx, s.cfg, series)
	if err != nil {
		return nil, fmt.Errorf("failed to fit seasonal model: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ModelSeasonal, state); err != nil {
		return nil, fmt.Errorf("failed to persist seasonal model: %w", err)
	}
	s.state = state

	logger.WithModel(ModelSeasonal).Infof("Trained on %d points, %d changepoints, sigma %.4f",
		len(series), len(state.Changepoints), state.SigmaObs)

	return &TrainResult{
		Model:      ModelSeasonal,
		DataPoints: len(series),
		Start:      state.start(),
		End:        state.end(),
	}, nil
}

func (s *Seasonal) Load() (bool, error) {
	var state seasonalState
	if err := s.store.Load(ModelSeasonal, &state); err != nil {
		if isNotTrained(err) {
			return false, nil
		}
		return false, err
	}
	if len(state.History) < 2 || len(state.Betas) != len(state.Seasonalities) {
		return false, fmt.Errorf("persisted seasonal state is incomplete")
	}

	s.mu.Lock()
	s.state = &state
	s.mu.Unlock()
	return true, nil
}

// Forecast returns the in-sample fit for every history date followed by
// req.Days future dates after the last training date.
func (s *Seasonal) Forecast(ctx context.Context, req Request) ([]models.ForecastPoint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	state, err := s.current()
	if err != nil {
		return nil, err
	}

	dates := make([]models.Date, 0, len(state.History)+req.Days)
	for _, p := range state.History {
		dates = append(dates, p.Date)
	}
	last := state.end()
	for i := 1; i <= req.Days; i++ {
		dates = append(dates, last.AddDays(i))
	}

	z := distuv.UnitNormal.Quantile(0.5 + state.IntervalWidth/2)
	rate := float64(len(state.Changepoints))
	deltaScale := meanAbs(state.Deltas)

	points := make([]models.ForecastPoint, len(dates))
	for i, d := range dates {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		t := state.scaledTime(d)
		yhat := state.trend(t)
		for j, season := range state.Seasonalities {
			yhat += floats.Dot(state.Betas[j], fourier(d, season))
		}

		variance := state.SigmaObs * state.SigmaObs
		if t > 1 && rate > 0 {
			// Slope changes arrive at the historical rate with Laplace
			// magnitudes; each adds delta·(t-s) to the trend.
			variance += rate * 2 * deltaScale * deltaScale * math.Pow(t-1, 3) / 3
		}
		width := z * math.Sqrt(variance)

		points[i] = bandPoint(d, yhat*state.YScale, width*state.YScale)
	}

	return points, nil
}

// Components decomposes forecast dates into trend and seasonal terms in
// the original units.
func (s *Seasonal) Components(forecast []models.ForecastPoint) ([]models.ComponentPoint, error) {
	state, err := s.current()
	if err != nil {
		return nil, err
	}

	out := make([]models.ComponentPoint, len(forecast))
	for i, p := range forecast {
		seasons := make(map[string]float64, len(state.Seasonalities))
		for j, season := range state.Seasonalities {
			seasons[season.Name] = floats.Dot(state.Betas[j], fourier(p.Date, season)) * state.YScale
		}
		out[i] = models.ComponentPoint{
			Date:        p.Date,
			Trend:       state.trend(state.scaledTime(p.Date)) * state.YScale,
			Seasonality: seasons,
		}
	}
	return out, nil
}

// History returns the series the current state was trained on.
func (s *Seasonal) History() ([]models.SeriesPoint, error) {
	state, err := s.current()
	if err != nil {
		return nil, err
	}
	out := make([]models.SeriesPoint, len(state.History))
	copy(out, state.History)
	return out, nil
}

// current returns the in-memory state, loading it from the store if needed.
func (s *Seasonal) current() (*seasonalState, error) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != nil {
		return state, nil
	}

	ok, err := s.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrModelNotTrained, ModelSeasonal)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *seasonalState) trend(t float64) float64 {
	v := s.K*t + s.M
	for j, cp := range s.Changepoints {
		if t > cp {
			v += s.Deltas[j] * (t - cp)
		}
	}
	return v
}

func fitSeasonal(ctx context.Context, cfg SeasonalConfig, series []models.SeriesPoint) (*seasonalState, error) {
	n := len(series)
	state := &seasonalState{
		History:       append([]models.SeriesPoint(nil), series...),
		Seasonalities: cfg.Seasonalities,
		IntervalWidth: cfg.IntervalWidth,
	}

	for _, p := range series {
		state.YScale = math.Max(state.YScale, math.Abs(p.Value))
	}
	if state.YScale == 0 {
		state.YScale = 1
	}

	state.Changepoints = placeChangepoints(state, cfg)

	// Column layout: m, k, one delta per changepoint, then the Fourier
	// terms of each seasonality in order.
	nc := len(state.Changepoints)
	p := 2 + nc
	for _, season := range cfg.Seasonalities {
		p += 2 * season.Order
	}

	priorVar := make([]float64, p)
	priorVar[0], priorVar[1] = 25, 25
	for j := 0; j < nc; j++ {
		priorVar[2+j] = 2 * cfg.ChangepointPriorScale * cfg.ChangepointPriorScale
	}
	for j := 2 + nc; j < p; j++ {
		priorVar[j] = cfg.SeasonalityPriorScale * cfg.SeasonalityPriorScale
	}

	rows := make([][]float64, n)
	y := make([]float64, n)
	for i, pt := range series {
		rows[i] = designRow(state, pt.Date, p)
		y[i] = pt.Value / state.YScale
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	noise := math.Max(stat.PopVariance(y, nil), 1e-4)

	ridge := make([]float64, p)
	for j := range ridge {
		ridge[j] = noise / priorVar[j]
	}
	theta, err := solveMAP(rows, y, ridge)
	if err != nil {
		return nil, err
	}

	state.M, state.K = theta[0], theta[1]
	state.Deltas = append([]float64{}, theta[2:2+nc]...)
	offset := 2 + nc
	state.Betas = make([][]float64, len(cfg.Seasonalities))
	for j, season := range cfg.Seasonalities {
		width := 2 * season.Order
		state.Betas[j] = append([]float64{}, theta[offset:offset+width]...)
		offset += width
	}

	var rss float64
	for i, row := range rows {
		r := y[i] - floats.Dot(row, theta)
		rss += r * r
	}
	state.SigmaObs = math.Sqrt(rss / float64(n))

	return state, nil
}

// placeChangepoints spreads potential changepoints uniformly over the
// first ChangepointRange of the history, on observed dates.
func placeChangepoints(state *seasonalState, cfg SeasonalConfig) []float64 {
	histSize := int(math.Floor(float64(len(state.History)) * cfg.ChangepointRange))
	count := cfg.Changepoints
	if count+1 > histSize {
		count = histSize - 1
	}
	if count <= 0 {
		return nil
	}

	cps := make([]float64, 0, count)
	step := float64(histSize-1) / float64(count)
	for i := 1; i <= count; i++ {
		idx := int(math.RoundToEven(step * float64(i)))
		cps = append(cps, state.scaledTime(state.History[idx].Date))
	}
	return cps
}

func designRow(state *seasonalState, d models.Date, p int) []float64 {
	row := make([]float64, 0, p)
	t := state.scaledTime(d)
	row = append(row, 1, t)
	for _, cp := range state.Changepoints {
		row = append(row, math.Max(0, t-cp))
	}
	for _, season := range state.Seasonalities {
		row = append(row, fourier(d, season)...)
	}
	return row
}

// fourier returns sin/cos pairs for orders 1..Order, with time measured in
// days since the Unix epoch.
func fourier(d models.Date, season Seasonality) []float64 {
	t := float64(d.Ordinal())
	out := make([]float64, 0, 2*season.Order)
	for n := 1; n <= season.Order; n++ {
		x := 2 * math.Pi * float64(n) * t / season.Period
		out = append(out, math.Sin(x), math.Cos(x))
	}
	return out
}

// bandPoint clamps a symmetric band so usage is never negative.
func bandPoint(d models.Date, yhat, width float64) models.ForecastPoint {
	pred := math.Max(0, yhat)
	return models.ForecastPoint{
		Date:           d,
		PredictedValue: pred,
		LowerBound:     math.Max(0, yhat-width),
		UpperBound:     math.Max(pred, yhat+width),
	}
}

var errNotPositiveDefinite = errors.New("normal equations are not positive definite")

// solveMAP returns the ridge-penalized least squares coefficients
// (XᵀX + diag(ridge))⁻¹ Xᵀy, i.e. the MAP estimate under independent
// Gaussian priors.
func solveMAP(rows [][]float64, y, ridge []float64) ([]float64, error) {
	n, p := len(rows), len(ridge)
	x := mat.NewDense(n, p, nil)
	for i, row := range rows {
		x.SetRow(i, row)
	}

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())
	for j, r := range ridge {
		xtx.SetSym(j, j, xtx.At(j, j)+r)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(n, y))

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, errNotPositiveDefinite
	}
	var theta mat.VecDense
	if err := chol.SolveVecTo(&theta, &xty); err != nil {
		return nil, fmt.Errorf("failed to solve normal equations: %w", err)
	}
	return mat.Col(nil, 0, &theta), nil
}

func meanAbs(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 1)/float64(len(v)) + 1e-8
}
