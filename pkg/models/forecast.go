package models

// DailyUsagePoint is the total depletion recorded on one calendar day.
type DailyUsagePoint struct {
	Date  Date    `json:"date"`
	Usage float64 `json:"usage"`
}

// SeriesPoint is the two-column input shared by every forecaster.
type SeriesPoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

// ForecastPoint holds a point estimate with its band. LowerBound is never
// negative and LowerBound <= PredictedValue <= UpperBound.
type ForecastPoint struct {
	Date           Date    `json:"date"`
	PredictedValue float64 `json:"predicted_value"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// ComponentPoint splits a seasonal forecast into its additive terms.
type ComponentPoint struct {
	Date        Date               `json:"date"`
	Trend       float64            `json:"trend"`
	Seasonality map[string]float64 `json:"seasonality"`
}

type RegressionMetrics struct {
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}
