// Package plots renders forecast charts as PDF files.
package plots

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

const (
	KindSeasonalForecast   = "seasonal_forecast"
	KindSeasonalComponents = "seasonal_components"
	KindRegression         = "regression_forecast"
	KindImportance         = "regression_importance"

	timestampLayout = "20060102_150405"
)

var ErrPlotNotFound = errors.New("plot not found")

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+\.pdf$`)

// Renderer writes one PDF per chart into dir. File names are
// <kind>_<yyyymmdd_hhmmss_mmm>.pdf.
type Renderer struct {
	dir string
	now func() time.Time
}

func NewRenderer(dir string, now func() time.Time) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Renderer{dir: dir, now: now}, nil
}

func (r *Renderer) Dir() string { return r.dir }

// Path resolves a plot name to a file inside the plot directory. Names
// with separators or other unexpected characters are treated as missing.
func (r *Renderer) Path(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", ErrPlotNotFound
	}
	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrPlotNotFound
	}
	return path, nil
}

// SeasonalForecast draws history as dots and the forecast as a line with
// its uncertainty band.
func (r *Renderer) SeasonalForecast(history []models.SeriesPoint, forecast []models.ForecastPoint) (string, error) {
	return r.render(KindSeasonalForecast, func(pdf *fpdf.Fpdf) {
		forecastChart(pdf, "Seasonal Forecast - Stock Usage", history, forecast)
	})
}

func (r *Renderer) RegressionForecast(history []models.SeriesPoint, forecast []models.ForecastPoint) (string, error) {
	return r.render(KindRegression, func(pdf *fpdf.Fpdf) {
		forecastChart(pdf, "Regression Forecast - Stock Usage", history, forecast)
	})
}

// Components draws the trend and every seasonal term on its own page.
func (r *Renderer) Components(components []models.ComponentPoint) (string, error) {
	if len(components) == 0 {
		return "", fmt.Errorf("%w: no components to plot", models.ErrEmptyInput)
	}

	names := make([]string, 0, len(components[0].Seasonality))
	for name := range components[0].Seasonality {
		names = append(names, name)
	}
	sort.Strings(names)

	return r.render(KindSeasonalComponents, func(pdf *fpdf.Fpdf) {
		trend := make([]xy, len(components))
		for i, c := range components {
			trend[i] = xy{float64(c.Date.Ordinal()), c.Trend}
		}
		lineChart(pdf, "trend", trend)

		for _, name := range names {
			pdf.AddPage()
			series := make([]xy, len(components))
			for i, c := range components {
				series[i] = xy{float64(c.Date.Ordinal()), c.Seasonality[name]}
			}
			lineChart(pdf, name, series)
		}
	})
}

func (r *Renderer) Importance(features []models.FeatureImportance) (string, error) {
	if len(features) == 0 {
		return "", fmt.Errorf("%w: no features to plot", models.ErrEmptyInput)
	}
	return r.render(KindImportance, func(pdf *fpdf.Fpdf) {
		barChart(pdf, "Feature Importance", features)
	})
}

func (r *Renderer) render(kind string, draw func(pdf *fpdf.Fpdf)) (string, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "", 9)
	pdf.AddPage()

	draw(pdf)

	now := r.now()
	name := fmt.Sprintf("%s_%s_%03d.pdf", kind, now.Format(timestampLayout), now.Nanosecond()/int(time.Millisecond))
	if err := pdf.OutputFileAndClose(filepath.Join(r.dir, name)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, nil
}
