// Package usage turns raw stock movements into a daily depletion series.
package usage

import (
	"fmt"
	"math"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type Aggregator struct {
	location *time.Location
}

// NewAggregator returns an aggregator that assigns events to calendar days
// as observed in loc. A nil loc means UTC.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{location: loc}
}

// Aggregate sums depletion quantities per day and zero-fills every day
// between the first and last depletion. The result is ascending and
// contiguous.
func (a *Aggregator) Aggregate(events []models.StockEvent) ([]models.DailyUsagePoint, error) {
	totals := make(map[int]float64)
	first, last := 0, 0
	seen := false

	for _, e := range events {
		if !e.Action.IsDepletion() {
			continue
		}
		day := models.DateOf(e.CreatedAt, a.location).Ordinal()
		totals[day] += e.Quantity

		if !seen || day < first {
			first = day
		}
		if !seen || day > last {
			last = day
		}
		seen = true
	}

	if !seen {
		return nil, fmt.Errorf("%w: no sell or remove events in %d stock events", models.ErrEmptyInput, len(events))
	}

	start := models.DateOf(time.Unix(int64(first)*86400, 0), time.UTC)
	points := make([]models.DailyUsagePoint, 0, last-first+1)
	for day := first; day <= last; day++ {
		points = append(points, models.DailyUsagePoint{
			Date:  start.AddDays(day - first),
			Usage: totals[day],
		})
	}

	return points, nil
}

// ToSeries renames usage points into the forecaster input shape.
func ToSeries(points []models.DailyUsagePoint) []models.SeriesPoint {
	series := make([]models.SeriesPoint, len(points))
	for i, p := range points {
		series[i] = models.SeriesPoint{Date: p.Date, Value: p.Usage}
	}
	return series
}

// AverageDaily returns the mean usage of the trailing n points, or 0 when
// there are none. Fewer than n points are averaged as they are.
func AverageDaily(points []models.DailyUsagePoint, n int) float64 {
	tail := Trailing(points, n)
	if len(tail) == 0 {
		return 0
	}
	return Total(tail) / float64(len(tail))
}

func Trailing(points []models.DailyUsagePoint, n int) []models.DailyUsagePoint {
	if n <= 0 {
		return nil
	}
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func Total(points []models.DailyUsagePoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Usage
	}
	return sum
}

// DaysUntilEmpty divides the unreserved stock by the average daily usage.
// It is +Inf when the average is not positive.
func DaysUntilEmpty(unreserved, avgDaily float64) models.DaysRemaining {
	if avgDaily <= 0 {
		return models.DaysRemaining(math.Inf(1))
	}
	return models.DaysRemaining(unreserved / avgDaily)
}
