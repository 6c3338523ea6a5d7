package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

func TestPatternAnalyzer_Analyze(t *testing.T) {
	orders := []models.Order{
		{ID: 1, CreatedAt: time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)}, // Monday
		{ID: 2, CreatedAt: time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC)}, // Monday
		{ID: 3, CreatedAt: time.Date(2024, 2, 3, 14, 0, 0, 0, time.UTC)}, // Saturday
	}
	events := []models.StockEvent{
		{Action: models.StockActionSell, CreatedAt: time.Date(2024, 3, 5, 0, 30, 0, 0, time.UTC)},
	}

	r := NewPatternAnalyzer(nil).Analyze(orders, events)

	assert.Equal(t, map[string]int{"9": 2, "14": 1}, r.Hourly.Orders)
	assert.Equal(t, map[string]float64{"9": 66.7, "14": 33.3}, r.Hourly.OrdersPct)
	assert.Equal(t, map[string]int{"Monday": 2, "Saturday": 1}, r.Weekly.Orders)
	assert.Equal(t, map[string]int{"January": 2, "February": 1}, r.Monthly.Orders)

	assert.Equal(t, map[string]int{"0": 1}, r.Hourly.StockOps)
	assert.Equal(t, map[string]float64{"Tuesday": 100}, r.Weekly.StockOpsPct)
	assert.Equal(t, map[string]int{"March": 1}, r.Monthly.StockOps)
}

func TestPatternAnalyzer_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	orders := []models.Order{{CreatedAt: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)}}

	r := NewPatternAnalyzer(loc).Analyze(orders, nil)

	assert.Equal(t, map[string]int{"22": 1}, r.Hourly.Orders)
	assert.Equal(t, map[string]int{"Sunday": 1}, r.Weekly.Orders)
	assert.Equal(t, map[string]int{"December": 1}, r.Monthly.Orders)
}

func TestPatternAnalyzer_EmptyInput(t *testing.T) {
	r := NewPatternAnalyzer(nil).Analyze(nil, nil)

	assert.Empty(t, r.Hourly.Orders)
	assert.Empty(t, r.Hourly.OrdersPct)
	assert.Empty(t, r.Weekly.StockOps)
	assert.Empty(t, r.Monthly.StockOpsPct)
}

func TestPercentages_SumToHundred(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 1, "c": 1, "d": 2, "e": 7, "f": 3}

	pct := Percentages(counts)

	var sum float64
	for _, v := range pct {
		sum += v
		assert.InDelta(t, math.Round(v*10)/10, v, 1e-9)
	}
	assert.InDelta(t, 100, sum, 0.2)
}

func TestGranularities(t *testing.T) {
	ts := time.Date(2024, 7, 4, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "23", HourOfDay(ts))
	assert.Equal(t, "Thursday", DayOfWeek(ts))
	assert.Equal(t, "July", MonthOfYear(ts))
}
