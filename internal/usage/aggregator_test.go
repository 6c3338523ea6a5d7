package usage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

func event(action models.StockAction, qty float64, ts time.Time) models.StockEvent {
	return models.StockEvent{Action: action, Quantity: qty, CreatedAt: ts}
}

func at(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

func TestAggregator_Aggregate(t *testing.T) {
	events := []models.StockEvent{
		event(models.StockActionSell, 5, at(1, 9)),
		event(models.StockActionRemove, 2, at(1, 18)),
		event(models.StockActionAdd, 100, at(2, 9)),
		event(models.StockActionAdjust, 3, at(3, 9)),
		event(models.StockActionSell, 4, at(4, 12)),
	}

	points, err := NewAggregator(nil).Aggregate(events)
	require.NoError(t, err)

	want := []models.DailyUsagePoint{
		{Date: models.NewDate(2024, 1, 1), Usage: 7},
		{Date: models.NewDate(2024, 1, 2), Usage: 0},
		{Date: models.NewDate(2024, 1, 3), Usage: 0},
		{Date: models.NewDate(2024, 1, 4), Usage: 4},
	}
	assert.Equal(t, want, points)
}

func TestAggregator_UnorderedInput(t *testing.T) {
	events := []models.StockEvent{
		event(models.StockActionSell, 1, at(10, 9)),
		event(models.StockActionSell, 2, at(3, 9)),
		event(models.StockActionSell, 3, at(7, 9)),
	}

	points, err := NewAggregator(time.UTC).Aggregate(events)
	require.NoError(t, err)

	require.Len(t, points, 8)
	for i := 1; i < len(points); i++ {
		assert.Equal(t, 1, points[i].Date.DaysSince(points[i-1].Date))
	}
	assert.Equal(t, 6.0, Total(points))
}

func TestAggregator_UsesReferenceTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 21:00 UTC on Jan 1 is already Jan 2 at UTC+5.
	events := []models.StockEvent{
		event(models.StockActionSell, 1, time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)),
		event(models.StockActionSell, 1, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)),
	}

	utc, err := NewAggregator(time.UTC).Aggregate(events)
	require.NoError(t, err)
	assert.Len(t, utc, 1)

	shifted, err := NewAggregator(loc).Aggregate(events)
	require.NoError(t, err)
	require.Len(t, shifted, 2)
	assert.Equal(t, models.NewDate(2024, 1, 1), shifted[0].Date)
	assert.Equal(t, models.NewDate(2024, 1, 2), shifted[1].Date)
}

func TestAggregator_EmptyInput(t *testing.T) {
	tests := []struct {
		name   string
		events []models.StockEvent
	}{
		{"no events", nil},
		{"no depletion", []models.StockEvent{event(models.StockActionAdd, 10, at(1, 9))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(nil).Aggregate(tt.events)
			assert.ErrorIs(t, err, models.ErrEmptyInput)
		})
	}
}

func TestToSeries(t *testing.T) {
	points := []models.DailyUsagePoint{
		{Date: models.NewDate(2024, 1, 1), Usage: 3},
		{Date: models.NewDate(2024, 1, 2), Usage: 0},
	}

	series := ToSeries(points)

	assert.Equal(t, []models.SeriesPoint{
		{Date: models.NewDate(2024, 1, 1), Value: 3},
		{Date: models.NewDate(2024, 1, 2), Value: 0},
	}, series)
}

func TestAverageDaily(t *testing.T) {
	points := make([]models.DailyUsagePoint, 40)
	for i := range points {
		points[i] = models.DailyUsagePoint{Date: models.NewDate(2024, 1, 1).AddDays(i), Usage: float64(i)}
	}

	tests := []struct {
		name   string
		points []models.DailyUsagePoint
		n      int
		want   float64
	}{
		{"trailing window", points, 30, (10 + 39) / 2.0},
		{"shorter history", points[:4], 30, 1.5},
		{"no points", nil, 30, 0},
		{"zero window", points, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AverageDaily(tt.points, tt.n), 1e-12)
		})
	}
}

func TestDaysUntilEmpty(t *testing.T) {
	tests := []struct {
		name       string
		unreserved float64
		avg        float64
		want       float64
	}{
		{"regular", 100, 4, 25},
		{"nothing left", 0, 4, 0},
		{"no usage", 100, 0, math.Inf(1)},
		{"negative usage", 100, -1, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntilEmpty(tt.unreserved, tt.avg)
			assert.Equal(t, tt.want, float64(got))
		})
	}
}
