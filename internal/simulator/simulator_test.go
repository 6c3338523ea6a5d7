package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/stock-forecaster/internal/usage"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func TestParsePattern(t *testing.T) {
	for _, name := range []string{"", "steady", "weekly", "seasonal", "growth", "random"} {
		p, err := ParsePattern(name, 1)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p.Name())
	}

	_, err := ParsePattern("lunar", 1)
	assert.Error(t, err)
}

func TestGenerate_DailyUsageFollowsPattern(t *testing.T) {
	ds := Generate(Config{
		Days:           28,
		BaseDailyUsage: 10,
		Pattern:        WeeklyPattern{},
		Seed:           7,
		Now:            func() time.Time { return fixedNow },
	})

	points, err := usage.NewAggregator(time.UTC).Aggregate(ds.Events)
	require.NoError(t, err)
	require.Len(t, points, 28)

	assert.Equal(t, models.DateOf(fixedNow, time.UTC).AddDays(-28), points[0].Date)
	assert.Equal(t, models.DateOf(fixedNow, time.UTC).AddDays(-1), points[27].Date)

	for _, p := range points {
		want := 10 * WeeklyPattern{}.Factor(p.Date.Time, 0)
		assert.InDelta(t, want, p.Usage, 1e-9, p.Date.String())
	}
}

func TestGenerate_StockStaysPositive(t *testing.T) {
	ds := Generate(Config{
		Days:           120,
		BaseDailyUsage: 25,
		InitialStock:   200,
		ReservedStock:  10,
		Pattern:        GrowthPattern{PerDay: 0.02},
		Now:            func() time.Time { return fixedNow },
	})

	require.NotEmpty(t, ds.Events)
	for _, e := range ds.Events {
		assert.GreaterOrEqual(t, e.NewStock, 0.0)
	}
	assert.NotEmpty(t, ds.Orders)
	require.NotNil(t, ds.Snapshot)
	assert.Equal(t, ds.Events[len(ds.Events)-1].NewStock-10, ds.Snapshot.UnreservedStock)
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := Config{Days: 30, Pattern: NewRandomPattern(3), Seed: 3, Now: func() time.Time { return fixedNow }}
	a := Generate(cfg)
	cfg.Pattern = NewRandomPattern(3)
	b := Generate(cfg)

	assert.Equal(t, a.Events, b.Events)
}
