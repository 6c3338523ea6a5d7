package forecast

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// weeklySeries has a slow upward trend, a Saturday peak and seeded noise.
func weeklySeries(n int) []models.SeriesPoint {
	rng := rand.New(rand.NewSource(7))
	start := models.NewDate(2024, 1, 1)
	out := make([]models.SeriesPoint, n)
	for i := range out {
		d := start.AddDays(i)
		v := 10 + 0.02*float64(i) + rng.Float64() - 0.5
		if d.Weekday() == time.Saturday {
			v += 3
		}
		out[i] = models.SeriesPoint{Date: d, Value: v}
	}
	return out
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func fastRegressionConfig() RegressionConfig {
	cfg := DefaultRegressionConfig()
	cfg.Forest.Trees = 20
	return cfg
}
