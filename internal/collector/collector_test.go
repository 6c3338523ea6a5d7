package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/stock-forecaster/internal/resilience"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

var now = time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

// flakyCollector fails the first failures calls of every operation.
type flakyCollector struct {
	*MockCollector
	failures int
	calls    int
}

func (f *flakyCollector) StockHistory(ctx context.Context, days int) ([]models.StockEvent, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.MockCollector.StockHistory(ctx, days)
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		name string
		days int
		want time.Time
	}{
		{"ninety days", 90, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"one day", 1, time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC)},
		{"no bound", 0, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowStart(now, tt.days))
		})
	}
}

func TestMockCollector_FiltersWindow(t *testing.T) {
	mc := NewMockCollector(clock)
	mc.SetEvents([]models.StockEvent{
		{ID: 1, CreatedAt: now.AddDate(0, 0, -100)},
		{ID: 2, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: 3, CreatedAt: now.Add(-time.Hour)},
	})

	events, err := mc.StockHistory(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = mc.StockHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	assert.Equal(t, 2, mc.Calls("stock_history"))
}

func TestResilientCollector_RetriesTransientFailures(t *testing.T) {
	mc := NewMockCollector(clock)
	mc.SetEvents([]models.StockEvent{{ID: 1, CreatedAt: now}})
	flaky := &flakyCollector{MockCollector: mc, failures: 2}

	rc := NewResilientCollector(ResilientCollectorConfig{
		Collector:     flaky,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	events, err := rc.StockHistory(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 3, flaky.calls)
}

func TestResilientCollector_WrapsFailures(t *testing.T) {
	mc := NewMockCollector(clock)
	mc.SetShouldFail(true, errors.New("connection refused"))

	var failedOps []string
	rc := NewResilientCollector(ResilientCollectorConfig{
		Collector:     mc,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		OnFailure: func(op string, err error) {
			failedOps = append(failedOps, op)
		},
	})

	_, err := rc.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, models.ErrUpstreamFetch)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, mc.Calls("stock_snapshot"))
	assert.Equal(t, []string{"stock_snapshot"}, failedOps)
}

func TestResilientCollector_OpensCircuit(t *testing.T) {
	mc := NewMockCollector(clock)
	mc.SetShouldFail(true, errors.New("down"))

	rc := NewResilientCollector(ResilientCollectorConfig{
		Collector:     mc,
		MaxFailures:   2,
		BreakerReset:  time.Hour,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_, err := rc.Orders(context.Background(), 30)
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, rc.CircuitState())

	_, err := rc.Orders(context.Background(), 30)
	assert.ErrorIs(t, err, models.ErrUpstreamFetch)
	assert.Contains(t, err.Error(), resilience.ErrCircuitOpen.Error())
	assert.Equal(t, 2, mc.Calls("orders"))

	rc.ResetCircuit()
	mc.SetShouldFail(false, nil)
	_, err = rc.Orders(context.Background(), 30)
	assert.NoError(t, err)
}

func TestCachedCollector_MemoizesReads(t *testing.T) {
	mc := NewMockCollector(clock)
	mc.SetEvents([]models.StockEvent{{ID: 1, CreatedAt: now}})
	mc.SetSnapshot(&models.StockSnapshot{ID: 1, UnreservedStock: 10})

	cc := NewCachedCollector(mc, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cc.StockHistory(ctx, 90)
		require.NoError(t, err)
		_, err = cc.LatestSnapshot(ctx)
		require.NoError(t, err)
		_, err = cc.Orders(ctx, 180)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mc.Calls("stock_history"))
	assert.Equal(t, 1, mc.Calls("stock_snapshot"))
	assert.Equal(t, 1, mc.Calls("orders"))

	_, err := cc.StockHistory(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, mc.Calls("stock_history"))

	cc.Purge()
	_, err = cc.StockHistory(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, 3, mc.Calls("stock_history"))
}

func TestCachedCollector_DoesNotCacheMisses(t *testing.T) {
	mc := NewMockCollector(clock)
	cc := NewCachedCollector(mc, 8, time.Minute)
	ctx := context.Background()

	s, err := cc.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	mc.SetSnapshot(&models.StockSnapshot{ID: 2})
	s, err = cc.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.ID)

	mc.SetShouldFail(true, errors.New("down"))
	cc.Purge()
	_, err = cc.StockHistory(ctx, 90)
	assert.Error(t, err)
	mc.SetShouldFail(false, nil)
	_, err = cc.StockHistory(ctx, 90)
	assert.NoError(t, err)
}

func TestCachedCollector_Expires(t *testing.T) {
	mc := NewMockCollector(clock)
	cc := NewCachedCollector(mc, 8, 20*time.Millisecond)
	ctx := context.Background()

	_, err := cc.Orders(ctx, 30)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = cc.Orders(ctx, 30)
	require.NoError(t, err)

	assert.Equal(t, 2, mc.Calls("orders"))
}
