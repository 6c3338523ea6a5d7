package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/internal/resilience"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// ResilientCollector bounds every upstream call with a timeout and a fixed
// number of attempts behind a circuit breaker. Failures surface as
// models.ErrUpstreamFetch.
type ResilientCollector struct {
	collector      Collector
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
	timeout        time.Duration
	onFailure      func(op string, err error)
}

type ResilientCollectorConfig struct {
	Collector     Collector
	MaxFailures   int
	BreakerReset  time.Duration
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
	OnFailure     func(op string, err error)
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "upstream",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.BreakerReset,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientCollector{
		collector:      cfg.Collector,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
		timeout:        cfg.Timeout,
		onFailure:      cfg.OnFailure,
	}
}

func (c *ResilientCollector) StockHistory(ctx context.Context, days int) ([]models.StockEvent, error) {
	var events []models.StockEvent
	err := c.do(ctx, "stock_history", func(ctx context.Context) error {
		var err error
		events, err = c.collector.StockHistory(ctx, days)
		return err
	})
	return events, err
}

func (c *ResilientCollector) LatestSnapshot(ctx context.Context) (*models.StockSnapshot, error) {
	var snapshot *models.StockSnapshot
	err := c.do(ctx, "stock_snapshot", func(ctx context.Context) error {
		var err error
		snapshot, err = c.collector.LatestSnapshot(ctx)
		return err
	})
	return snapshot, err
}

func (c *ResilientCollector) Orders(ctx context.Context, days int) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, "orders", func(ctx context.Context) error {
		var err error
		orders, err = c.collector.Orders(ctx, days)
		return err
	})
	return orders, err
}

func (c *ResilientCollector) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := c.circuitBreaker.Execute(func() error {
		return resilience.Retry(ctx, c.retryAttempts, c.retryDelay, c.timeout, fn, func(attempt int, err error) {
			logger.WithField("op", op).Warnf("Fetch attempt %d/%d failed: %v", attempt, c.retryAttempts, err)
		})
	})

	if err != nil {
		if c.onFailure != nil {
			c.onFailure(op, err)
		}
		return fmt.Errorf("%w: %s: %v", models.ErrUpstreamFetch, op, err)
	}

	return nil
}

func (c *ResilientCollector) HealthCheck(ctx context.Context) error {
	return c.collector.HealthCheck(ctx)
}

func (c *ResilientCollector) Close() error {
	return c.collector.Close()
}

func (c *ResilientCollector) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}

func (c *ResilientCollector) ResetCircuit() {
	c.circuitBreaker.Reset()
}
