package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// CachedCollector memoizes upstream reads for a short TTL so that a train
// followed by a prediction does not hit the database twice.
type CachedCollector struct {
	collector Collector
	history   *expirable.LRU[int, []models.StockEvent]
	orders    *expirable.LRU[int, []models.Order]
	snapshot  *expirable.LRU[string, *models.StockSnapshot]
}

func NewCachedCollector(c Collector, size int, ttl time.Duration) *CachedCollector {
	if size <= 0 {
		size = 32
	}
	return &CachedCollector{
		collector: c,
		history:   expirable.NewLRU[int, []models.StockEvent](size, nil, ttl),
		orders:    expirable.NewLRU[int, []models.Order](size, nil, ttl),
		snapshot:  expirable.NewLRU[string, *models.StockSnapshot](1, nil, ttl),
	}
}

func (c *CachedCollector) StockHistory(ctx context.Context, days int) ([]models.StockEvent, error) {
	if events, ok := c.history.Get(days); ok {
		return events, nil
	}
	events, err := c.collector.StockHistory(ctx, days)
	if err != nil {
		return nil, err
	}
	c.history.Add(days, events)
	return events, nil
}

func (c *CachedCollector) LatestSnapshot(ctx context.Context) (*models.StockSnapshot, error) {
	if s, ok := c.snapshot.Get("latest"); ok {
		return s, nil
	}
	s, err := c.collector.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if s != nil {
		c.snapshot.Add("latest", s)
	}
	return s, nil
}

func (c *CachedCollector) Orders(ctx context.Context, days int) ([]models.Order, error) {
	if orders, ok := c.orders.Get(days); ok {
		return orders, nil
	}
	orders, err := c.collector.Orders(ctx, days)
	if err != nil {
		return nil, err
	}
	c.orders.Add(days, orders)
	return orders, nil
}

// Purge drops every cached read.
func (c *CachedCollector) Purge() {
	c.history.Purge()
	c.orders.Purge()
	c.snapshot.Purge()
}

func (c *CachedCollector) HealthCheck(ctx context.Context) error {
	if err := c.collector.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cached collector: %w", err)
	}
	return nil
}

func (c *CachedCollector) Close() error {
	return c.collector.Close()
}
