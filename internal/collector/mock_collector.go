package collector

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// MockCollector serves fixed data from memory and applies the same day
// windows as the database collector.
type MockCollector struct {
	mu           sync.RWMutex
	events       []models.StockEvent
	orders       []models.Order
	snapshot     *models.StockSnapshot
	now          func() time.Time
	shouldFail   bool
	failureError error
	calls        map[string]int
}

func NewMockCollector(now func() time.Time) *MockCollector {
	if now == nil {
		now = time.Now
	}
	return &MockCollector{now: now, calls: make(map[string]int)}
}

func (c *MockCollector) SetEvents(events []models.StockEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
}

func (c *MockCollector) SetOrders(orders []models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = orders
}

func (c *MockCollector) SetSnapshot(s *models.StockSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = s
}

func (c *MockCollector) SetShouldFail(shouldFail bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldFail = shouldFail
	c.failureError = err
}

// Calls reports how many times op was requested.
func (c *MockCollector) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

func (c *MockCollector) StockHistory(ctx context.Context, days int) ([]models.StockEvent, error) {
	if err := c.begin("stock_history"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	from := WindowStart(c.now(), days)
	var out []models.StockEvent
	for _, e := range c.events {
		if from.IsZero() || !e.CreatedAt.Before(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *MockCollector) LatestSnapshot(ctx context.Context) (*models.StockSnapshot, error) {
	if err := c.begin("stock_snapshot"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, nil
}

func (c *MockCollector) Orders(ctx context.Context, days int) ([]models.Order, error) {
	if err := c.begin("orders"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	from := WindowStart(c.now(), days)
	var out []models.Order
	for _, o := range c.orders {
		if from.IsZero() || !o.CreatedAt.Before(from) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *MockCollector) begin(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	if c.shouldFail {
		return c.failureError
	}
	return nil
}

func (c *MockCollector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.shouldFail {
		return c.failureError
	}
	return nil
}

func (c *MockCollector) Close() error {
	return nil
}
