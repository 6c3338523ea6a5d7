// Package collector fetches stock movements, snapshots and orders from the
// upstream store.
package collector

import (
	"context"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// Collector is the read-only view of the inventory database.
type Collector interface {
	// StockHistory returns non-deleted stock movements from the last days
	// days. days <= 0 means the full history.
	StockHistory(ctx context.Context, days int) ([]models.StockEvent, error)

	// LatestSnapshot returns the newest daily stock record, or nil if none.
	LatestSnapshot(ctx context.Context) (*models.StockSnapshot, error)

	// Orders returns non-deleted orders from the last days days.
	Orders(ctx context.Context, days int) ([]models.Order, error)

	// HealthCheck verifies the collector can reach its data source
	HealthCheck(ctx context.Context) error

	Close() error
}

// WindowStart returns midnight of the day that lies days days before now.
// days <= 0 yields the zero time, meaning no lower bound.
func WindowStart(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	from := now.AddDate(0, 0, -days)
	return time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
}
