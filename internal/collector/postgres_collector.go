package collector

import (
	"context"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/database"
	"github.com/OldStager01/stock-forecaster/pkg/database/queries"
	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type PostgresCollector struct {
	db       *database.DB
	history  *queries.StockHistoryRepository
	stock    *queries.StockRepository
	orders   *queries.OrderRepository
	location *time.Location
	now      func() time.Time
}

func NewPostgresCollector(db *database.DB, loc *time.Location) *PostgresCollector {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresCollector{
		db:       db,
		history:  queries.NewStockHistoryRepository(db.DB),
		stock:    queries.NewStockRepository(db.DB),
		orders:   queries.NewOrderRepository(db.DB),
		location: loc,
		now:      time.Now,
	}
}

func (c *PostgresCollector) StockHistory(ctx context.Context, days int) ([]models.StockEvent, error) {
	return c.history.GetSince(ctx, WindowStart(c.now().In(c.location), days))
}

func (c *PostgresCollector) LatestSnapshot(ctx context.Context) (*models.StockSnapshot, error) {
	return c.stock.GetLatest(ctx)
}

func (c *PostgresCollector) Orders(ctx context.Context, days int) ([]models.Order, error) {
	return c.orders.GetSince(ctx, WindowStart(c.now().In(c.location), days))
}

// HealthCheck pings the database and verifies the source tables exist.
func (c *PostgresCollector) HealthCheck(ctx context.Context) error {
	if err := c.db.HealthCheck(ctx); err != nil {
		return err
	}
	return c.db.CheckTables(ctx, database.SourceTables...)
}

func (c *PostgresCollector) Close() error {
	return c.db.Close()
}
