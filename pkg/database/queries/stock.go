package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type StockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

const stockColumns = `"id", "date", "initialStock", "currentStock", "reservedStock", "unreservedStock", "lastUpdated"`

// GetLatest returns the most recent daily snapshot, or nil when the table
// is empty.
func (r *StockRepository) GetLatest(ctx context.Context) (*models.StockSnapshot, error) {
	query := `SELECT ` + stockColumns + ` FROM "stock" ORDER BY "date" DESC LIMIT 1`

	var s models.StockSnapshot
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ID, &s.Date, &s.InitialStock, &s.CurrentStock, &s.ReservedStock, &s.UnreservedStock, &s.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *StockRepository) GetSince(ctx context.Context, since time.Time) ([]models.StockSnapshot, error) {
	query := `SELECT ` + stockColumns + `
		FROM "stock"
		WHERE "date" >= $1
		ORDER BY "date" DESC`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.StockSnapshot
	for rows.Next() {
		var s models.StockSnapshot
		err := rows.Scan(&s.ID, &s.Date, &s.InitialStock, &s.CurrentStock, &s.ReservedStock, &s.UnreservedStock, &s.LastUpdated)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}
