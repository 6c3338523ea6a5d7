package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type StockHistoryRepository struct {
	db *sql.DB
}

func NewStockHistoryRepository(db *sql.DB) *StockHistoryRepository {
	return &StockHistoryRepository{db: db}
}

// GetSince returns non-deleted stock movements created at or after since,
// newest first. A zero since returns the full history.
func (r *StockHistoryRepository) GetSince(ctx context.Context, since time.Time) ([]models.StockEvent, error) {
	query := `
		SELECT "id", "stockId", "action", "quantity", "newStock", "description", "createdAt", "createdBy"
		FROM "stockHistory"
		WHERE "deleted" = false`

	var args []interface{}
	if !since.IsZero() {
		query += ` AND "createdAt" >= $1`
		args = append(args, since)
	}
	query += ` ORDER BY "createdAt" DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.StockEvent
	for rows.Next() {
		var e models.StockEvent
		var action string
		err := rows.Scan(&e.ID, &e.StockID, &action, &e.Quantity, &e.NewStock, &e.Description, &e.CreatedAt, &e.CreatedBy)
		if err != nil {
			return nil, err
		}
		e.Action = models.StockAction(action)
		events = append(events, e)
	}

	return events, rows.Err()
}
