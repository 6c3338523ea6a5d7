package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetSince returns non-deleted orders created at or after since, newest
// first. A zero since returns every order.
func (r *OrderRepository) GetSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	query := `
		SELECT "id", "customerName", "quantity", "pickupTime", "status", "totalAmount", "createdAt", "updatedAt"
		FROM "orders"
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

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(&o.ID, &o.CustomerName, &o.Quantity, &o.PickupTime, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}
