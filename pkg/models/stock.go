package models

import "time"

type StockAction string

const (
	StockActionAdd    StockAction = "add"
	StockActionSell   StockAction = "sell"
	StockActionRemove StockAction = "remove"
	StockActionAdjust StockAction = "adjust"
)

// IsDepletion reports whether the action consumes stock.
func (a StockAction) IsDepletion() bool {
	return a == StockActionSell || a == StockActionRemove
}

// StockEvent is one row of the stock movement log.
type StockEvent struct {
	ID          int         `json:"id"`
	StockID     int         `json:"stock_id"`
	Action      StockAction `json:"action"`
	Quantity    float64     `json:"quantity"`
	NewStock    float64     `json:"new_stock"`
	Description *string     `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CreatedBy   *string     `json:"created_by,omitempty"`
}

// StockSnapshot is the stock level recorded for one day.
type StockSnapshot struct {
	ID              int        `json:"id"`
	Date            time.Time  `json:"date"`
	InitialStock    float64    `json:"initial_stock"`
	CurrentStock    float64    `json:"current_stock"`
	ReservedStock   float64    `json:"reserved_stock"`
	UnreservedStock float64    `json:"unreserved_stock"`
	LastUpdated     *time.Time `json:"last_updated,omitempty"`
}

type Order struct {
	ID           int        `json:"id"`
	CustomerName string     `json:"customer_name"`
	Quantity     int        `json:"quantity"`
	PickupTime   time.Time  `json:"pickup_time"`
	Status       *string    `json:"status,omitempty"`
	TotalAmount  float64    `json:"total_amount"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
