// Package simulator generates synthetic stock movement, order and snapshot
// data for running the pipelines without a database.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type Config struct {
	Days           int
	BaseDailyUsage float64
	InitialStock   float64
	ReservedStock  float64
	Pattern        Pattern
	Seed           int64
	Location       *time.Location
	Now            func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Days <= 0 {
		c.Days = 180
	}
	if c.BaseDailyUsage <= 0 {
		c.BaseDailyUsage = 10
	}
	if c.InitialStock <= 0 {
		c.InitialStock = 500
	}
	if c.Pattern == nil {
		c.Pattern = SteadyPattern{}
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Dataset is the content of one simulated inventory.
type Dataset struct {
	Events   []models.StockEvent
	Orders   []models.Order
	Snapshot *models.StockSnapshot
}

// Generate simulates Days days ending yesterday. Daily usage is split into
// up to three sales during opening hours; stock is topped up whenever it
// falls below a week of base usage.
func Generate(cfg Config) Dataset {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	now := cfg.Now().In(cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location)
	start := today.AddDate(0, 0, -cfg.Days)

	var ds Dataset
	stock := cfg.InitialStock
	eventID, orderID := 1, 1
	reorderLevel := 7 * cfg.BaseDailyUsage

	emit := func(action models.StockAction, qty float64, at time.Time) {
		if action.IsDepletion() {
			stock -= qty
		} else {
			stock += qty
		}
		ds.Events = append(ds.Events, models.StockEvent{
			ID:        eventID,
			StockID:   1,
			Action:    action,
			Quantity:  qty,
			NewStock:  stock,
			CreatedAt: at,
		})
		eventID++
	}

	for i := 0; i < cfg.Days; i++ {
		day := start.AddDate(0, 0, i)
		usage := math.Round(cfg.BaseDailyUsage * cfg.Pattern.Factor(day, i))
		if usage <= 0 {
			continue
		}

		if stock < usage || stock < reorderLevel {
			emit(models.StockActionAdd, cfg.InitialStock, day.Add(7*time.Hour))
		}

		sales := 1 + rng.Intn(3)
		remaining := usage
		for s := 0; s < sales && remaining > 0; s++ {
			qty := remaining
			if s < sales-1 {
				qty = math.Max(1, math.Floor(remaining/float64(sales-s)))
			}
			at := day.Add(time.Duration(9+rng.Intn(10))*time.Hour + time.Duration(rng.Intn(60))*time.Minute)
			emit(models.StockActionSell, qty, at)

			status := "completed"
			ds.Orders = append(ds.Orders, models.Order{
				ID:           orderID,
				CustomerName: "simulated",
				Quantity:     int(qty),
				PickupTime:   at.Add(2 * time.Hour),
				Status:       &status,
				TotalAmount:  qty * 2.5,
				CreatedAt:    at.Add(-24 * time.Hour),
			})
			orderID++
			remaining -= qty
		}
	}

	updated := now
	ds.Snapshot = &models.StockSnapshot{
		ID:              1,
		Date:            today,
		InitialStock:    cfg.InitialStock,
		CurrentStock:    stock,
		ReservedStock:   cfg.ReservedStock,
		UnreservedStock: math.Max(0, stock-cfg.ReservedStock),
		LastUpdated:     &updated,
	}

	return ds
}
