package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/stock-forecaster/internal/collector"
	"github.com/OldStager01/stock-forecaster/internal/logger"
	"github.com/OldStager01/stock-forecaster/internal/metrics"
	"github.com/OldStager01/stock-forecaster/internal/simulator"
)

var (
	simDays     int
	simUsage    float64
	simStock    float64
	simPattern  string
	simSeed     int64
	simForecast int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Train and predict on synthetic history without a database",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simDays, "history", 180, "days of synthetic history")
	simulateCmd.Flags().Float64Var(&simUsage, "usage", 10, "base daily usage")
	simulateCmd.Flags().Float64Var(&simStock, "stock", 500, "restock quantity")
	simulateCmd.Flags().StringVar(&simPattern, "pattern", "weekly", "usage pattern: steady, weekly, seasonal, growth, random")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 42, "random seed")
	simulateCmd.Flags().IntVar(&simForecast, "days", 0, "days to forecast (default from config)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pattern, err := simulator.ParsePattern(simPattern, simSeed)
	if err != nil {
		return err
	}
	ds := simulator.Generate(simulator.Config{
		Days:           simDays,
		BaseDailyUsage: simUsage,
		InitialStock:   simStock,
		Pattern:        pattern,
		Seed:           simSeed,
		Location:       cfg.Forecast.Location(),
	})
	logger.WithFields(map[string]interface{}{
		"pattern": pattern.Name(),
		"events":  len(ds.Events),
		"orders":  len(ds.Orders),
	}).Info("Generated synthetic history")

	source := collector.NewMockCollector(time.Now)
	source.SetEvents(ds.Events)
	source.SetOrders(ds.Orders)
	source.SetSnapshot(ds.Snapshot)

	a := &app{cfg: cfg, metrics: metrics.New()}
	if err := a.build(source); err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.orchestrator.TrainModels(ctx, simDays); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	report, err := a.orchestrator.PredictStockUsage(ctx, simForecast)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	return printJSON(report)
}
