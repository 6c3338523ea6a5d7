package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OldStager01/stock-forecaster/internal/logger"
)

var (
	trainDays   int
	predictDays int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train both forecasters once and print the training report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(func(ctx context.Context, a *app) (interface{}, error) {
			return a.orchestrator.TrainModels(ctx, trainDays)
		})
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast stock usage and print the prediction report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(func(ctx context.Context, a *app) (interface{}, error) {
			return a.orchestrator.PredictStockUsage(ctx, predictDays)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze hourly, weekly and monthly activity patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(func(ctx context.Context, a *app) (interface{}, error) {
			return a.orchestrator.AnalyzePatterns(ctx)
		})
	},
}

func init() {
	trainCmd.Flags().IntVar(&trainDays, "days", 0, "days of history to train on (default from config)")
	predictCmd.Flags().IntVar(&predictDays, "days", 0, "days to forecast (default from config)")
}

// runOnce builds the app, runs fn until it finishes or the process is
// interrupted, and prints its result as JSON.
func runOnce(fn func(ctx context.Context, a *app) (interface{}, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Errorf("Failed to encode result: %v", err)
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
