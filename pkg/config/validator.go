package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}

	if c.Collector.Timeout <= 0 {
		errs = append(errs, errors.New("collector.timeout must be positive"))
	}
	if c.Collector.RetryAttempts <= 0 {
		errs = append(errs, errors.New("collector.retry_attempts must be positive"))
	}
	if c.Collector.CacheTTL < 0 {
		errs = append(errs, errors.New("collector.cache_ttl must not be negative"))
	}

	if _, err := time.LoadLocation(c.Forecast.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("forecast.timezone is invalid: %v", err))
	}
	if c.Forecast.OutputDir == "" {
		errs = append(errs, errors.New("forecast.output_dir is required"))
	}
	if c.Forecast.TrainDays < 1 || c.Forecast.TrainDays > 3650 {
		errs = append(errs, errors.New("forecast.train_days must be between 1 and 3650"))
	}
	if c.Forecast.DefaultForecastDays < 1 || c.Forecast.DefaultForecastDays > 365 {
		errs = append(errs, errors.New("forecast.default_forecast_days must be between 1 and 365"))
	}
	if c.Forecast.HistoryDays <= 0 || c.Forecast.PatternDays <= 0 || c.Forecast.AverageWindow <= 0 {
		errs = append(errs, errors.New("forecast history, pattern and average windows must be positive"))
	}
	if w := c.Forecast.Seasonal.IntervalWidth; w <= 0 || w >= 1 {
		errs = append(errs, errors.New("forecast.seasonal.interval_width must be between 0 and 1"))
	}
	if f := c.Forecast.Regression.TestFraction; f <= 0 || f >= 1 {
		errs = append(errs, errors.New("forecast.regression.test_fraction must be between 0 and 1"))
	}
	if c.Forecast.Regression.Trees <= 0 {
		errs = append(errs, errors.New("forecast.regression.trees must be positive"))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit < 0 || c.API.TrainRateLimit < 0 {
		errs = append(errs, errors.New("api rate limits must not be negative"))
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
		}
		if c.Redis.LockTTL <= 0 {
			errs = append(errs, errors.New("redis.lock_ttl must be positive"))
		}
	}

	if c.Scheduler.RetrainCron != "" {
		if _, err := cron.ParseStandard(c.Scheduler.RetrainCron); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.retrain_cron is invalid: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
