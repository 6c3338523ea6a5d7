package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "FORECASTER"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/stock-forecaster")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional unprefixed variable wins over the prefixed one.
	if err := v.BindEnv("database.url", "DATABASE_URL", envPrefix+"_DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind database url: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stock-forecaster")
	v.SetDefault("app.mode", "production")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "inventory")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.ping_timeout", "10s")

	v.SetDefault("collector.timeout", "30s")
	v.SetDefault("collector.retry_attempts", 3)
	v.SetDefault("collector.retry_delay", "1s")
	v.SetDefault("collector.cache_ttl", "0s")
	v.SetDefault("collector.cache_size", 32)
	v.SetDefault("collector.circuit_breaker.max_failures", 5)
	v.SetDefault("collector.circuit_breaker.timeout", "30s")

	v.SetDefault("forecast.timezone", "UTC")
	v.SetDefault("forecast.output_dir", "outputs")
	v.SetDefault("forecast.train_days", 90)
	v.SetDefault("forecast.history_days", 90)
	v.SetDefault("forecast.pattern_days", 180)
	v.SetDefault("forecast.average_window", 30)
	v.SetDefault("forecast.default_forecast_days", 30)
	v.SetDefault("forecast.top_features", 20)
	v.SetDefault("forecast.seasonal.changepoints", 25)
	v.SetDefault("forecast.seasonal.changepoint_range", 0.8)
	v.SetDefault("forecast.seasonal.changepoint_prior_scale", 0.05)
	v.SetDefault("forecast.seasonal.seasonality_prior_scale", 10.0)
	v.SetDefault("forecast.seasonal.interval_width", 0.8)
	v.SetDefault("forecast.regression.trees", 100)
	v.SetDefault("forecast.regression.max_depth", 10)
	v.SetDefault("forecast.regression.min_samples_split", 5)
	v.SetDefault("forecast.regression.min_samples_leaf", 2)
	v.SetDefault("forecast.regression.seed", 42)
	v.SetDefault("forecast.regression.test_fraction", 0.2)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "5m")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.request_timeout", "5m")
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.rate_burst", 20)
	v.SetDefault("api.train_rate_limit", 0.1)
	v.SetDefault("api.train_rate_burst", 2)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Content-Type", "X-Trace-ID"})
	v.SetDefault("api.cors.exposed_headers", []string{"X-Trace-ID"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10m")

	v.SetDefault("scheduler.retrain_cron", "")
	v.SetDefault("scheduler.retrain_timeout", "30m")

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")
}
