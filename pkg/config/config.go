package config

import (
	"fmt"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/database"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	API        APIConfig        `mapstructure:"api"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes the upstream inventory database. URL, when set,
// takes precedence over the individual fields.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

func (d DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		URL:             d.URL,
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		User:            d.User,
		Password:        d.Password,
		MaxConnections:  d.MaxConnections,
		SSLMode:         d.SSLMode,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}

type CollectorConfig struct {
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CacheTTL       time.Duration        `mapstructure:"cache_ttl"`
	CacheSize      int                  `mapstructure:"cache_size"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ForecastConfig struct {
	Timezone            string           `mapstructure:"timezone"`
	OutputDir           string           `mapstructure:"output_dir"`
	TrainDays           int              `mapstructure:"train_days"`
	HistoryDays         int              `mapstructure:"history_days"`
	PatternDays         int              `mapstructure:"pattern_days"`
	AverageWindow       int              `mapstructure:"average_window"`
	DefaultForecastDays int              `mapstructure:"default_forecast_days"`
	TopFeatures         int              `mapstructure:"top_features"`
	Seasonal            SeasonalConfig   `mapstructure:"seasonal"`
	Regression          RegressionConfig `mapstructure:"regression"`
}

// Location resolves Timezone. It is only valid after Validate succeeded.
func (f ForecastConfig) Location() *time.Location {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (f ForecastConfig) ModelsDir() string { return f.OutputDir + "/models" }
func (f ForecastConfig) PlotsDir() string  { return f.OutputDir + "/plots" }
func (f ForecastConfig) DataDir() string   { return f.OutputDir + "/data" }

type SeasonalConfig struct {
	Changepoints          int     `mapstructure:"changepoints"`
	ChangepointRange      float64 `mapstructure:"changepoint_range"`
	ChangepointPriorScale float64 `mapstructure:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `mapstructure:"seasonality_prior_scale"`
	IntervalWidth         float64 `mapstructure:"interval_width"`
}

type RegressionConfig struct {
	Trees           int     `mapstructure:"trees"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf"`
	Seed            int64   `mapstructure:"seed"`
	TestFraction    float64 `mapstructure:"test_fraction"`
}

type APIConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	TrainRateLimit float64       `mapstructure:"train_rate_limit"`
	TrainRateBurst int           `mapstructure:"train_rate_burst"`
	CORS           CORSConfig    `mapstructure:"cors"`
}

func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// RedisConfig enables the cross-process training lock.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type SchedulerConfig struct {
	RetrainCron    string        `mapstructure:"retrain_cron"`
	RetrainTimeout time.Duration `mapstructure:"retrain_timeout"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
