package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/stock-forecaster/api/handlers"
	"github.com/OldStager01/stock-forecaster/api/middleware"
	"github.com/OldStager01/stock-forecaster/internal/metrics"
	"github.com/OldStager01/stock-forecaster/pkg/config"
)

const maxRequestBytes = 1 << 20

// Deps are the collaborators the routes are served from. Plots, Metrics and
// Health entries are optional.
type Deps struct {
	Service handlers.ForecastService
	Plots   handlers.PlotStore
	Health  map[string]handlers.HealthChecker
	Metrics *metrics.Metrics
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	prometheus config.PrometheusConfig
	deps       Deps
}

func NewServer(cfg config.APIConfig, prom config.PrometheusConfig, deps Deps) *Server {
	s := &Server{
		router:     gin.New(),
		config:     cfg,
		prometheus: prom,
		deps:       deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	cors := middleware.DefaultCORSConfig()
	if len(s.config.CORS.AllowedOrigins) > 0 {
		cors.AllowOrigins = s.config.CORS.AllowedOrigins
	}
	if len(s.config.CORS.AllowedMethods) > 0 {
		cors.AllowMethods = s.config.CORS.AllowedMethods
	}
	if len(s.config.CORS.AllowedHeaders) > 0 {
		cors.AllowHeaders = s.config.CORS.AllowedHeaders
	}
	if len(s.config.CORS.ExposedHeaders) > 0 {
		cors.ExposeHeaders = s.config.CORS.ExposedHeaders
	}
	cors.AllowCredentials = s.config.CORS.AllowCredentials

	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger(s.deps.Metrics))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(cors))
	s.router.Use(middleware.RequestSizeLimit(maxRequestBytes))
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, s.config.RateBurst)))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.Health)
	forecastHandler := handlers.NewForecastHandler(s.deps.Service)
	plotHandler := handlers.NewPlotHandler(s.deps.Plots)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.prometheus.Enabled {
		path := s.prometheus.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(s.deps.Metrics.Handler()))
	}

	trainLimiter := middleware.NewRateLimiter(s.config.TrainRateLimit, s.config.TrainRateBurst)
	s.router.POST("/train", middleware.RateLimit(trainLimiter), forecastHandler.Train)
	s.router.GET("/predict-stock-usage", forecastHandler.Predict)
	s.router.GET("/analyze-patterns", forecastHandler.AnalyzePatterns)
	s.router.GET("/feature-importance", forecastHandler.FeatureImportance)
	s.router.GET("/plots/:name", plotHandler.Get)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.idleTimeout(),
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) idleTimeout() time.Duration {
	if s.config.IdleTimeout > 0 {
		return s.config.IdleTimeout
	}
	return 60 * time.Second
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
