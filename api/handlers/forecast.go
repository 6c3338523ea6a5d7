package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/stock-forecaster/pkg/models"
	"github.com/OldStager01/stock-forecaster/pkg/validation"
)

// ForecastService runs the pipelines behind the forecasting endpoints.
type ForecastService interface {
	TrainModels(ctx context.Context, days int) (*models.TrainingReport, error)
	PredictStockUsage(ctx context.Context, days int) (*models.PredictionReport, error)
	AnalyzePatterns(ctx context.Context) (*models.PatternReport, error)
	FeatureImportance(ctx context.Context) (*models.ImportanceReport, error)
}

type ForecastHandler struct {
	service ForecastService
}

func NewForecastHandler(service ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// Train handles POST /train. The body is optional.
func (h *ForecastHandler) Train(c *gin.Context) {
	var body validation.TrainBody
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, fmt.Errorf("%w: invalid request body: %v", models.ErrInvalidParameter, err))
			return
		}
	}
	days, err := validation.ParseTrainDays(body)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.service.TrainModels(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Predict handles GET /predict-stock-usage?days=N.
func (h *ForecastHandler) Predict(c *gin.Context) {
	days, err := validation.ParseForecastDays(c.Query("days"))
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.service.PredictStockUsage(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ForecastHandler) AnalyzePatterns(c *gin.Context) {
	report, err := h.service.AnalyzePatterns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ForecastHandler) FeatureImportance(c *gin.Context) {
	report, err := h.service.FeatureImportance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
