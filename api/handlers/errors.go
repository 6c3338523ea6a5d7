package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps invalid parameters to 400 and everything else to 500.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	if errors.Is(err, models.ErrInvalidParameter) {
		status = http.StatusBadRequest
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
