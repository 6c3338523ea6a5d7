package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/stock-forecaster/internal/plots"
)

// PlotStore resolves plot file names to paths on disk.
type PlotStore interface {
	Path(name string) (string, error)
}

type PlotHandler struct {
	store PlotStore
}

func NewPlotHandler(store PlotStore) *PlotHandler {
	return &PlotHandler{store: store}
}

// Get handles GET /plots/:name.
func (h *PlotHandler) Get(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Plot not found"})
		return
	}

	path, err := h.store.Path(c.Param("name"))
	if errors.Is(err, plots.ErrPlotNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Plot not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
