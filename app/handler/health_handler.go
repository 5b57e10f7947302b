package handler

import (
	"net/http"
	"time"

	"workpulse/internal/model"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the unauthenticated liveness endpoint
type HealthHandler struct {
	workerNames []string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(workerNames []string) *HealthHandler {
	return &HealthHandler{
		workerNames: workerNames,
	}
}

// Health reports process liveness
// @Summary Health check
// @Description Report process time and the configured worker names
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC(),
		Workers: h.workerNames,
	})
}
