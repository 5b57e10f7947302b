package handler

import (
	"errors"
	"fmt"
	"net/http"

	"workpulse/internal/service"
	"workpulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WorkerHandler handles worker lifecycle operations
type WorkerHandler struct {
	lifecycleService *service.LifecycleService
}

// NewWorkerHandler creates a new worker handler
func NewWorkerHandler(lifecycleService *service.LifecycleService) *WorkerHandler {
	return &WorkerHandler{
		lifecycleService: lifecycleService,
	}
}

// Start starts a configured worker
// @Summary Start worker
// @Description Transition a worker to running and begin its periodic activities
// @Tags worker
// @Produce json
// @Param name path string true "Worker name"
// @Success 200 {object} model.WorkerStatusRow
// @Failure 404 {object} map[string]string
// @Router /v1/workers/{name}/start [post]
func (h *WorkerHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	row, err := h.lifecycleService.Start(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrUnknownWorker) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown worker: %s", name)})
			return
		}
		logger.ErrorCtx(ctx, "failed to start worker %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, row)
}

// Stop stops a configured worker
// @Summary Stop worker
// @Description Cancel a worker's periodic activities and transition it to stopped
// @Tags worker
// @Produce json
// @Param name path string true "Worker name"
// @Success 200 {object} model.WorkerStatusRow
// @Failure 404 {object} map[string]string
// @Router /v1/workers/{name}/stop [post]
func (h *WorkerHandler) Stop(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	row, err := h.lifecycleService.Stop(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrUnknownWorker) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown worker: %s", name)})
			return
		}
		logger.ErrorCtx(ctx, "failed to stop worker %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, row)
}

// List gets all persisted worker status rows
// @Summary Get worker list
// @Description Get every persisted worker status row, ordered by worker name
// @Tags worker
// @Produce json
// @Success 200 {array} model.WorkerStatusRow
// @Router /v1/workers [get]
func (h *WorkerHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	rows, err := h.lifecycleService.ListStatuses(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to get worker list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rows)
}
