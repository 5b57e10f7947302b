package handler

import (
	"net/http"
	"strconv"

	"workpulse/internal/service"
	"workpulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LogHandler serves the append-only activity log
type LogHandler struct {
	lifecycleService *service.LifecycleService
}

// NewLogHandler creates a new log handler
func NewLogHandler(lifecycleService *service.LifecycleService) *LogHandler {
	return &LogHandler{
		lifecycleService: lifecycleService,
	}
}

// ListRecent gets the most recent log entries
// @Summary Get recent logs
// @Description Get the newest log entries, optionally filtered by script name
// @Tags logs
// @Produce json
// @Param script query string false "Filter by script name"
// @Param limit query int false "Maximum entries to return (default 100)"
// @Success 200 {array} model.ScriptLogEntry
// @Router /v1/logs [get]
func (h *LogHandler) ListRecent(c *gin.Context) {
	ctx := c.Request.Context()
	script := c.Query("script")

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.lifecycleService.ListRecentLogs(ctx, script, limit)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to get recent logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}
