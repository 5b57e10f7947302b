package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"workpulse/pkg/logger"
)

func newRequestIDRouter(captured *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		*captured = logger.TraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var traceID string
	r := newRequestIDRouter(&traceID)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, w.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsInboundHeader(t *testing.T) {
	var traceID string
	r := newRequestIDRouter(&traceID)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-abc-123", traceID)
	assert.Equal(t, "req-abc-123", w.Header().Get("X-Request-ID"))
}
