package routes

import (
	"net/http"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/metrics"
	"github.com/gin-gonic/gin"
)

// RegisterMonitorRoutes exposes prometheus metrics and a liveness probe
func RegisterMonitorRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})
}
