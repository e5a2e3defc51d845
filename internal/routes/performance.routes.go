package routes

import (
	"github.com/Shivendrahari/SignalSync/internal/controllers"
	"github.com/gin-gonic/gin"
)

// RegisterPerformanceRoutes mounts the embedded performance API
func RegisterPerformanceRoutes(r *gin.Engine, csrf gin.HandlerFunc, perf *controllers.PerformanceController) {
	api := r.Group("/api")
	{
		api.POST("/performance-data/", csrf, perf.Query)
		api.GET("/devices", perf.Devices)
	}
}
