package controllers

import (
	"net/http"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/Shivendrahari/SignalSync/internal/services"
	"github.com/gin-gonic/gin"
)

// PerformanceController serves the embedded performance API
type PerformanceController struct {
	service *services.PerformanceService
}

// NewPerformanceController creates the controller
func NewPerformanceController(service *services.PerformanceService) *PerformanceController {
	return &PerformanceController{service: service}
}

// Query handles POST /api/performance-data/
func (pc *PerformanceController) Query(c *gin.Context) {
	var req models.PerformanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := pc.service.Query(c.Request.Context(), req)
	if err != nil {
		if services.IsUserError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("[API] Performance query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load performance data"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Devices handles GET /api/devices
func (pc *PerformanceController) Devices(c *gin.Context) {
	devices, err := pc.service.Devices(c.Request.Context())
	if err != nil {
		logger.Error("[API] Listing devices failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list devices"})
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}
