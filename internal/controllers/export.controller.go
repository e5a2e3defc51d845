package controllers

import (
	"fmt"
	"net/http"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/services"
	"github.com/gin-gonic/gin"
)

// ExportController streams the dashboard's downloads
type ExportController struct{}

// NewExportController creates the controller
func NewExportController() *ExportController {
	return &ExportController{}
}

func sendDownload(c *gin.Context, dl *services.Download, err error) {
	if err != nil {
		if services.IsUserError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("[EXPORT] Export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	c.Data(http.StatusOK, dl.ContentType, dl.Data)
}

// Image downloads the chart as ?format=png|jpg
func (ec *ExportController) Image(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	dl, err := d.ExportImage(c.DefaultQuery("format", "png"))
	sendDownload(c, dl, err)
}

// ChartPNG serves the current chart inline for the page
func (ec *ExportController) ChartPNG(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	dl, err := d.ExportImage("png")
	if err != nil {
		sendDownload(c, nil, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, dl.ContentType, dl.Data)
}

// PDF downloads the chart report
func (ec *ExportController) PDF(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	dl, err := d.ExportPDF()
	sendDownload(c, dl, err)
}

// ChartCSV downloads every loaded sample
func (ec *ExportController) ChartCSV(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	dl, err := d.ExportChartCSV(c.Request.Context())
	sendDownload(c, dl, err)
}

// TableCSV downloads the rendered table
func (ec *ExportController) TableCSV(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	dl, err := d.ExportTableCSV()
	sendDownload(c, dl, err)
}
