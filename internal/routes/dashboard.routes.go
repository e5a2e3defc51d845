package routes

import (
	"github.com/Shivendrahari/SignalSync/internal/controllers"
	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes mounts the page, its filter commands and exports
// behind the session middleware. Mutating commands also require the CSRF
// header.
func RegisterDashboardRoutes(r *gin.Engine, session, csrf gin.HandlerFunc, dash *controllers.DashboardController, exports *controllers.ExportController) {
	r.GET("/", session, dash.Page)

	d := r.Group("/dashboard", session)
	{
		d.GET("/state", dash.State)
		d.GET("/chart.png", exports.ChartPNG)

		cmd := d.Group("", csrf)
		cmd.PUT("/devices", dash.SetDevices)
		cmd.DELETE("/devices/:id", dash.RemoveDevice)
		cmd.PUT("/metric", dash.SetMetric)
		cmd.PUT("/time-range", dash.SetTimeRange)
		cmd.PUT("/custom-range", dash.SetCustomRange)
		cmd.POST("/refresh", dash.Refresh)

		exp := d.Group("/export")
		exp.GET("/image", exports.Image)
		exp.GET("/pdf", exports.PDF)
		exp.GET("/chart.csv", exports.ChartCSV)
		exp.GET("/table.csv", exports.TableCSV)
	}
}
