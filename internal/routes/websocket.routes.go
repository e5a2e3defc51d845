package routes

import (
	"github.com/Shivendrahari/SignalSync/internal/controllers"
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes mounts the dashboard push channel
func RegisterWebSocketRoutes(r *gin.Engine, session gin.HandlerFunc, ws *controllers.WebSocketController) {
	r.GET("/ws", session, ws.Handle)
}
