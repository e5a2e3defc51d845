package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/middleware"
	"github.com/Shivendrahari/SignalSync/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// WebSocketController upgrades dashboard pages to a push channel
type WebSocketController struct {
	hub      *services.WebSocketHub
	upgrader websocket.Upgrader
	log      *logger.PrefixLogger
}

// NewWebSocketController accepts sockets from the page's own host or from
// one of allowedOrigins
func NewWebSocketController(hub *services.WebSocketHub, allowedOrigins []string) *WebSocketController {
	return &WebSocketController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(r.Header.Get("Origin"), r.Host, allowedOrigins)
			},
		},
		log: logger.WithPrefix("[WS] "),
	}
}

// Handle upgrades the request and streams the session's dashboard updates
func (wc *WebSocketController) Handle(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrSessionNotFound.Error()})
		return
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.log.Warn("Upgrade error: %v", err)
		return
	}

	if middleware.GlobalSecurityLogger != nil {
		middleware.GlobalSecurityLogger.LogWebSocketConnected(c.ClientIP(), sess.ID)
	}

	client := &services.ClientConnection{
		ID:        sess.ID + "-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		SessionID: sess.ID,
		Conn:      ws,
		Send:      make(chan services.WebSocketMessage, 256),
		Close:     make(chan bool),
	}

	// the current views go out first so a reconnecting page is not blank
	if sess.Dashboard != nil {
		snap := sess.Dashboard.Snapshot()
		client.Send <- services.WebSocketMessage{Type: services.MessageChart, Timestamp: time.Now(), Data: snap.Views.Chart}
		client.Send <- services.WebSocketMessage{Type: services.MessageSummary, Timestamp: time.Now(), Data: snap.Views.Summary}
		client.Send <- services.WebSocketMessage{Type: services.MessageTable, Timestamp: time.Now(), Data: snap.Views.Table}
		client.Send <- services.WebSocketMessage{Type: services.MessageLegend, Timestamp: time.Now(), Data: snap.Views.Legend}
	}

	wc.hub.Register(client)

	// the hub owns and closes client.Send, so readPump never writes to it
	pongs := make(chan struct{}, 1)
	go wc.readPump(client, pongs, c.ClientIP())
	go wc.writePump(client, pongs)
}

// readPump asks writePump to answer pings and detects the socket closing
func (wc *WebSocketController) readPump(client *services.ClientConnection, pongs chan<- struct{}, ip string) {
	defer func() {
		close(client.Close)
		wc.hub.Unregister(client.ID)
		client.Conn.Close()
		if middleware.GlobalSecurityLogger != nil {
			middleware.GlobalSecurityLogger.LogWebSocketDisconnected(ip, client.ID)
		}
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetPongHandler(func(string) error {
		return nil
	})

	for {
		var msg services.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wc.log.Warn("Read error: %v", err)
			}
			return
		}

		switch msg.Type {
		case services.MessagePing:
			select {
			case pongs <- struct{}{}:
			default:
			}
		case services.MessagePong:
		default:
			wc.log.Debug("Unknown message type from %s: %s", client.ID, msg.Type)
		}
	}
}

// writePump writes queued messages and pongs until the hub closes the send
// channel
func (wc *WebSocketController) writePump(client *services.ClientConnection, pongs <-chan struct{}) {
	defer client.Conn.Close()

	for {
		select {
		case <-pongs:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteJSON(services.WebSocketMessage{Type: services.MessagePong, Timestamp: time.Now()}); err != nil {
				return
			}

		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					wc.log.Warn("Write error: %v", err)
				}
				return
			}

		case <-client.Close:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
