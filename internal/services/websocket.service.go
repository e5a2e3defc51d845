package services

import (
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/gorilla/websocket"
)

// Message types pushed to the browser
const (
	MessageLoading = "loading"
	MessageChart   = "chart"
	MessageSummary = "summary"
	MessageTable   = "table"
	MessageLegend  = "legend"
	MessageAlert   = "alert"
	MessageClear   = "clear"
	MessagePing    = "ping"
	MessagePong    = "pong"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// ClientConnection represents a connected WebSocket client
type ClientConnection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan WebSocketMessage
	Close     chan bool
}

type sessionMessage struct {
	sessionID string
	msg       WebSocketMessage
}

// WebSocketHub fans dashboard updates out to the sockets of each session
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	direct     chan sessionMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	heartbeat  time.Duration
	done       chan struct{}
	stopOnce   sync.Once
	log        *logger.PrefixLogger
}

// NewWebSocketHub starts a hub that pings every client each heartbeat
func NewWebSocketHub(heartbeat time.Duration) *WebSocketHub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	h := &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		direct:     make(chan sessionMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		heartbeat:  heartbeat,
		done:       make(chan struct{}),
		log:        logger.WithPrefix("[WS] "),
	}

	go h.run()

	return h
}

// run manages the hub's event loop
func (h *WebSocketHub) run() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Client connected: %s for session %s (total: %d)", client.ID, client.SessionID, total)

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Client disconnected: %s (total: %d)", clientID, total)

		case msg := <-h.broadcast:
			h.deliver(func(*ClientConnection) bool { return true }, msg)

		case sm := <-h.direct:
			h.deliver(func(c *ClientConnection) bool { return c.SessionID == sm.sessionID }, sm.msg)

		case <-ticker.C:
			h.deliver(func(*ClientConnection) bool { return true }, WebSocketMessage{Type: MessagePing, Timestamp: time.Now()})
		}
	}
}

func (h *WebSocketHub) deliver(match func(*ClientConnection) bool, msg WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.Send <- msg:
		default:
			// Client's send channel is full, skip this message
			h.log.Debug("Dropping %s message for slow client %s", msg.Type, client.ID)
		}
	}
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	h.enqueue(func() bool {
		select {
		case h.broadcast <- msg:
			return true
		default:
			return false
		}
	}, msg.Type)
}

// SendToSession sends a message to every socket of one session
func (h *WebSocketHub) SendToSession(sessionID string, msg WebSocketMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	h.enqueue(func() bool {
		select {
		case h.direct <- sessionMessage{sessionID: sessionID, msg: msg}:
			return true
		default:
			return false
		}
	}, msg.Type)
}

func (h *WebSocketHub) enqueue(send func() bool, kind string) {
	select {
	case <-h.done:
		return
	default:
	}
	if !send() {
		h.log.Warn("Hub queue full, dropping %s message", kind)
	}
}

// ClientCount returns the number of connected sockets
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client and ends the event loop
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// HubPresenter renders a session's dashboard onto its open sockets
type HubPresenter struct {
	hub       *WebSocketHub
	sessionID string
}

// NewHubPresenter creates the presenter of one session
func NewHubPresenter(hub *WebSocketHub, sessionID string) *HubPresenter {
	return &HubPresenter{hub: hub, sessionID: sessionID}
}

func (p *HubPresenter) send(kind string, data interface{}) {
	p.hub.SendToSession(p.sessionID, WebSocketMessage{Type: kind, Data: data})
}

func (p *HubPresenter) ShowLoading() {
	p.send(MessageLoading, map[string]bool{"loading": true})
}

func (p *HubPresenter) HideLoading() {
	p.send(MessageLoading, map[string]bool{"loading": false})
}

func (p *HubPresenter) Alert(message string) {
	p.hub.SendToSession(p.sessionID, WebSocketMessage{Type: MessageAlert, Error: message})
}

func (p *HubPresenter) RenderChart(chart models.ChartModel) {
	p.send(MessageChart, chart)
}

func (p *HubPresenter) RenderSummary(cards []models.SummaryCard) {
	p.send(MessageSummary, cards)
}

func (p *HubPresenter) RenderTable(table models.TableView) {
	p.send(MessageTable, table)
}

func (p *HubPresenter) RenderLegend(items []models.LegendItem) {
	p.send(MessageLegend, items)
}

func (p *HubPresenter) Clear() {
	p.send(MessageClear, nil)
}
