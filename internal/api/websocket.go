package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/uttammasala/billprint/internal/printer"
	"github.com/uttammasala/billprint/internal/transport"
)

// WebSocket message types
const (
	EventPrint          = "print"
	EventPrinterAdded   = "printer_added"
	EventPrinterRemoved = "printer_removed"
	EventJob            = "job"
	EventResponse       = "response"
	EventError          = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type wsInbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
	caps   transport.StaticCapabilities
}

// hub tracks connected clients for broadcasts
type hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*WSClient]bool)}
}

func (h *hub) add(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// remove drops the client and closes its send channel
func (h *hub) remove(client *WSClient) {
	h.mu.Lock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(message WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client send buffer full, skip
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
		caps:   s.capabilities(c),
	}
	s.hub.add(client)

	s.logger.Info("websocket client connected", "remote", conn.RemoteAddr().String())

	go client.readPump()
	go client.writePump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.logger.Warn("websocket write failed", "err", err)
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.hub.remove(c)
		c.conn.Close()
		c.server.logger.Info("websocket client disconnected")
	}()

	for {
		var msg wsInbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read failed", "err", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *wsInbound) {
	switch msg.Event {
	case EventPrint:
		c.handlePrintEvent(msg.Data)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

func (c *WSClient) handlePrintEvent(data json.RawMessage) {
	var req printRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError(fmt.Sprintf("invalid print request: %v", err))
		return
	}

	result, err := c.server.print(context.Background(), req, c.caps)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.sendResponse(map[string]any{
		"success": true,
		"result":  result,
	})
}

func (c *WSClient) sendResponse(data map[string]any) {
	c.enqueue(WSMessage{Event: EventResponse, Data: data})
}

func (c *WSClient) sendError(message string) {
	c.enqueue(WSMessage{Event: EventError, Data: map[string]any{"error": message}})
}

func (c *WSClient) enqueue(message WSMessage) {
	c.server.hub.mu.RLock()
	defer c.server.hub.mu.RUnlock()

	if !c.server.hub.clients[c] {
		return
	}
	select {
	case c.send <- message:
	default:
	}
}

// BroadcastPrinterAdded broadcasts a printer added event to all connected clients
func (s *Server) BroadcastPrinterAdded(p *printer.Printer) {
	s.hub.broadcast(WSMessage{
		Event: EventPrinterAdded,
		Data: map[string]any{
			"id":          p.ID,
			"type":        p.Type,
			"description": p.Description,
			"name":        p.Name,
		},
	})

	s.logger.Info("broadcast printer added", "printer", p.DisplayName())
}

// BroadcastPrinterRemoved broadcasts a printer removed event to all connected clients
func (s *Server) BroadcastPrinterRemoved(printerID string) {
	s.hub.broadcast(WSMessage{
		Event: EventPrinterRemoved,
		Data:  map[string]any{"id": printerID},
	})

	s.logger.Info("broadcast printer removed", "printer_id", printerID)
}
