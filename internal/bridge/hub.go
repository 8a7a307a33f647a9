package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain/repositories"
	"github.com/happypartner/voicelink/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Commands are small JSON
	// frames; audio never travels on this socket.
	maxMessageSize = 16 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The bridge binds to localhost; the UI is the only peer.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of connected UI clients, fans conversation
// events out to them, and routes their commands into the pipeline.
// It doubles as the pipeline's Notifier so status banners reach every
// connected view.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	pipeline *usecase.PipelineService
	logger   *zap.Logger
}

var _ repositories.Notifier = (*Hub)(nil)

// NewHub creates an empty hub. Bind must be called before Run.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Bind attaches the pipeline whose conversation this hub mirrors.
func (h *Hub) Bind(pipeline *usecase.PipelineService) {
	h.pipeline = pipeline
}

// Run drives client registration and conversation fan-out until the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	messages, cancel := h.pipeline.Conversation().Watch(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("client registered", zap.String("client_id", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client unregistered", zap.String("client_id", client.id))

		case msg, ok := <-messages:
			if !ok {
				return
			}
			h.Broadcast(NewMessageEvent(msg))
		}
	}
}

// Broadcast sends an event to every connected client. Clients with a
// full send buffer are skipped.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("client send buffer full, event dropped",
				zap.String("client_id", id),
				zap.String("event", event.Type))
		}
	}
}

// Info implements repositories.Notifier.
func (h *Hub) Info(text string) { h.Broadcast(NewNoticeEvent("info", text)) }

// Warning implements repositories.Notifier.
func (h *Hub) Warning(text string) { h.Broadcast(NewNoticeEvent("warning", text)) }

// Error implements repositories.Notifier.
func (h *Hub) Error(text string) { h.Broadcast(NewNoticeEvent("error", text)) }

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id     string
	userID string
	logger *zap.Logger
}

// HandleWebSocket upgrades the request and starts the client pumps.
// userID comes from the validated session token, or empty in open mode.
func HandleWebSocket(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		id:     uuid.NewString(),
		userID: userID,
		logger: logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps commands from the websocket connection into the
// pipeline.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", zap.Error(err))
			}
			break
		}
		c.handleCommand(message)
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(message []byte) {
	cmd, err := ParseCommand(message)
	if err != nil {
		c.logger.Error("failed to parse command", zap.Error(err))
		return
	}

	switch cmd.Type {
	case CommandChat:
		go c.hub.pipeline.Send(context.Background(), cmd.Content, false)

	case CommandRecordStart:
		c.hub.pipeline.StartRecording(context.Background())
		c.hub.Broadcast(NewRecordingEvent(c.hub.pipeline.Recording()))

	case CommandRecordStop:
		go func() {
			c.hub.pipeline.StopRecording(context.Background())
			c.hub.Broadcast(NewRecordingEvent(false))
		}()

	default:
		c.logger.Warn("unknown command type", zap.String("type", cmd.Type))
	}
}
