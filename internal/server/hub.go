package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rbright/voxscribe/internal/session"
)

const (
	EventStatus = "status"
	EventOutput = "output"
	EventClear  = "clear"
	EventState  = "state"

	clientBuffer   = 64
	broadcastQueue = 256
	writeWait      = 5 * time.Second
)

// Event is one message on the live feed.
type Event struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Time string         `json:"time"`
	Data map[string]any `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans session events out to websocket clients. It implements
// session.Observer; slow clients are dropped rather than blocking the session.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	now      func() time.Time

	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub constructs an idle hub; call Run to start delivery.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now:        time.Now,
		broadcast:  make(chan Event, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run delivers events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logDebug("websocket client registered", "client_count", count)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logDebug("websocket client unregistered", "client_count", count)

		case event := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					delete(h.clients, c)
					close(c.send)
					h.logWarn("dropping slow websocket client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues an event for every client; it never blocks.
func (h *Hub) Publish(eventType string, data map[string]any) {
	event := Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Time: h.now().Format(time.RFC3339Nano),
		Data: data,
	}
	select {
	case h.broadcast <- event:
	default:
		h.logWarn("event feed backlog full; dropping event", "type", eventType)
	}
}

func (h *Hub) Status(kind session.StatusKind, message string) {
	h.Publish(EventStatus, map[string]any{"kind": string(kind), "message": message})
}

func (h *Hub) Output(line string) {
	h.Publish(EventOutput, map[string]any{"line": line})
}

func (h *Hub) ClearOutput() {
	h.Publish(EventClear, map[string]any{})
}

func (h *Hub) State(snapshot session.Snapshot) {
	h.Publish(EventState, snapshotData(snapshot))
}

// ServeHTTP upgrades the request and streams events to the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logWarn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logDebug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for event := range c.send {
		data, err := json.Marshal(event)
		if err != nil {
			h.logWarn("encode event failed", "type", event.Type, "error", err)
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func snapshotData(snapshot session.Snapshot) map[string]any {
	return map[string]any{
		"mode":       snapshot.Mode,
		"state":      string(snapshot.State),
		"recording":  snapshot.Recording,
		"processing": snapshot.Processing,
		"turns":      snapshot.Turns,
	}
}

func (h *Hub) logDebug(message string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(message, args...)
	}
}

func (h *Hub) logWarn(message string, args ...any) {
	if h.logger != nil {
		h.logger.Warn(message, args...)
	}
}
