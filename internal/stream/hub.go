package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"vehicletracker.org/internal/metrics"
	"vehicletracker.org/internal/models"
)

const (
	// writeWait is the longest a single client may take to accept a message
	// before it is dropped.
	writeWait = 5 * time.Second

	// sendBuffer is how many states may queue for a client. A client that
	// falls further behind is dropped.
	sendBuffer = 8
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub pushes cache states to websocket clients. Each client receives the
// current state on connect and every new state afterwards.
type Hub struct {
	current  func() models.CacheState
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub. current supplies the state sent to new clients.
func NewHub(current func() models.CacheState, logger *slog.Logger) *Hub {
	return &Hub{
		current: current,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	data, err := json.Marshal(h.current())
	if err != nil {
		h.logger.Error("Failed to encode cache state", "error", err)
		_ = conn.Close()
		return
	}

	c := newClient(conn)
	// queue the initial state under the hub lock so no broadcast overtakes it
	h.mu.Lock()
	c.send <- data
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.StreamClients.Set(float64(n))

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast queues state for every client without waiting on the network.
// Clients whose queue is full are disconnected.
func (h *Hub) Broadcast(state models.CacheState) {
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("Failed to encode cache state", "error", err)
		return
	}

	var slow []*client
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Debug("Dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		// WriteControl may run alongside the client's writer
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.stop()
	}
	metrics.StreamClients.Set(0)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.stop()
	metrics.StreamClients.Set(float64(n))
}

// writePump is the only goroutine writing data frames to c.
func (h *Hub) writePump(c *client) {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Dropping websocket client", "remote", c.conn.RemoteAddr().String(), "error", err)
				h.remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
