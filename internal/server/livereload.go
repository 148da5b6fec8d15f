package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/jaff/internal/logging"
)

// Live-reload endpoints.
const (
	LiveReloadPath   = "/__livereload"
	LiveReloadScript = "/__livereload.js"
)

// Message types exchanged with the browser.
const (
	MessageReload     = "reload"
	MessageBuildError = "build_error"
	MessageLoad       = "load"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

//go:embed livereload.js
var clientScript []byte

// Message is a live-reload protocol message.
type Message struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks live-reload connections, broadcasts to them and reports the
// page loads they announce.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.RWMutex
	loads   chan struct{}
	closed  bool

	originPatterns []string
	logger         logging.Logger
}

// NewHub creates a hub. Browsers on any of originPatterns, in addition to
// the serving host itself, may connect.
func NewHub(logger logging.Logger, originPatterns ...string) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		clients:        make(map[*websocket.Conn]*client),
		loads:          make(chan struct{}, 16),
		originPatterns: originPatterns,
		logger:         logger.WithComponent("livereload"),
	}
}

// Loads delivers one value per page load reported by a browser. It is
// closed by Close.
func (h *Hub) Loads() <-chan struct{} {
	return h.loads
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients that cannot keep up are
// dropped.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal live-reload message")
		data = []byte(`{"type":"reload"}`)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.removeLocked(conn, websocket.StatusPolicyViolation, "too slow")
		}
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, 16)}
	if !h.add(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.logger.Debug(r.Context(), "Client connected", "clients", h.Clients())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writePump(ctx, c)
	h.readPump(ctx, c)
}

// Close disconnects every client and closes the load channel.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for conn := range h.clients {
		h.removeLocked(conn, websocket.StatusGoingAway, "server shutting down")
	}
	close(h.loads)
}

func (h *Hub) add(c *client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.conn] = c
	return true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(conn, websocket.StatusNormalClosure, "")
}

func (h *Hub) removeLocked(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	go conn.Close(code, reason)
}

func (h *Hub) reportLoad() {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.loads <- struct{}{}:
	default:
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.remove(c.conn)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				h.logger.Debug(ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug(ctx, "Ignoring malformed client message")
			continue
		}
		if msg.Type == MessageLoad {
			h.reportLoad()
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "WebSocket write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func serveClientScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(clientScript)
}
