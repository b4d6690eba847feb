// Package realtime keeps one live WebSocket per user and pushes small JSON
// messages to it. It is best-effort: durable notifications are the source of
// truth and clients fall back to polling when no socket is open.
package realtime

import (
	"sync"
	"time"

	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultSendBuffer = 32
)

// CloseReplaced is sent to a socket that was superseded by a newer
// registration for the same user.
const (
	CloseReplaced       = 4000
	CloseReasonReplaced = "replaced"
)

// Message is the envelope written to the socket.
type Message struct {
	Type   string    `json:"type"`
	Data   any       `json:"data,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

// Hub is the registry of live connections keyed by user id.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uuid.UUID]*Conn
	sendBuffer int
	log        *logger.Logger
}

// NewHub creates an empty registry. sendBuffer bounds the per-connection
// queue; a full queue drops messages.
func NewHub(sendBuffer int, log *logger.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		conns:      make(map[uuid.UUID]*Conn),
		sendBuffer: sendBuffer,
		log:        log,
	}
}

// Register binds ws to userID and starts its pumps. An existing connection
// for the same user is closed with CloseReplaced.
func (h *Hub) Register(userID uuid.UUID, ws *websocket.Conn) *Conn {
	c := newConn(h, userID, ws, h.sendBuffer)

	h.mu.Lock()
	old := h.conns[userID]
	h.conns[userID] = c
	total := len(h.conns)
	h.mu.Unlock()

	if old != nil {
		old.shutdown(CloseReasonReplaced)
		h.log.Info("realtime connection replaced", "userId", userID)
	}
	h.log.Debug("realtime connection registered", "userId", userID, "connections", total)

	go c.writePump()
	go c.readPump()
	return c
}

// Unregister removes c if it is still the registered connection for its
// user. A connection that was already replaced leaves the newer one alone.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	removed := false
	if cur, ok := h.conns[c.userID]; ok && cur == c {
		delete(h.conns, c.userID)
		removed = true
	}
	h.mu.Unlock()

	c.shutdown("")
	if removed {
		h.log.Debug("realtime connection unregistered", "userId", c.userID)
	}
}

// Publish queues a message for userID. It reports whether a live connection
// accepted the message; it never blocks.
func (h *Hub) Publish(userID uuid.UUID, msgType string, payload any) bool {
	h.mu.RLock()
	c := h.conns[userID]
	h.mu.RUnlock()
	if c == nil {
		return false
	}

	ok := c.enqueue(Message{Type: msgType, Data: payload, SentAt: time.Now().UTC()})
	if !ok {
		h.log.Warn("realtime message dropped", "userId", userID, "type", msgType)
	}
	return ok
}

// isOnline reports whether userID has a registered connection.
func (h *Hub) isOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close shuts every connection down. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[uuid.UUID]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.shutdown("server shutdown")
	}
}

// Conn is a single registered socket. Only the write pump writes to ws.
type Conn struct {
	hub    *Hub
	userID uuid.UUID
	ws     *websocket.Conn
	send   chan Message

	done        chan struct{}
	closeOnce   sync.Once
	closeReason string
}

func newConn(h *Hub, userID uuid.UUID, ws *websocket.Conn, buffer int) *Conn {
	return &Conn{
		hub:    h,
		userID: userID,
		ws:     ws,
		send:   make(chan Message, buffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) enqueue(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) shutdown(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
	})
}

func (c *Conn) readPump() {
	defer c.hub.Unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Inbound frames are ignored; reading keeps control frames flowing.
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, CloseReplaced) {
				c.hub.log.Debug("realtime read error", "userId", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.shutdown("")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown("")
				return
			}
		case <-c.done:
			code := websocket.CloseNormalClosure
			if c.closeReason == CloseReasonReplaced {
				code = CloseReplaced
			}
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, c.closeReason),
				time.Now().Add(writeWait))
			return
		}
	}
}
