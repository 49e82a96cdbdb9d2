package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bookit/models"
	"bookit/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	adminTopic = "admin"
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes booking events to connected websocket clients. Owners receive
// events for their own bookings; admins receive all of them.
//
// Every client has its own buffered queue drained by a writer goroutine, so
// delivery never waits on a socket. A client whose queue is full is dropped.
type Hub struct {
	upgrader    websocket.Upgrader
	mu          sync.Mutex
	subscribers map[string]map[*client]bool
	admins      AdminChecker
	logger      *zap.Logger
}

func NewHub(admins AdminChecker, allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[*client]bool),
		admins:      admins,
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return origin == ""
		},
	}
	return h
}

// HandleWS serves GET /api/ws/bookings/. The subject is attached by the
// auth middleware.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, ok := utils.SubjectFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	key := s.ID
	if h.admins.IsAdmin(r.Context(), s) {
		key = adminTopic
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("uid", s.ID), zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(key, c)
	go h.writePump(c)
	defer h.remove(key, c)

	for {
		// keeps the connection alive until the client disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) add(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[key] == nil {
		h.subscribers[key] = make(map[*client]bool)
	}
	h.subscribers[key][c] = true
}

func (h *Hub) remove(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(key, c)
}

// dropLocked unregisters c and stops its writer. h.mu must be held.
func (h *Hub) dropLocked(key string, c *client) {
	clients := h.subscribers[key]
	if !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.subscribers, key)
	}
}

// Deliver sends ev to the booking owner and to admins.
func (h *Hub) Deliver(ev models.BookingEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("encode booking event", zap.Error(err))
		return
	}
	h.broadcast(ev.Booking.UserID, data)
	h.broadcast(adminTopic, data)
}

func (h *Hub) broadcast(key string, val []byte) {
	if key == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.subscribers[key] {
		select {
		case c.send <- val:
		default:
			h.logger.Warn("dropping slow websocket client", zap.String("topic", key))
			h.dropLocked(key, c)
		}
	}
}

// Emit delivers ev to local sockets only. It serves single instance
// deployments where no broker relays events.
func (h *Hub) Emit(_ context.Context, ev models.BookingEvent) error {
	h.Deliver(ev)
	return nil
}

// Subscribers reports how many sockets listen on key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[key])
}
