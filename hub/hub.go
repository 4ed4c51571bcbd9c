// Package hub pushes assessments to websocket clients as they are made.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before the connection is
	// treated as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth. A client
	// that falls this far behind is dropped.
	sendBufSize = 64
)

// Event names
const (
	EventAssessment = "assessment"
	EventSkip       = "skip"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// AssessmentData is the payload of an assessment event
type AssessmentData struct {
	Frame int `json:"frame"`
	posemon.Assessment
}

// SkipData is the payload of a skip event
type SkipData struct {
	Frame  int    `json:"frame"`
	Reason string `json:"reason"`
}

// Hub manages websocket clients and fans out monitor events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	// last is the most recent assessment message, sent to new clients
	last   []byte
	closed bool
	log    logger.Logger
}

// client represents one connected websocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates an empty Hub
func New() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     logger.Named("hub"),
	}
}

// PublishAssessment pushes an assessment of frame to every client
func (h *Hub) PublishAssessment(_ context.Context, frame int, a posemon.Assessment) error {

	data, err := json.Marshal(Message{
		Event: EventAssessment,
		Data:  AssessmentData{Frame: frame, Assessment: a},
	})

	if err != nil {
		return err
	}

	h.broadcast(data, true)
	return nil
}

// PublishSkip pushes the reason frame was not assessed to every client
func (h *Hub) PublishSkip(_ context.Context, frame int, reason string) error {

	data, err := json.Marshal(Message{
		Event: EventSkip,
		Data:  SkipData{Frame: frame, Reason: reason},
	})

	if err != nil {
		return err
	}

	h.broadcast(data, false)
	return nil
}

// ServeHTTP upgrades the connection to a websocket and serves the client
// until it disconnects.  The latest assessment, if any, is sent right away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		// upgrader has already written the error response
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	if !h.register(c) {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
		return
	}

	defer h.unregister(c)

	h.log.Debug(r.Context(), "client connected", logger.String("remote", r.RemoteAddr))

	go c.writePump()
	c.readPump()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}

	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	if h.last != nil {
		c.send <- h.last
	}

	h.clients[c] = struct{}{}

	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast sends data to all clients, dropping those whose buffer is full
func (h *Hub) broadcast(data []byte, keep bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if keep {
		h.last = data
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)

			h.log.Warn(context.Background(), "dropped slow client",
				logger.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

// writePump forwards queued messages to the connection and sends periodic
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump processes control frames and detects disconnects. Blocks until
// the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
