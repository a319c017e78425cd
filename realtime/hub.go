package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

const (
	// Time allowed to write a message or a ping to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	sendBuffer = 64

	DefaultPingInterval = 30 * time.Second
)

// Sink receives every message published on this instance, after local fan-out.
type Sink interface {
	Forward(Message)
}

// Hub keeps the registry of live connections and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*conn]struct{}
	sinks   []Sink

	upgrader     websocket.Upgrader
	pingInterval time.Duration
	now          func() time.Time
}

type HubOption func(*Hub)

func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithCheckOrigin replaces the default allow-all origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:      make(map[*conn]struct{}),
		pingInterval: DefaultPingInterval,
		now:          time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddSink must be called before the hub starts serving.
func (h *Hub) AddSink(s Sink) {
	h.sinks = append(h.sinks, s)
}

// Publish stamps msg, delivers it to local subscribers and forwards it to the sinks.
func (h *Hub) Publish(msg Message) {
	msg.Timestamp = nowMillis(h.now)
	h.Deliver(msg)
	for _, s := range h.sinks {
		s.Forward(msg)
	}
}

// Deliver fans msg out to the local subscribers only. Used for messages that
// were already stamped by another instance.
func (h *Hub) Deliver(msg Message) int {
	if !msg.Type.IsValid() {
		utils.ErrorLogger.WithField("type", msg.Type).Warn("dropping message with unknown type")
		return 0
	}
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("marshal realtime message")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		if !ShouldReceive(msg, c.sub) {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			// slow consumer; never block the others
			utils.ErrorLogger.WithFields(logrus.Fields{
				"conn": c.sub.ID,
				"role": c.sub.Role,
				"type": msg.Type,
			}).Warn("send buffer full, message dropped")
		}
	}
	return sent
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns a snapshot of the registered connections.
func (h *Hub) Subscribers() []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]Subscriber, 0, len(h.clients))
	for c := range h.clients {
		subs = append(subs, c.sub)
	}
	return subs
}

// ServeWS upgrades the request and registers the connection as sub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sub Subscriber) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	c := &conn{hub: h, ws: ws, sub: sub, send: make(chan []byte, sendBuffer)}
	c.alive.Store(true)
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// Run pings every connection each interval and terminates the ones that did
// not answer the previous ping. It returns when ctx is done, closing all
// remaining connections.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.heartbeat()
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) heartbeat() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.alive.Swap(false) {
			utils.InfoLogger.WithField("conn", c.sub.ID).Info("terminating unresponsive connection")
			c.terminate()
			continue
		}
		if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			c.terminate()
		}
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{
		"conn":    c.sub.ID,
		"role":    c.sub.Role,
		"table":   c.sub.TableID,
		"session": c.sub.SessionID,
		"total":   n,
	}).Info("realtime client connected")
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.terminate()
	}
}

// conn is one registered websocket.
type conn struct {
	hub   *Hub
	ws    *websocket.Conn
	sub   Subscriber
	send  chan []byte
	alive atomic.Bool
}

func (c *conn) terminate() {
	c.hub.unregister(c)
	c.ws.Close()
}

func (c *conn) readPump() {
	defer c.terminate()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				utils.ErrorLogger.WithError(err).WithField("conn", c.sub.ID).Warn("websocket read error")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || !msg.Type.IsValid() {
			utils.ErrorLogger.WithField("conn", c.sub.ID).Warn("ignoring malformed realtime message")
			continue
		}
		c.hub.Publish(c.scope(msg))
	}
}

// scope pins customer messages to the connection's own table and session.
func (c *conn) scope(msg Message) Message {
	if c.sub.Role == models.RoleCustomer {
		msg.TableID = c.sub.TableID
		if c.sub.SessionID != "" {
			msg.SessionID = c.sub.SessionID
		}
	}
	return msg
}

func (c *conn) writePump() {
	defer c.ws.Close()

	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithError(err).WithField("conn", c.sub.ID).Warn("websocket write failed")
			return
		}
	}
	// the hub closed the channel
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
