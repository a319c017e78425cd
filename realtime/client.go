package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

var (
	ErrNotConnected        = errors.New("realtime: not connected")
	ErrReconnectsExhausted = errors.New("realtime: reconnect attempts exhausted")
)

// ClientOptions are the handshake parameters. They are reused verbatim on every reconnect.
type ClientOptions struct {
	URL       string // e.g. ws://host:8080/ws
	Role      models.Role
	TableID   string
	SessionID string
	Token     string
	Backoff   Backoff
	Dialer    *websocket.Dialer

	OnMessage func(Message)
	// OnConnect is called after every successful (re)connect.
	OnConnect func()
}

// Client is a reconnecting realtime connection.
type Client struct {
	opts ClientOptions

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(opts ClientOptions) *Client {
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{opts: opts}
}

// HandshakeURL is the connect URL carrying role, tableId, sessionId and token.
func (c *Client) HandshakeURL() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("role", string(c.opts.Role))
	if c.opts.TableID != "" {
		q.Set("tableId", c.opts.TableID)
	}
	if c.opts.SessionID != "" {
		q.Set("sessionId", c.opts.SessionID)
	}
	if c.opts.Token != "" {
		q.Set("token", c.opts.Token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run connects and keeps reconnecting until ctx is done or the backoff policy
// gives up, in which case ErrReconnectsExhausted is returned.
func (c *Client) Run(ctx context.Context) error {
	target, err := c.HandshakeURL()
	if err != nil {
		return err
	}
	log := utils.InfoLogger.WithFields(logrus.Fields{"role": c.opts.Role, "table": c.opts.TableID})

	attempt := 0
	for {
		ws, _, err := c.opts.Dialer.DialContext(ctx, target, nil)
		if err == nil {
			attempt = 0
			c.setConn(ws)
			log.Info("realtime connected")
			if c.opts.OnConnect != nil {
				c.opts.OnConnect()
			}
			c.readLoop(ctx, ws)
			c.setConn(nil)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= c.opts.Backoff.MaxAttempts {
			return ErrReconnectsExhausted
		}

		delay := c.opts.Backoff.Delay(attempt)
		attempt++
		log.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Info("realtime reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Send writes msg if connected. Messages sent while disconnected are dropped
// and ErrNotConnected is returned.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) setConn(ws *websocket.Conn) {
	c.mu.Lock()
	c.conn = ws
	c.mu.Unlock()
}

func (c *Client) readLoop(ctx context.Context, ws *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if c.opts.OnMessage == nil {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.opts.OnMessage(msg)
	}
}
