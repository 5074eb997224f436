package server

import (
	"encoding/json"
	"sync"
	"time"

	"candle-stream/src/metrics"
	"candle-stream/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	maxSize int64

	// Over-limit subscribes collapse into one deferred request; the latest wins
	mu         sync.Mutex
	pending    string
	hasPending bool
	flush      *time.Timer
}

// -----------------------------------------------------------------------------

func NewClient(hub *Hub, conn *websocket.Conn, cfg models.MViewerConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	maxSize := cfg.MaxMessageBytes
	if maxSize <= 0 {
		maxSize = maxMessageSize
	}
	limit := rate.Inf
	if cfg.MessagesPerSecond > 0 {
		limit = rate.Limit(cfg.MessagesPerSecond)
	}
	return &Client{
		id:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, buffer),
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		maxSize: maxSize,
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.stopFlush()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.Logger.Info("Viewer %s websocket error: %v", c.id, err)
			}
			return
		}
		if !c.handleMessage(message) {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// handleMessage decodes one viewer command. Bad input is logged and ignored;
// it returns false only when the hub has gone away.
func (c *Client) handleMessage(message []byte) bool {
	var cmd models.MViewerCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		metrics.MalformedMessages.WithLabelValues("viewer").Inc()
		c.hub.Logger.Warning("Viewer %s sent malformed command: %v", c.id, err)
		return true
	}

	if cmd.Action != models.ActionSubscribe {
		c.hub.Logger.Debug("Viewer %s sent unsupported action %q", c.id, cmd.Action)
		return true
	}

	return c.queueSubscribe(cmd.Symbol)
}

// -----------------------------------------------------------------------------

// queueSubscribe forwards symbol to the hub while the viewer is within its
// message rate. Past it, the request is parked and applied once the limiter
// has a token again; anything arriving meanwhile replaces the parked symbol.
// The hub handoff happens under c.mu so requests reach the hub in order.
func (c *Client) queueSubscribe(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasPending {
		c.pending = symbol
		return true
	}
	if c.limiter.Allow() {
		return c.hub.Subscribe(c, symbol)
	}

	c.pending = symbol
	c.hasPending = true
	delay := c.limiter.Reserve().Delay()
	c.hub.Logger.Debug("Viewer %s over message rate, deferring subscribe by %v", c.id, delay)
	c.flush = time.AfterFunc(delay, c.flushPending)
	return true
}

func (c *Client) flushPending() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasPending {
		return
	}
	symbol := c.pending
	c.pending, c.hasPending = "", false
	c.hub.Subscribe(c, symbol)
}

func (c *Client) stopFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flush != nil {
		c.flush.Stop()
	}
	c.pending, c.hasPending = "", false
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.Logger.Info("Viewer %s write error: %v", c.id, err)
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
