// Package socket adapts gorilla/websocket connections to the transport-agnostic
// contract.Connection and translates client frames into session calls.
// Two wire dialects are served: named events and the legacy request frames.
package socket

import (
	"context"
	stderrors "errors"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/observability"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Config struct {
	SendBufferSize int
	MaxMessageSize int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	RateBurst      int
	RateInterval   time.Duration
	// RequireToken refuses identify frames without a token on the event transport.
	RequireToken bool
}

// PingInterval must stay below PongTimeout so a healthy peer never times out.
func (c Config) PingInterval() time.Duration {
	return c.PongTimeout * 9 / 10
}

// Encoder frames an envelope for one wire dialect.
type Encoder func(envelope domain.Envelope) ([]byte, error)

// Conn is one upgraded WebSocket. Writes go through a buffered queue drained
// by a single writer goroutine, so Send never blocks the caller.
type Conn struct {
	id        string
	ws        *websocket.Conn
	log       *slog.Logger
	transport string
	encode    Encoder
	cfg       Config
	limiter   *rate.Limiter

	// mu orders enqueueing against Close so nothing is queued after done closes.
	mu     sync.Mutex
	closed bool
	send   chan []byte
	done   chan struct{}
}

func newConn(ws *websocket.Conn, log *slog.Logger, transport string, encode Encoder, cfg Config) *Conn {
	id := uuid.NewString()
	c := &Conn{
		id:        id,
		ws:        ws,
		log:       log.With("connection_id", id, "transport", transport),
		transport: transport,
		encode:    encode,
		cfg:       cfg,
		send:      make(chan []byte, cfg.SendBufferSize),
		done:      make(chan struct{}),
	}
	if cfg.RateBurst > 0 && cfg.RateInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst)
	}
	observability.ConnectionOpened(transport)
	return c
}

func (c *Conn) ID() string {
	return c.id
}

// Send queues the envelope. A closed connection or a full queue is reported
// to the caller instead of blocking.
func (c *Conn) Send(ctx context.Context, envelope domain.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := c.encode(envelope)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

// Close is idempotent. The writer goroutine sends the close frame.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	observability.ConnectionClosed(c.transport)
	return nil
}

// allow consumes one token of the per-connection bucket.
func (c *Conn) allow() bool {
	if c.limiter == nil {
		return true
	}
	if c.limiter.Allow() {
		return true
	}
	observability.RecordRateLimited(c.transport)
	return false
}

// readLoop hands every text frame to handle until the peer goes away.
func (c *Conn) readLoop(handle func(raw []byte)) {
	if c.cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		kind, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(raw)
	}
}

func (c *Conn) logReadError(err error) {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "max_bytes", c.cfg.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		stderrors.Is(err, io.EOF):
		c.log.Debug("Peer disconnected")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.log.Warn("Unexpected close", "error", err)
	default:
		c.log.Debug("Read stopped", "error", err)
	}
}

// writePump is the only goroutine writing to the socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval())
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteTimeout))
			return
		}
	}
}

// flush writes whatever was queued before Close.
func (c *Conn) flush() {
	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}
