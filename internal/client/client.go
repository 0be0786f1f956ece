// Package client maintains one logical connection to the relay hub with a
// bounded automatic-reconnect policy.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/MicroPhone1/App-HelpPeople/internal/model"
	"github.com/MicroPhone1/App-HelpPeople/internal/protocol"
)

// ConnState represents the connection state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ErrRetriesExhausted is reported once the reconnect attempt cap is hit.
// The client stays alive in a disconnected state; it does not retry further.
var ErrRetriesExhausted = errors.New("client: reconnect attempts exhausted")

const (
	writeTimeout = 5 * time.Second
	pingInterval = 25 * time.Second
)

// Config configures a Client.
type Config struct {
	// URL is the hub websocket endpoint, e.g. ws://localhost:4000/ws.
	URL string

	// MaxAttempts caps consecutive failed connection attempts (default 5).
	MaxAttempts int
	// RetryDelay is the fixed delay between attempts (default 1s).
	RetryDelay time.Duration

	// Callbacks. All optional; invoked from the client's own goroutine.
	OnConnected    func()
	OnDisconnected func(error)
	OnInit         func([]model.AlertRecord)
	OnAlert        func(model.AlertRecord)
	OnServerError  func(string)
}

// Client is a hub connection handle owned by its command; Close releases it.
type Client struct {
	cfg   Config
	state atomic.Int32

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// New creates a client. The connection is established by Run.
func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	c := &Client{cfg: cfg}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// IsConnected reports whether a connection is currently established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Run connects and serves the connection until ctx is done or Close is
// called. Transport drops trigger the bounded reconnect policy; once the
// attempt cap is exhausted the client stays up in a disconnected state so
// the owning session keeps running.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Cap exhausted: disconnected for good, but do not terminate.
			c.state.Store(int32(StateDisconnected))
			if c.cfg.OnDisconnected != nil {
				c.cfg.OnDisconnected(err)
			}
			<-ctx.Done()
			return nil
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "bye")
			return nil
		}
		c.conn = conn
		c.mu.Unlock()

		c.state.Store(int32(StateConnected))
		if c.cfg.OnConnected != nil {
			c.cfg.OnConnected()
		}

		err = c.serve(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()

		c.state.Store(int32(StateDisconnected))
		if c.cfg.OnDisconnected != nil {
			c.cfg.OnDisconnected(err)
		}

		if closed || ctx.Err() != nil {
			return nil
		}
		log.Printf("[client] connection lost: %v, reconnecting", err)
	}
}

// connect dials with the bounded retry policy.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.state.Store(int32(StateConnecting))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Printf("[client] connect failed (attempt %d/%d): %v", attempt, c.cfg.MaxAttempts, err)

		if attempt == c.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// serve reads frames until the connection drops.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		env, err := protocol.Decode(data)
		if err != nil {
			log.Printf("[client] bad frame: %v", err)
			continue
		}

		switch env.Type {
		case protocol.TypeInit:
			if c.cfg.OnInit != nil {
				c.cfg.OnInit(env.Alerts)
			}
		case protocol.TypeAlert:
			if env.Alert != nil && c.cfg.OnAlert != nil {
				c.cfg.OnAlert(*env.Alert)
			}
		case protocol.TypeError:
			if c.cfg.OnServerError != nil {
				c.cfg.OnServerError(env.Error)
			}
		case protocol.TypePong:
			// liveness confirmed
		}
	}
}

// Submit sends one alert submission, fire-and-forget. With no established
// connection the submission is dropped; the reconnect policy only restores
// connectivity for future sends.
func (c *Client) Submit(sub model.AlertSubmission) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		log.Printf("[client] not connected, dropping alert %q", sub.Message)
		return
	}
	if err := c.write(conn, protocol.Submission(sub)); err != nil {
		log.Printf("[client] send failed, dropping alert %q: %v", sub.Message, err)
	}
}

// Ping sends a protocol-level liveness probe.
func (c *Client) Ping() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.write(conn, &protocol.Envelope{Type: protocol.TypePing})
}

// Close tears the client down: the connection is closed unconditionally and
// no further reconnect attempts are made.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.state.Store(int32(StateDisconnected))
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (c *Client) write(conn *websocket.Conn, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Ping()
		}
	}
}
