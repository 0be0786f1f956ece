package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/MicroPhone1/App-HelpPeople/internal/history"
	"github.com/MicroPhone1/App-HelpPeople/internal/model"
	"github.com/MicroPhone1/App-HelpPeople/internal/protocol"
)

const (
	pingInterval = 25 * time.Second
	readTimeout  = 60 * time.Second

	// initReplayCount is how many recent records a fresh connection gets.
	initReplayCount = 10

	receivedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Hub owns the live connection set and the alert history. It validates
// inbound submissions, stamps accepted ones and fans them out to every
// connection including the submitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	reg     chan *wsClient
	unreg   chan *wsClient

	// submitMu serializes Submit so broadcast order equals acceptance order.
	submitMu sync.Mutex

	log     *history.Log
	origins []string
}

type wsClient struct {
	hub  *Hub
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub around the given history log. origins is the list of
// allowed websocket origins; empty means any origin.
func NewHub(histLog *history.Log, origins []string) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		reg:     make(chan *wsClient, 16),
		unreg:   make(chan *wsClient, 16),
		log:     histLog,
		origins: origins,
	}
}

// Run processes register/unregister events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.reg:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[ws] connected: %s (%d online)", c.id, n)
		case c := <-h.unreg:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[ws] disconnected: %s (%d online)", c.id, n)
		}
	}
}

// Submit validates a submission from the given connection. Accepted alerts
// are stamped, stored and broadcast to every live connection; invalid ones
// produce a single error frame back to the submitter and nothing else.
func (h *Hub) Submit(sub model.AlertSubmission, from *wsClient) {
	if !sub.Valid() {
		log.Printf("[alert] rejected from %s: missing required field", from.id)
		from.enqueue(protocol.Error("Invalid alert data"))
		return
	}

	h.submitMu.Lock()
	defer h.submitMu.Unlock()

	rec := model.AlertRecord{
		AlertSubmission: sub,
		ReceivedAt:      time.Now().UTC().Format(receivedAtLayout),
		From:            from.id,
	}
	h.log.Push(rec)

	log.Printf("[alert] %s (%s) time=%s received=%s from=%s",
		rec.Message, rec.Keyword, rec.Time, rec.ReceivedAt, rec.From)

	h.broadcast(protocol.Alert(rec))
}

// broadcast fans a frame out to every live connection. Connections whose
// send buffer is full are skipped rather than blocking the hub.
func (h *Hub) broadcast(env *protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// client too slow, skip
		}
	}
}

func (c *wsClient) enqueue(env *protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// HandleWS upgrades the connection, assigns it an id, registers it and
// replays the newest records before any live traffic.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(h.origins) == 0 {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.origins
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		log.Printf("[ws] accept error: %v", err)
		return
	}

	client := &wsClient{
		hub:  h,
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}

	// Replay recent history first so a late joiner sees the latest context
	// before any live broadcast can land in its queue.
	client.enqueue(protocol.Init(h.log.Recent(initReplayCount)))

	h.reg <- client

	ctx := r.Context()
	go client.pingLoop(ctx)
	go client.writePump(ctx)
	client.readPump(ctx)
}

func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		c.hub.unreg <- c
		c.conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			// A frame the hub cannot parse is an invalid submission.
			log.Printf("[ws] bad frame from %s: %v", c.id, err)
			c.enqueue(protocol.Error("Invalid alert data"))
			continue
		}

		switch env.Type {
		case protocol.TypeAlert:
			var sub model.AlertSubmission
			if env.Alert != nil {
				sub = env.Alert.AlertSubmission
			}
			c.hub.Submit(sub, c)
		case protocol.TypePing:
			c.enqueue(&protocol.Envelope{Type: protocol.TypePong})
		}
	}
}

func (c *wsClient) writePump(ctx context.Context) {
	for data := range c.send {
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
}

func (c *wsClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}
