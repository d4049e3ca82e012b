// Package eventstream forwards dispatched events to WebSocket clients.
//
// Clients connect to /ws and receive one JSON text message per event:
//
//	{"type":"service","device":"10.0.0.2:1400","endpoint":"/MediaRenderer/AVTransport/Event",
//	 "sid":"uuid:...","seq":3,"state":{...},"changed":["TransportState"]}
//	{"type":"error","endpoint":"...","sid":"","previousSid":"uuid:...","error":"..."}
//
// Messages from clients are ignored.
package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/faytom/node-sonos/pkg/events"
)

// Path is the WebSocket endpoint.
const Path = "/ws"

// writeTimeout bounds a single message write.
const writeTimeout = 5 * time.Second

// DefaultQueueSize is the number of messages buffered per client. A client
// that falls further behind is disconnected.
const DefaultQueueSize = 64

// Message types.
const (
	TypeService = "service"
	TypeError   = "error"
)

// Message is the JSON envelope sent to clients.
type Message struct {
	Type        string            `json:"type"`
	Device      string            `json:"device,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	SID         string            `json:"sid"`
	PreviousSID string            `json:"previousSid,omitempty"`
	Seq         *uint32           `json:"seq,omitempty"`
	State       map[string]string `json:"state,omitempty"`
	Changed     []string          `json:"changed,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// ServiceMessage builds the message for a service event from device.
func ServiceMessage(device string, ev events.ServiceEvent) Message {
	return Message{
		Type:     TypeService,
		Device:   device,
		Endpoint: ev.Endpoint,
		SID:      ev.SID,
		Seq:      ev.Seq,
		State:    ev.State,
		Changed:  ev.Changed,
	}
}

// ErrorMessage builds the message for an error event from device.
func ErrorMessage(device string, ev events.ErrorEvent) Message {
	m := Message{
		Type:        TypeError,
		Device:      device,
		Endpoint:    ev.Endpoint,
		SID:         ev.SID,
		PreviousSID: ev.PreviousSID,
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
	}
	return m
}

// client is one connected WebSocket. Messages are queued on send and
// written by the client's own writer goroutine.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{} // closed when the client is dropped
}

func newClient(id string, conn *websocket.Conn, queue int) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// enqueue queues data without blocking. It reports false when the queue is
// full or the client is gone.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// stop ends the writer. The connection stays open.
func (c *client) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writeLoop writes queued messages until the client is stopped or a write
// fails; onError is called on failure.
func (c *client) writeLoop(onError func(error)) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				onError(err)
				return
			}
		}
	}
}

// Hub tracks WebSocket clients and broadcasts messages to them.
type Hub struct {
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	queueSize int

	mu      sync.RWMutex
	clients map[string]*client
	server  *http.Server
	wg      sync.WaitGroup
}

// NewHub creates a hub. A nil logger disables logging.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[string]*client),
		queueSize: DefaultQueueSize,
	}
}

// Handler returns an HTTP handler serving Path.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, h.handleWebSocket)
	return mux
}

// Start serves the hub on addr and returns the bound address.
func (h *Hub) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.server = &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 10 * time.Second}
	server := h.server
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log(slog.LevelWarn, "event stream server stopped", "error", err)
		}
	}()
	h.log(slog.LevelInfo, "event stream listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// Close stops the server, if started, and disconnects all clients.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	server := h.server
	h.server = nil
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}
	for _, c := range clients {
		c.stop()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
	h.wg.Wait()
	return err
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client and returns without waiting for
// the writes. Clients whose queue is full are dropped.
func (h *Hub) Broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.log(slog.LevelDebug, "dropping slow event stream client", "client", c.id)
			h.remove(c.id)
		}
	}
	return nil
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log(slog.LevelDebug, "websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	c := newClient(id, conn, h.queueSize)
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	go c.writeLoop(func(err error) {
		h.log(slog.LevelDebug, "event stream write failed", "client", id, "error", err)
		h.remove(id)
	})
	h.log(slog.LevelDebug, "event stream client connected", "client", id, "remote", r.RemoteAddr)

	// Read until the client goes away; incoming messages are discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(id)
	h.log(slog.LevelDebug, "event stream client disconnected", "client", id)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		c.stop()
		_ = c.conn.Close()
	}
}

func (h *Hub) log(level slog.Level, msg string, args ...any) {
	if h.logger != nil {
		h.logger.Log(context.Background(), level, msg, args...)
	}
}
