// Package bridge is the event channel between the shell process and the
// webview page: the shell pushes menu trees, eval scripts and named events
// over a local websocket, and the page sends menu activations and settings
// writes back.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/1broseidon/readershell/internal/menu"
	"github.com/1broseidon/readershell/internal/settings"
)

// Dispatcher receives menu activations coming back from the page.
type Dispatcher interface {
	Dispatch(id string)
}

// Envelope is the shell-to-page message frame.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inbound is the page-to-shell message frame.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Version uint64          `json:"version,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const sendBuffer = 64

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub accepts websocket connections from the page and fans events out to
// all of them. It implements menu.Host, menu.Emitter and menu.UI.
type Hub struct {
	addr     string
	store    *settings.Store
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu         sync.Mutex
	clients    map[string]*client
	lastMenu   *menu.Item
	dispatcher Dispatcher
}

func NewHub(addr string, store *settings.Store, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		addr:  addr,
		store: store,
		upgrader: websocket.Upgrader{
			// The bridge binds to loopback only; the page connects from the
			// webview's null origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: map[string]*client{},
	}
}

// SetDispatcher wires the menu activation sink. The router is constructed
// after the hub, so this cannot happen in NewHub.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatcher = d
}

// Run serves the bridge until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    h.addr,
		Handler: h,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("bridge listening", "addr", h.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("bridge server failed: %w", err)
		}
		return nil
	}
}

// ServeHTTP upgrades the connection and runs the client until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register(c)
	h.logger.Debug("bridge client connected", "client", c.id)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c

	// A client connecting after startup still needs the current menu.
	if h.lastMenu != nil {
		if data, err := json.Marshal(Envelope{Event: "menu", Payload: *h.lastMenu}); err == nil {
			c.enqueue(data)
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Debug("bridge client disconnected", "client", c.id)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("malformed bridge message", "client", c.id, "error", err)
			continue
		}
		h.handle(c, msg)
	}
}

func (h *Hub) handle(c *client, msg inbound) {
	switch msg.Type {
	case "menu-click":
		h.mu.Lock()
		d := h.dispatcher
		h.mu.Unlock()
		if d == nil {
			h.logger.Warn("menu click before router wired", "id", msg.ID)
			return
		}
		d.Dispatch(msg.ID)

	case "read-settings":
		h.sendTo(c, Envelope{Event: "settings", Payload: h.store.Read()})

	case "write-settings":
		var update settings.Document
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			h.logger.Warn("malformed settings write", "client", c.id, "error", err)
			return
		}
		result := h.store.WriteVersioned(update, msg.Version)
		h.sendTo(c, Envelope{Event: "settings-write-result", Payload: map[string]string{
			"result": result.String(),
		}})

	default:
		h.logger.Warn("unknown bridge message type", "type", msg.Type)
	}
}

func (h *Hub) sendTo(c *client, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to serialize bridge message", "event", env.Event, "error", err)
		return
	}
	c.enqueue(data)
}

// Emit broadcasts a named event to every connected client.
func (h *Hub) Emit(event string, payload any) error {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to serialize event %q: %w", event, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.enqueue(data)
	}
	return nil
}

// Eval asks the page to run a script.
func (h *Hub) Eval(js string) error {
	return h.Emit("eval", js)
}

// UpdateMenu pushes a new menu tree to every client and retains it for
// clients that connect later.
func (h *Hub) UpdateMenu(root menu.Item) error {
	data, err := json.Marshal(Envelope{Event: "menu", Payload: root})
	if err != nil {
		return fmt.Errorf("failed to serialize menu: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastMenu = &root
	for _, c := range h.clients {
		c.enqueue(data)
	}
	return nil
}

// enqueue drops the message when the client's buffer is full; a stalled
// page must not block the shell.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}
