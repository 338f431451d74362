package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const maxTotalConns = 10000

// ErrHubFull is returned when the connection limit is reached.
var ErrHubFull = errors.New("server connection limit reached")

// CatalogHub fans catalog events out to every connected client and
// notifications to the clients of one user. With Redis it relays what the
// subscriber receives, so every instance sees every event; without Redis it
// delivers in-process.
type CatalogHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
	closed  bool

	notifier *Notifier
	log      *observability.WSLogger
}

// NewCatalogHub creates a hub. notifier may be disabled.
func NewCatalogHub(notifier *Notifier) *CatalogHub {
	return &CatalogHub{
		clients:  make(map[*Client]struct{}),
		byUser:   make(map[string]map[*Client]struct{}),
		notifier: notifier,
		log:      observability.NewWSLogger("catalog"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *CatalogHub) Name() string { return "catalog hub" }

// Register attaches a websocket connection. userID is empty for anonymous
// viewers, who only receive catalog events.
func (h *CatalogHub) Register(conn *websocket.Conn, userID string) (*Client, error) {
	c := newClient(h, conn, uuid.NewString(), userID)
	if err := h.add(c); err != nil {
		return nil, err
	}
	h.log.LogConnect(context.Background(), c.ID)
	return c, nil
}

func (h *CatalogHub) add(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.clients) >= maxTotalConns {
		return ErrHubFull
	}
	h.clients[c] = struct{}{}
	if c.UserID != "" {
		m, ok := h.byUser[c.UserID]
		if !ok {
			m = make(map[*Client]struct{})
			h.byUser[c.UserID] = m
		}
		m[c] = struct{}{}
	}
	observability.WebSocketConnectionsTotal.Inc()
	return nil
}

// Unregister detaches the client and closes its send buffer.
func (h *CatalogHub) Unregister(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		if m, found := h.byUser[c.UserID]; found {
			delete(m, c)
			if len(m) == 0 {
				delete(h.byUser, c.UserID)
			}
		}
		close(c.send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.mu.Unlock()

	if ok {
		h.log.LogDisconnect(context.Background(), c.ID, reason)
	}
}

// ClientCount returns the number of connected clients.
func (h *CatalogHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *CatalogHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// SendToUser sends message to every connection of userID.
func (h *CatalogHub) SendToUser(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		c.TrySend(message)
	}
}

// PublishCatalogEvent announces a post change. A Redis failure falls back to
// local delivery so this instance's viewers still see it.
func (h *CatalogHub) PublishCatalogEvent(ctx context.Context, event models.CatalogEvent) {
	if h.notifier.Enabled() {
		err := h.notifier.PublishCatalogEvent(ctx, event)
		if err == nil {
			return
		}
		h.log.LogError(ctx, err, "publish_catalog_event")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.LogError(ctx, err, "marshal_catalog_event")
		return
	}
	h.BroadcastAll(payload)
}

// PublishUser delivers a notification to one user's connections.
func (h *CatalogHub) PublishUser(ctx context.Context, userID string, payload []byte) {
	if h.notifier.Enabled() {
		err := h.notifier.PublishUser(ctx, userID, payload)
		if err == nil {
			return
		}
		h.log.LogError(ctx, err, "publish_user")
	}
	h.SendToUser(userID, payload)
}

// Start wires the Redis subscriber to this hub. It is a no-op without Redis.
func (h *CatalogHub) Start(ctx context.Context) error {
	return h.notifier.StartSubscriber(ctx, h.dispatch)
}

func (h *CatalogHub) dispatch(channel, payload string) {
	if channel == CatalogChannel {
		h.BroadcastAll([]byte(payload))
		return
	}
	if userID, ok := userFromChannel(channel); ok {
		h.SendToUser(userID, []byte(payload))
	}
}

// Shutdown closes every client's send buffer, which makes its WritePump send
// a close frame, and refuses new registrations.
func (h *CatalogHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.byUser = make(map[string]map[*Client]struct{})
	h.mu.Unlock()
	return nil
}
