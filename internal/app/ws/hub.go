package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/message"
	"relaychat/internal/pkg/logx"
)

// SessionResolver finds the session a user is connected on.
type SessionResolver interface {
	ResolveSession(userID string) (string, bool)
}

// Hub keeps the table of live clients keyed by session handle.
type Hub struct {
	// clients holds every registered connection, joined or not.
	clients map[string]*Client

	// closed is set by Shutdown; later registrations are refused.
	closed bool

	// mu protects clients and closed.
	mu sync.RWMutex

	resolver SessionResolver

	// sendBuffer is the send queue length of new clients.
	sendBuffer int

	logger zerolog.Logger
}

var _ chat.Transport = (*Hub)(nil)

// NewHub creates a Hub that resolves recipients through resolver.
func NewHub(resolver SessionResolver, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Hub{
		clients:    make(map[string]*Client),
		resolver:   resolver,
		sendBuffer: sendBuffer,
		logger:     logx.Component("Hub"),
	}
}

// Register adds c to the live table. It reports false once the hub has shut down.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Debug().Str("session_id", c.sessionID).Msg("Register after shutdown refused.")
		return false
	}
	h.clients[c.sessionID] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("session_id", c.sessionID).
		Int("total_clients", total).
		Msg("Client registered.")

	return true
}

// Unregister removes c and closes its send queue. Stale or repeated calls are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.sessionID]
	if ok && current == c {
		delete(h.clients, c.sessionID)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok || current != c {
		h.logger.Debug().Str("session_id", c.sessionID).Msg("Unregister for unknown or stale client ignored.")
		return
	}

	c.closeSend()

	h.logger.Debug().
		Str("session_id", c.sessionID).
		Int("total_clients", total).
		Msg("Client unregistered.")
}

// Client returns the live client of sessionID.
func (h *Hub) Client(sessionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[sessionID]
	return c, ok
}

// Len returns the number of live clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// DeliverToUser queues msg on the connection userID is bound to.
// Offline users and full queues drop the message.
func (h *Hub) DeliverToUser(userID string, msg message.Message) {
	sessionID, ok := h.resolver.ResolveSession(userID)
	if !ok {
		h.logger.Debug().
			Str("user_id", userID).
			Str("message_id", msg.ID).
			Msg("Recipient has no live session. Delivery skipped.")
		return
	}

	c, ok := h.Client(sessionID)
	if !ok {
		h.logger.Debug().
			Str("user_id", userID).
			Str("session_id", sessionID).
			Msg("Recipient session is not connected. Delivery skipped.")
		return
	}

	c.queue(FrameMessage, msg)
}

// BroadcastPresence queues the online snapshot on every live connection.
func (h *Hub) BroadcastPresence(online map[string]string) {
	frame, err := encode(FrameUsers, online)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling presence for broadcast.")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(frame)
	}

	h.logger.Debug().
		Int("online_users", len(online)).
		Int("recipients", len(targets)).
		Msg("Presence broadcast.")
}

// SendPresence queues the online snapshot on the connection of sessionID only.
func (h *Hub) SendPresence(sessionID string, online map[string]string) {
	c, ok := h.Client(sessionID)
	if !ok {
		h.logger.Debug().Str("session_id", sessionID).Msg("Presence for unknown session skipped.")
		return
	}

	c.queue(FrameUsers, online)
}

// Shutdown closes the send queue of every client; their write pumps then
// send a close frame and end the connection. Clients arriving afterwards are refused.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}

	h.logger.Info().Int("closed_clients", len(clients)).Msg("Hub shutdown complete.")
}
