package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/presence"
	"relaychat/internal/pkg/logx"
)

// Coordinator turns transport session signals into registry updates and
// presence broadcasts. It keeps no state of its own; a session moves through
// connected, optionally joined, and disconnected, and only the registry
// records the joined part.
type Coordinator struct {
	registry  *presence.Registry
	transport Transport

	// presenceMu orders snapshots: each one is taken and handed to the
	// transport before the next is taken.
	presenceMu sync.Mutex

	logger zerolog.Logger
}

// NewCoordinator creates a Coordinator over registry and transport.
func NewCoordinator(registry *presence.Registry, transport Transport) *Coordinator {
	return &Coordinator{
		registry:  registry,
		transport: transport,
		logger:    logx.Component("Coordinator"),
	}
}

// OnConnected sends the new connection the current online set. Presence
// itself starts with an explicit join.
func (c *Coordinator) OnConnected(sessionID string) {
	c.logger.Info().Str("session_id", sessionID).Msg("Session connected.")

	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	c.transport.SendPresence(sessionID, c.registry.OnlineUsers())
}

// BroadcastPresence sends the current online set to every connection.
// The last snapshot handed out always reflects every registry change made
// before it.
func (c *Coordinator) BroadcastPresence() {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	c.BroadcastPresence()
}

// OnDisconnected removes the user bound to sessionID, if any, and broadcasts
// the updated online set. Unknown and repeated sessions are ignored.
func (c *Coordinator) OnDisconnected(sessionID string) {
	userID, ok := c.registry.Disconnect(sessionID)
	if !ok {
		c.logger.Debug().
			Str("session_id", sessionID).
			Msg("Disconnected session has no joined user. Nothing to clean up.")
		return
	}

	c.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", userID).
		Msg("User removed on disconnect.")

	c.transport.BroadcastPresence(c.registry.OnlineUsers())
}
