package chat

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"relaychat/internal/app/history"
	"relaychat/internal/app/message"
	"relaychat/internal/app/presence"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Options tune a Manager.
type Options struct {
	// MaxContentBytes caps chat content; DefaultMaxContentBytes when zero.
	MaxContentBytes int
}

// Manager is the entry point of the relay core. It wires the registry, the
// history store, the router and the lifecycle coordinator together, and
// exposes the submission and query operations used by client handlers.
type Manager struct {
	registry    *presence.Registry
	store       *history.Store
	router      *Router
	coordinator *Coordinator

	// closed is set by Shutdown; submissions are rejected afterwards.
	closed atomic.Bool

	logger zerolog.Logger
}

var _ SessionListener = (*Manager)(nil)

// NewManager constructs a Manager delivering through transport.
func NewManager(registry *presence.Registry, store *history.Store, transport Transport, opts Options) *Manager {
	m := &Manager{
		registry:    registry,
		store:       store,
		router:      NewRouter(store, transport, opts.MaxContentBytes),
		coordinator: NewCoordinator(registry, transport),
		logger:      logx.Component("Manager"),
	}

	m.logger.Info().Int("max_content_bytes", m.router.maxContentBytes).Msg("Manager started.")

	return m
}

func (m *Manager) checkOpen() *errs.CustomError {
	if m.closed.Load() {
		return errs.NewError(errs.ErrShuttingDown)
	}
	return nil
}

// SubmitJoin marks userID online under displayName, bound to sessionID when
// one is given, and broadcasts the new online set. An empty displayName
// falls back to userID. The returned JOIN notice is stamped but not stored.
func (m *Manager) SubmitJoin(userID, displayName, sessionID string) (message.Message, *errs.CustomError) {
	if err := m.checkOpen(); err != nil {
		return message.Message{}, err
	}

	if userID == "" {
		return message.Message{}, errs.NewError(errs.ErrInvalidSender)
	}

	if displayName == "" {
		displayName = userID
	}

	m.registry.Join(userID, displayName, sessionID)

	m.logger.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Msg("User joined.")

	m.coordinator.BroadcastPresence()

	return m.router.Stamp(message.Message{Sender: userID, Content: displayName}, message.TypeJoin), nil
}

// SubmitLeave marks userID offline and broadcasts the new online set.
// Leaving twice is not an error.
func (m *Manager) SubmitLeave(userID string) (message.Message, *errs.CustomError) {
	if err := m.checkOpen(); err != nil {
		return message.Message{}, err
	}

	if userID == "" {
		return message.Message{}, errs.NewError(errs.ErrInvalidSender)
	}

	if m.registry.Leave(userID) {
		m.logger.Info().Str("user_id", userID).Msg("User left.")
	} else {
		m.logger.Debug().Str("user_id", userID).Msg("Leave for user that is not online.")
	}

	m.coordinator.BroadcastPresence()

	return m.router.Stamp(message.Message{Sender: userID}, message.TypeLeave), nil
}

// SubmitChat routes a direct message from sender to receiver.
func (m *Manager) SubmitChat(content, sender, receiver string) (message.Message, *errs.CustomError) {
	if err := m.checkOpen(); err != nil {
		return message.Message{}, err
	}

	return m.router.Route(message.Message{
		Content:  content,
		Sender:   sender,
		Receiver: receiver,
	})
}

// OnConnected implements SessionListener.
func (m *Manager) OnConnected(sessionID string) {
	m.coordinator.OnConnected(sessionID)
}

// OnDisconnected implements SessionListener. It keeps working after Shutdown
// so connections closed during shutdown still clean up.
func (m *Manager) OnDisconnected(sessionID string) {
	m.coordinator.OnDisconnected(sessionID)
}

// ListOnlineUsers returns a snapshot of userID -> display name.
func (m *Manager) ListOnlineUsers() map[string]string {
	return m.registry.OnlineUsers()
}

// OnlineCount returns the number of online users.
func (m *Manager) OnlineCount() int {
	return m.registry.Len()
}

// GetHistory returns the full log of userID.
func (m *Manager) GetHistory(userID string) []message.Message {
	return m.store.HistoryFor(userID)
}

// GetHistoryBetween returns the direct exchange between userID1 and userID2
// as recorded in userID1's log.
func (m *Manager) GetHistoryBetween(userID1, userID2 string) []message.Message {
	return m.store.HistoryBetween(userID1, userID2)
}

// ResolveSession returns the session userID is connected on.
func (m *Manager) ResolveSession(userID string) (string, bool) {
	return m.registry.ResolveSession(userID)
}

// Shutdown stops accepting submissions. It is safe to call more than once.
func (m *Manager) Shutdown() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	m.logger.Info().
		Int("online_users", m.registry.Len()).
		Msg("Manager shutdown complete.")
}
