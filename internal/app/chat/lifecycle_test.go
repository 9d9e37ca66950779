package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/history"
	"relaychat/internal/app/presence"
)

func TestCoordinator_OnDisconnected_RemovesAndBroadcasts(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry(4)
	transport := &recordingTransport{}
	c := NewCoordinator(registry, transport)
	registry.Join("alice", "Alice", "s1")
	registry.Join("bob", "Bob", "s2")

	c.OnConnected("s3")
	req.Zero(transport.broadcastCount())
	req.Equal([]map[string]string{{"alice": "Alice", "bob": "Bob"}}, transport.directTo("s3"))

	c.OnDisconnected("s1")

	req.Equal(map[string]string{"bob": "Bob"}, registry.OnlineUsers())
	req.Equal(1, transport.broadcastCount())
	req.Equal(map[string]string{"bob": "Bob"}, transport.lastBroadcast())
}

func TestCoordinator_OnDisconnected_UnknownOrRepeatedIsNoop(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry(4)
	transport := &recordingTransport{}
	c := NewCoordinator(registry, transport)
	registry.Join("alice", "Alice", "s1")

	// never joined
	c.OnDisconnected("s-unknown")
	req.Zero(transport.broadcastCount())
	req.Equal(1, registry.Len())

	c.OnDisconnected("s1")
	c.OnDisconnected("s1")

	req.Equal(1, transport.broadcastCount())
	req.Zero(registry.Len())
}

func TestCoordinator_OnDisconnected_RacingJoin(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry(4)
	c := NewCoordinator(registry, &recordingTransport{})

	var wg sync.WaitGroup
	for range 200 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Join("alice", "Alice", "s1")
		}()
		go func() {
			defer wg.Done()
			c.OnDisconnected("s1")
		}()
	}
	wg.Wait()

	// whichever ran last decides, but never a half-removed mapping
	session, bound := registry.ResolveSession("alice")
	owner, owned := registry.ResolveUser("s1")
	req.Equal(bound, owned)
	if bound {
		req.Equal("s1", session)
		req.Equal("alice", owner)
		req.Equal(map[string]string{"alice": "Alice"}, registry.OnlineUsers())
	} else {
		req.Empty(registry.OnlineUsers())
	}
}

func TestCoordinator_OnDisconnected_AfterSessionSwitchedUser(t *testing.T) {
	req := require.New(t)
	transport := &recordingTransport{}
	m := NewManager(presence.NewRegistry(4), history.NewStore(), transport, Options{})

	// Given one connection that joined as alice and then as bob
	_, err := m.SubmitJoin("alice", "Alice", "s1")
	req.Nil(err)
	_, err = m.SubmitJoin("bob", "Bob", "s1")
	req.Nil(err)
	req.Equal(map[string]string{"bob": "Bob"}, m.ListOnlineUsers())

	// When the connection closes
	m.OnDisconnected("s1")

	// Then nobody is left online
	req.Empty(m.ListOnlineUsers())
	req.Empty(transport.lastBroadcast())
	_, ok := m.ResolveSession("alice")
	req.False(ok)
}

func TestCoordinator_LastBroadcastMatchesRegistry(t *testing.T) {
	req := require.New(t)
	transport := &recordingTransport{}
	m := NewManager(presence.NewRegistry(8), history.NewStore(), transport, Options{})

	// Given joins, leaves and disconnects racing on overlapping users
	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				user := fmt.Sprintf("u%d", (worker+i)%5)
				session := fmt.Sprintf("s%d", worker)
				switch i % 3 {
				case 0:
					_, _ = m.SubmitJoin(user, user, session)
				case 1:
					_, _ = m.SubmitLeave(user)
				case 2:
					m.OnDisconnected(session)
				}
			}
		}()
	}
	wg.Wait()

	// Then the last snapshot handed out is the final online set
	req.Positive(transport.broadcastCount())
	req.Equal(m.ListOnlineUsers(), transport.lastBroadcast())
}
