/*
Package history keeps the in-memory, append-only message log of every user.

A routed message is filed under its sender and, when it has one, under its
receiver. Logs are never reordered, compacted or persisted; they live for the
lifetime of the process.
*/
package history

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"relaychat/internal/app/message"
)

// userLog is the ordered log of one user. Appends to it are totally ordered by mu.
type userLog struct {
	mu       sync.RWMutex
	messages []message.Message
}

// Store maps user IDs to their logs.
type Store struct {
	// mu guards the logs map only; each log carries its own lock.
	mu   sync.RWMutex
	logs map[string]*userLog
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{logs: make(map[string]*userLog)}
}

// logFor returns the log of userID, creating it on first use.
func (s *Store) logFor(userID string) *userLog {
	s.mu.RLock()
	l, ok := s.logs[userID]
	s.mu.RUnlock()

	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok = s.logs[userID]; !ok {
		l = &userLog{}
		s.logs[userID] = l
	}
	return l
}

func (s *Store) lookup(userID string) *userLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.logs[userID]
}

// Append files msg under its sender and, if set, its receiver.
// A message sent to oneself therefore appears twice in that user's log.
func (s *Store) Append(msg message.Message) {
	s.appendTo(msg.Sender, msg)

	if msg.Receiver != "" {
		s.appendTo(msg.Receiver, msg)
	}
}

func (s *Store) appendTo(userID string, msg message.Message) {
	l := s.logFor(userID)

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

// HistoryFor returns a copy of the log of userID in append order.
// Unknown users get an empty, non-nil slice.
func (s *Store) HistoryFor(userID string) []message.Message {
	l := s.lookup(userID)
	if l == nil {
		return []message.Message{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := slices.Clone(l.messages)
	if out == nil {
		out = []message.Message{}
	}
	return out
}

// HistoryBetween returns the messages of userID1's log that were exchanged
// directly between userID1 and userID2, in either direction.
// Only userID1's log is searched.
func (s *Store) HistoryBetween(userID1, userID2 string) []message.Message {
	if userID2 == "" {
		return []message.Message{}
	}

	return lo.Filter(s.HistoryFor(userID1), func(m message.Message, _ int) bool {
		return m.IsBetween(userID1, userID2)
	})
}

// Len returns the number of entries in userID's log.
func (s *Store) Len(userID string) int {
	l := s.lookup(userID)
	if l == nil {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.messages)
}
