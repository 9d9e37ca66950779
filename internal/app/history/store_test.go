package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/message"
)

func chat(id, sender, receiver string) message.Message {
	return message.Message{
		ID:        id,
		Content:   "content of " + id,
		Sender:    sender,
		Receiver:  receiver,
		Timestamp: time.Unix(1700000000, 0),
		Type:      message.TypeChat,
	}
}

func TestStore_Append_FilesUnderSenderAndReceiver(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	m := chat("m1", "alice", "bob")

	s.Append(m)

	req.Equal([]message.Message{m}, s.HistoryFor("alice"))
	req.Equal([]message.Message{m}, s.HistoryFor("bob"))
	req.Empty(s.HistoryFor("carol"))
}

func TestStore_Append_EmptyReceiverStoredOnce(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	s.Append(chat("m0", "bob", "carol"))

	s.Append(chat("m1", "alice", ""))

	req.Equal(1, s.Len("alice"))
	req.Equal(1, s.Len("bob"))
	req.Equal(1, s.Len("carol"))
	req.Zero(s.Len(""))
}

func TestStore_Append_SelfMessageStoredTwice(t *testing.T) {
	s := NewStore()

	s.Append(chat("m1", "alice", "alice"))

	require.Equal(t, 2, s.Len("alice"))
}

func TestStore_HistoryFor_UnknownUserIsEmptyNotNil(t *testing.T) {
	h := NewStore().HistoryFor("nobody")

	require.NotNil(t, h)
	require.Empty(t, h)
}

func TestStore_HistoryFor_ReturnsCopy(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	s.Append(chat("m1", "alice", "bob"))

	h := s.HistoryFor("alice")
	h[0].Content = "tampered"
	_ = append(h, chat("m2", "alice", "bob"))

	req.Equal("content of m1", s.HistoryFor("alice")[0].Content)
	req.Equal(1, s.Len("alice"))
}

func TestStore_HistoryBetween_SubsequenceInOrder(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	s.Append(chat("m1", "alice", "bob"))
	s.Append(chat("m2", "alice", "carol"))
	s.Append(chat("m3", "bob", "alice"))
	s.Append(chat("m4", "alice", ""))
	s.Append(chat("m5", "carol", "alice"))
	s.Append(chat("m6", "alice", "bob"))

	between := s.HistoryBetween("alice", "bob")

	ids := make([]string, 0, len(between))
	for _, m := range between {
		ids = append(ids, m.ID)
	}
	req.Equal([]string{"m1", "m3", "m6"}, ids)
}

func TestStore_HistoryBetween_OnlySearchesFirstUsersLog(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	s.Append(chat("m1", "alice", "bob"))

	// dave has no log, so nothing is found even though bob's log has a match
	req.Empty(s.HistoryBetween("dave", "bob"))
	req.Len(s.HistoryBetween("bob", "alice"), 1)
	req.Empty(s.HistoryBetween("alice", ""))
}

func TestStore_ConcurrentAppends_PerKeyOrder(t *testing.T) {
	req := require.New(t)
	s := NewStore()

	const senders = 8
	const perSender = 200

	var wg sync.WaitGroup
	for i := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sender := fmt.Sprintf("user-%d", i)
			for n := range perSender {
				s.Append(chat(fmt.Sprintf("%s-%03d", sender, n), sender, "hub"))
			}
		}()
	}
	wg.Wait()

	req.Equal(senders*perSender, s.Len("hub"))

	for i := range senders {
		sender := fmt.Sprintf("user-%d", i)
		h := s.HistoryFor(sender)
		req.Len(h, perSender)
		for n, m := range h {
			req.Equal(fmt.Sprintf("%s-%03d", sender, n), m.ID)
		}
	}
}
