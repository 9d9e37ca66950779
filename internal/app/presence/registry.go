/*
Package presence maintains the online-user set and the bidirectional mapping
between user identities and the transport sessions they are connected on.

State is split across lock stripes. A user key and a session key each hash to
one stripe; every mutation write-locks the stripes of all keys it touches, in
ascending stripe order, so operations on unrelated identities do not contend
while operations on the same identity serialize.
*/
package presence

import (
	"maps"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

// DefaultStripes is the stripe count used when NewRegistry is given a non-positive value.
const DefaultStripes = 64

// stripe holds the slice of registry state whose keys hash to it.
// names and userSession are keyed by user, sessionUser by session.
type stripe struct {
	mu sync.RWMutex

	names       map[string]string
	userSession map[string]string
	sessionUser map[string]string
}

// Registry is the single source of truth for who is online.
// Invariant: userSession[u] == s if and only if sessionUser[s] == u.
type Registry struct {
	stripes []*stripe
}

// NewRegistry creates an empty registry split into n stripes.
func NewRegistry(n int) *Registry {
	if n <= 0 {
		n = DefaultStripes
	}

	r := &Registry{stripes: make([]*stripe, n)}
	for i := range r.stripes {
		r.stripes[i] = &stripe{
			names:       make(map[string]string),
			userSession: make(map[string]string),
			sessionUser: make(map[string]string),
		}
	}

	return r
}

func (r *Registry) index(prefix byte, key string) int {
	d := xxhash.New()
	_, _ = d.Write([]byte{prefix})
	_, _ = d.WriteString(key)
	return int(d.Sum64() % uint64(len(r.stripes)))
}

func (r *Registry) userIdx(userID string) int {
	return r.index('u', userID)
}

func (r *Registry) sessionIdx(sessionID string) int {
	return r.index('s', sessionID)
}

// lock write-locks the given stripes in ascending order and returns the unlock func.
func (r *Registry) lock(idx ...int) func() {
	idx = lo.Uniq(idx)
	slices.Sort(idx)

	for _, i := range idx {
		r.stripes[i].mu.Lock()
	}

	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			r.stripes[idx[j]].mu.Unlock()
		}
	}
}

// Join registers userID as online under displayName.
// A non-empty sessionID binds the user to that session, replacing any
// previous session of the user. If the session was bound to another user,
// that user goes offline: its presence came from the session it lost.
// An empty sessionID only updates the presence entry.
func (r *Registry) Join(userID, displayName, sessionID string) {
	us := r.stripes[r.userIdx(userID)]

	if sessionID == "" {
		unlock := r.lock(r.userIdx(userID))
		us.names[userID] = displayName
		unlock()
		return
	}

	ss := r.stripes[r.sessionIdx(sessionID)]

	for {
		oldSession, hadSession := r.ResolveSession(userID)
		oldOwner, hadOwner := r.ResolveUser(sessionID)

		idx := []int{r.userIdx(userID), r.sessionIdx(sessionID)}
		if hadSession {
			idx = append(idx, r.sessionIdx(oldSession))
		}
		if hadOwner {
			idx = append(idx, r.userIdx(oldOwner))
		}

		unlock := r.lock(idx...)

		curSession, curHadSession := us.userSession[userID]
		curOwner, curHadOwner := ss.sessionUser[sessionID]
		if curSession != oldSession || curHadSession != hadSession ||
			curOwner != oldOwner || curHadOwner != hadOwner {
			// a concurrent call moved a related key; retry with fresh keys
			unlock()
			continue
		}

		if hadSession && oldSession != sessionID {
			delete(r.stripes[r.sessionIdx(oldSession)].sessionUser, oldSession)
		}
		if hadOwner && oldOwner != userID {
			prev := r.stripes[r.userIdx(oldOwner)]
			delete(prev.userSession, oldOwner)
			delete(prev.names, oldOwner)
		}

		us.names[userID] = displayName
		us.userSession[userID] = sessionID
		ss.sessionUser[sessionID] = userID

		unlock()
		return
	}
}

// Leave removes the presence entry of userID and its session mapping.
// It reports whether the user was present; leaving an absent user is a no-op.
func (r *Registry) Leave(userID string) bool {
	us := r.stripes[r.userIdx(userID)]

	for {
		session, hadSession := r.ResolveSession(userID)

		idx := []int{r.userIdx(userID)}
		if hadSession {
			idx = append(idx, r.sessionIdx(session))
		}

		unlock := r.lock(idx...)

		cur, curHad := us.userSession[userID]
		if cur != session || curHad != hadSession {
			unlock()
			continue
		}

		_, present := us.names[userID]
		delete(us.names, userID)
		delete(us.userSession, userID)
		if hadSession {
			delete(r.stripes[r.sessionIdx(session)].sessionUser, session)
		}

		unlock()
		return present
	}
}

// Disconnect resolves sessionID to its user and removes that user as Leave
// would. It returns the removed user, or ok=false when the session is not
// bound to anyone (never joined, already left, duplicate signal).
func (r *Registry) Disconnect(sessionID string) (userID string, ok bool) {
	ss := r.stripes[r.sessionIdx(sessionID)]

	for {
		owner, bound := r.ResolveUser(sessionID)
		if !bound {
			return "", false
		}

		unlock := r.lock(r.sessionIdx(sessionID), r.userIdx(owner))

		cur, stillBound := ss.sessionUser[sessionID]
		if !stillBound {
			unlock()
			return "", false
		}
		if cur != owner {
			unlock()
			continue
		}

		us := r.stripes[r.userIdx(owner)]
		delete(ss.sessionUser, sessionID)
		delete(us.userSession, owner)
		delete(us.names, owner)

		unlock()
		return owner, true
	}
}

// ResolveUser returns the user bound to sessionID.
func (r *Registry) ResolveUser(sessionID string) (string, bool) {
	s := r.stripes[r.sessionIdx(sessionID)]

	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.sessionUser[sessionID]
	return userID, ok
}

// ResolveSession returns the session userID is bound to.
func (r *Registry) ResolveSession(userID string) (string, bool) {
	s := r.stripes[r.userIdx(userID)]

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, ok := s.userSession[userID]
	return sessionID, ok
}

// OnlineUsers returns a copy of the online set, userID -> display name.
// Stripes are copied one at a time under a read lock.
func (r *Registry) OnlineUsers() map[string]string {
	online := make(map[string]string)

	for _, s := range r.stripes {
		s.mu.RLock()
		maps.Copy(online, s.names)
		s.mu.RUnlock()
	}

	return online
}

// Len returns the number of presence entries.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.stripes {
		s.mu.RLock()
		n += len(s.names)
		s.mu.RUnlock()
	}
	return n
}
