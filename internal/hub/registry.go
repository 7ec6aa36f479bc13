package hub

import (
	"iter"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// Channel is a live, duplex connection that events can be pushed to.
// Push must not block: it either queues the message or fails.
type Channel interface {
	ID() string
	Push(message interface{}) error
}

type entry struct {
	userID  string
	channel Channel
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry // token -> entry
}

// Registry maps connection tokens to (user, channel) pairs. It lives for the
// whole process and is never persisted. Tokens are spread over fixed shards
// so logins of unrelated users rarely contend on the same lock.
type Registry struct {
	shards [shardCount]*shard
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return r
}

func (r *Registry) shardFor(token string) *shard {
	return r.shards[xxhash.Sum64String(token)%shardCount]
}

// Register binds token to userID and channel, replacing any previous entry
// for the token. One user may hold many tokens.
func (r *Registry) Register(token, userID string, ch Channel) {
	s := r.shardFor(token)
	s.mu.Lock()
	s.entries[token] = entry{userID: userID, channel: ch}
	s.mu.Unlock()
}

// Unregister removes token. It reports whether an entry was removed.
func (r *Registry) Unregister(token string) bool {
	s := r.shardFor(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[token]; !ok {
		return false
	}
	delete(s.entries, token)
	return true
}

// UnregisterChannel removes every entry that points at ch and returns how
// many were removed.
func (r *Registry) UnregisterChannel(ch Channel) int {
	id := ch.ID()
	removed := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for token, e := range s.entries {
			if e.channel.ID() == id {
				delete(s.entries, token)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// LookupByUser yields every live channel registered for userID. Each shard
// is snapshotted under its read lock and yielded after the lock is
// released, so callers may push or even unregister while iterating.
func (r *Registry) LookupByUser(userID string) iter.Seq[Channel] {
	return func(yield func(Channel) bool) {
		var matches []Channel
		for _, s := range r.shards {
			matches = matches[:0]
			s.mu.RLock()
			for _, e := range s.entries {
				if e.userID == userID {
					matches = append(matches, e.channel)
				}
			}
			s.mu.RUnlock()

			for _, ch := range matches {
				if !yield(ch) {
					return
				}
			}
		}
	}
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
