// internal/store/memory.go
//
// In-memory registry of game sessions, one per conversation.
//
// Characteristics:
//   - Sessions are created lazily (Idle) on first access and live for the
//     process lifetime; a new /start supersedes the old record in place.
//   - Each session has its own mutex. Acquire holds it until the returned
//     release func is called, so a read-modify-write on one chat is atomic
//     with respect to other events for that chat.
//   - The registry map itself is guarded by a separate mutex that is only
//     held for the lookup, so different chats never block each other.

package store

import (
	"sync"

	"github.com/robalobadob/idiomchain/internal/game"
)

type slot struct {
	mu   sync.Mutex
	sess game.Session
}

// Memory is a map-based session registry implementing game.Sessions.
type Memory struct {
	mu    sync.Mutex       // guards slots
	slots map[string]*slot // keyed by chat ID
}

// NewMemory constructs an empty registry.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

func (m *Memory) slot(chatID string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[chatID]
	if !ok {
		s = &slot{sess: game.Session{ChatID: chatID, State: game.StateIdle}}
		m.slots[chatID] = s
	}
	return s
}

// Acquire locks the session for chatID and returns it for mutation. The
// caller must call release exactly once.
func (m *Memory) Acquire(chatID string) (*game.Session, func()) {
	s := m.slot(chatID)
	s.mu.Lock()
	return &s.sess, s.mu.Unlock
}

// Get returns a copy of the session for chatID without creating one.
func (m *Memory) Get(chatID string) (game.Session, bool) {
	m.mu.Lock()
	s, ok := m.slots[chatID]
	m.mu.Unlock()
	if !ok {
		return game.Session{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess, true
}

// Len reports how many conversations have a session record.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
