package auth

import (
	"sync"

	"github.com/google/uuid"
)

// SessionManager tracks open sessions by id.
// Thread-safe через sync.Map: запись только при connect/disconnect.
type SessionManager struct {
	sessions sync.Map // map[uuid.UUID]*Session
}

// NewSessionManager создаёт новый SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Store registers s.
func (sm *SessionManager) Store(s *Session) {
	sm.sessions.Store(s.ID(), s)
}

// Get returns the session with id, or nil.
func (sm *SessionManager) Get(id uuid.UUID) *Session {
	v, ok := sm.sessions.Load(id)
	if !ok {
		return nil
	}
	return v.(*Session)
}

// Remove удаляет сессию.
func (sm *SessionManager) Remove(id uuid.UUID) {
	sm.sessions.Delete(id)
}

// Count возвращает количество открытых сессий.
func (sm *SessionManager) Count() int {
	count := 0
	sm.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
