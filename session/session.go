// Package session holds what a client connection knows about its user:
// the chosen display name and the room currently open.
//
// A Session is created per client connection and dropped with Reset when the
// connection ends. Nothing is persisted.
package session

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"strings"
	"sync"
)

type Session struct {
	mu       sync.RWMutex
	identity *domain.Identity
	room     *domain.RoomID
}

func New() *Session {
	return &Session{}
}

// SetIdentity records the display name. Blank names are refused.
func (s *Session) SetIdentity(displayName string) (domain.Identity, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return domain.Identity{}, errors.ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &domain.Identity{DisplayName: name}
	return *s.identity, nil
}

// RequireIdentity fails with errors.ErrNoIdentity until a name was set.
func (s *Session) RequireIdentity() (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.Identity{}, errors.ErrNoIdentity
	}
	return *s.identity, nil
}

func (s *Session) EnterRoom(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = &id
}

func (s *Session) CurrentRoom() (domain.RoomID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room == nil {
		return 0, false
	}
	return *s.room, true
}

func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = nil
}

// Reset forgets the identity and the room.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.room = nil
}
