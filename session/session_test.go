package session

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_RequireIdentity(t *testing.T) {
	req := require.New(t)
	s := New()

	// Given a fresh session
	_, err := s.RequireIdentity()
	req.ErrorIs(err, errors.ErrNoIdentity)

	// When a blank name is given, it is refused
	_, err = s.SetIdentity("   ")
	req.ErrorIs(err, errors.ErrNoIdentity)

	// When a name is given
	identity, err := s.SetIdentity("  Alice ")
	req.NoError(err)
	req.Equal(domain.Identity{DisplayName: "Alice"}, identity)

	got, err := s.RequireIdentity()
	req.NoError(err)
	req.Equal("Alice", got.DisplayName)
}

func TestSession_Room_Survives_Until_Reset(t *testing.T) {
	req := require.New(t)
	s := New()
	_, _ = s.SetIdentity("Alice")

	_, ok := s.CurrentRoom()
	req.False(ok)

	s.EnterRoom(3)
	room, ok := s.CurrentRoom()
	req.True(ok)
	req.Equal(domain.RoomID(3), room)

	s.LeaveRoom()
	_, ok = s.CurrentRoom()
	req.False(ok)
	_, err := s.RequireIdentity()
	req.NoError(err)

	s.EnterRoom(4)
	s.Reset()
	_, ok = s.CurrentRoom()
	req.False(ok)
	_, err = s.RequireIdentity()
	req.ErrorIs(err, errors.ErrNoIdentity)
}
