package postgres

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/errors"
	"chat-sync/runtime"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotification_Room(t *testing.T) {
	req := require.New(t)
	payload := `{"id":1,"name":"general","created_at":"2024-05-01T10:00:00.123456+02:00"}`

	e, err := decodeNotification("chat_rooms", []byte(payload))

	req.NoError(err)
	created, ok := e.(event.RoomCreated)
	req.True(ok)
	req.Equal(domain.RoomID(1), created.Room.ID)
	req.Equal("general", created.Room.Name)
	req.Equal(time.Date(2024, 5, 1, 8, 0, 0, 123456000, time.UTC), created.Room.CreatedAt)
}

func TestDecodeNotification_Message(t *testing.T) {
	req := require.New(t)
	id := uuid.New()
	payload := `{"id":"` + id.String() + `","chat_room_id":10,"user_name":"Bob",` +
		`"content":"hi \"all\"","created_at":"2024-05-01T10:00:00+00:00"}`

	e, err := decodeNotification("messages", []byte(payload))

	req.NoError(err)
	posted, ok := e.(event.MessagePosted)
	req.True(ok)
	req.Equal(id, posted.Message.ID)
	req.Equal(domain.RoomID(10), posted.RoomID())
	req.Equal("Bob", posted.Message.Author)
	req.Equal(`hi "all"`, posted.Message.Body)
	req.True(event.ForRoom(10).Match(e))
	req.False(event.ForRoom(1).Match(e))
}

func TestDecodeNotification_Errors(t *testing.T) {
	req := require.New(t)

	_, err := decodeNotification("users", []byte(`{}`))
	req.ErrorIs(err, errors.ErrUnknownTopic)

	_, err = decodeNotification("messages", []byte(`{"id":"not-a-uuid"}`))
	req.Error(err)
}

func TestListener_Listen_Unknown_Topic(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry(slog.Default())
	listener := NewListener(slog.Default(), "postgres://unused", registry)

	_, err := listener.Listen("users", event.AllRows(), func(event.Change) {})
	req.ErrorIs(err, errors.ErrUnknownTopic)

	cancel, err := listener.Listen(event.TopicMessages, event.ForRoom(1), func(event.Change) {})
	req.NoError(err)
	req.Equal(1, registry.Count(event.TopicMessages))
	cancel()
	req.Zero(registry.Count(event.TopicMessages))
}
