package runtime

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func posted(room domain.RoomID, author string) event.MessagePosted {
	return event.MessagePosted{Message: domain.Message{ID: uuid.New(), RoomID: room, Author: author}}
}

func TestRegistry_Publish_Filters_By_Topic_And_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))

	var room1, all, rooms []event.Change
	_, err := registry.Listen(event.TopicMessages, event.ForRoom(1), func(c event.Change) { room1 = append(room1, c) })
	req.NoError(err)
	_, err = registry.Listen(event.TopicMessages, event.AllRows(), func(c event.Change) { all = append(all, c) })
	req.NoError(err)
	_, err = registry.Listen(event.TopicRooms, event.AllRows(), func(c event.Change) { rooms = append(rooms, c) })
	req.NoError(err)

	// When messages are published in two rooms
	registry.Publish(posted(1, "Alice"))
	registry.Publish(posted(2, "Bob"))
	registry.Publish(posted(1, "Clara"))

	// Then the room listener only sees its own room, in publish order
	req.Len(room1, 2)
	req.Equal("Alice", room1[0].Event.(event.MessagePosted).Message.Author)
	req.Equal("Clara", room1[1].Event.(event.MessagePosted).Message.Author)
	req.Len(all, 3)
	// And the rooms topic saw nothing
	req.Empty(rooms)
}

func TestRegistry_Cancel_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	count := 0
	cancel, err := registry.Listen(event.TopicMessages, event.AllRows(), func(event.Change) { count++ })
	req.NoError(err)
	req.Equal(1, registry.Count(event.TopicMessages))

	cancel()
	cancel()

	registry.Publish(posted(1, "Alice"))
	req.Zero(count)
	req.Zero(registry.Count(event.TopicMessages))
}

func TestRegistry_Broadcasts_Connection_Status(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	var kinds []event.ChangeKind
	_, _ = registry.Listen(event.TopicMessages, event.ForRoom(3), func(c event.Change) { kinds = append(kinds, c.Kind) })
	_, _ = registry.Listen(event.TopicRooms, event.AllRows(), func(c event.Change) { kinds = append(kinds, c.Kind) })

	registry.Disconnected(errors.New("connection reset"))
	registry.Reconnected()

	req.ElementsMatch([]event.ChangeKind{
		event.ChangeDisconnected, event.ChangeDisconnected,
		event.ChangeReconnected, event.ChangeReconnected,
	}, kinds)
}
