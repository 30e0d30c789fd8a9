package client

import (
	"chat-sync/channel"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/mocks"
	"chat-sync/notification"
	"chat-sync/repositories"
	"chat-sync/runtime"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newClient(t *testing.T, navigator *mocks.MockNavigator) (*Client, *repositories.MessageRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	log := slog.Default()
	registry := runtime.NewRegistry(log)
	rooms, err := repositories.NewRoomRepository(db, log, registry)
	require.NoError(t, err)
	messages := repositories.NewMessageRepository(db, log, registry, nil)
	adapter := channel.NewAdapter(log, registry, 16)
	c := New(log, rooms, messages, adapter, notification.SilentPlayer{}, nil, navigator)
	t.Cleanup(func() {
		c.Close()
		adapter.Close()
		_ = rooms.Close()
		_ = db.Close()
	})
	return c, messages
}

func TestClient_Create_Join_And_Talk(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	navigator := mocks.NewMockNavigator(ctrl)
	navigator.EXPECT().RedirectHome(gomock.Any()).Times(0)
	c, messages := newClient(t, navigator)
	req.NoError(c.Open(ctx))

	// Given Alice created "general"
	_, err := c.SetName("  Alice ")
	req.NoError(err)
	_, err = c.CreateRoom(ctx, "general")
	req.NoError(err)
	req.Eventually(func() bool { return len(c.Rooms()) == 1 }, time.Second, 5*time.Millisecond)

	// When she joins and Bob answers
	room, err := c.JoinRoom(ctx, c.Rooms()[0].ID)
	req.NoError(err)
	req.Equal("general", room.Name)
	req.NoError(c.Say(ctx, "hello"))
	req.Empty(c.Draft())
	_, err = messages.AppendMessage(ctx, room.ID, "Bob", "hi Alice")
	req.NoError(err)

	// Then both messages are shown in order
	req.Eventually(func() bool { return len(c.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal("Alice", c.Messages()[0].Author)
	req.Equal("Bob", c.Messages()[1].Author)
}

func TestClient_Join_Without_Identity_Redirects(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	navigator := mocks.NewMockNavigator(ctrl)
	c, _ := newClient(t, navigator)

	var reason error
	navigator.EXPECT().RedirectHome(gomock.Any()).Do(func(err error) { reason = err }).Times(1)

	_, err := c.JoinRoom(context.Background(), 1)

	req.ErrorIs(err, errors.ErrNoIdentity)
	req.ErrorIs(reason, errors.ErrNoIdentity)
}

func TestClient_Join_Unknown_Room_Redirects(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	navigator := mocks.NewMockNavigator(ctrl)
	c, _ := newClient(t, navigator)
	_, err := c.SetName("Alice")
	req.NoError(err)

	var reason error
	navigator.EXPECT().RedirectHome(gomock.Any()).Do(func(err error) { reason = err }).Times(1)

	_, err = c.JoinRoom(context.Background(), 404)

	req.ErrorIs(err, errors.ErrRoomNotFound)
	req.ErrorIs(reason, errors.ErrRoomNotFound)
	_, ok := c.CurrentRoom()
	req.False(ok)
}

func TestClient_Refused_Inputs(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	c, _ := newClient(t, mocks.NewMockNavigator(ctrl))

	// Without a name nothing can be created
	_, err := c.CreateRoom(ctx, "general")
	req.ErrorIs(err, errors.ErrNoIdentity)

	_, err = c.SetName(" ")
	req.ErrorIs(err, errors.ErrNoIdentity)
	_, err = c.SetName(strings.Repeat("a", 65))
	req.Error(err)
	_, err = c.SetName("Alice")
	req.NoError(err)

	_, err = c.CreateRoom(ctx, strings.Repeat("r", 101))
	req.Error(err)
	_, err = c.CreateRoom(ctx, " ")
	req.ErrorIs(err, errors.ErrEmptyRoomName)

	// Sending needs an open room
	req.ErrorIs(c.Say(ctx, "hello"), errors.ErrNotInRoom)
	req.Equal("hello", c.Draft())
}

func TestClient_Sound_Toggle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	c, _ := newClient(t, mocks.NewMockNavigator(ctrl))
	req.False(c.Sound().Enabled)

	enabled, err := c.EnableSound(context.Background())
	req.NoError(err)
	req.True(enabled)
	req.Equal(domain.NotificationState{Enabled: true, Primed: true}, c.Sound())

	c.DisableSound()
	req.Equal(domain.NotificationState{Enabled: false, Primed: true}, c.Sound())
}

func TestClient_Failed_Join_Leaves_No_Room_To_Send_To(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	log := slog.Default()
	adapter := channel.NewAdapter(log, runtime.NewRegistry(log), 16)
	defer adapter.Close()
	rooms := mocks.NewMockIRoomStore(ctrl)
	messages := mocks.NewMockIMessageStore(ctrl)
	navigator := mocks.NewMockNavigator(ctrl)
	c := New(log, rooms, messages, adapter, notification.SilentPlayer{}, nil, navigator)
	defer c.Close()
	_, err := c.SetName("Alice")
	req.NoError(err)

	rooms.EXPECT().GetRoom(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.RoomID) (domain.Room, error) {
			return domain.Room{ID: id, Name: id.String()}, nil
		}).Times(2)
	messages.EXPECT().ListMessages(gomock.Any(), domain.RoomID(1)).Return(nil, nil).Times(1)
	// Given the history of room 2 cannot be fetched
	messages.EXPECT().ListMessages(gomock.Any(), domain.RoomID(2)).
		Return(nil, stderrors.New("timeout")).Times(1)
	navigator.EXPECT().RedirectHome(gomock.Any()).Times(0)
	messages.EXPECT().AppendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err = c.JoinRoom(ctx, 1)
	req.NoError(err)

	// When joining room 2 fails
	_, err = c.JoinRoom(ctx, 2)
	req.Error(err)

	// Then no room is open and nothing is written to room 1
	_, ok := c.CurrentRoom()
	req.False(ok)
	req.ErrorIs(c.Say(ctx, "hello"), errors.ErrNotInRoom)
	req.Equal("hello", c.Draft())
}

func TestClient_Body_Limit_Counts_Bytes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	c, messages := newClient(t, mocks.NewMockNavigator(ctrl))
	req.NoError(c.Open(ctx))
	_, err := c.SetName("Alice")
	req.NoError(err)
	room, err := c.CreateRoom(ctx, "general")
	req.NoError(err)
	_, err = c.JoinRoom(ctx, room.ID)
	req.NoError(err)

	// 2001 runes but 4002 bytes
	req.Error(c.Say(ctx, strings.Repeat("é", 2001)))
	req.NoError(c.Say(ctx, strings.Repeat("é", 2000)))

	history, err := messages.ListMessages(ctx, room.ID)
	req.NoError(err)
	req.Len(history, 1)
}
