// Package client wires the synchronization engine for one client connection.
//
// A Client owns a session, the room directory, the message stream of the open
// room and the notification gate. Missing identity and unknown rooms on join
// are sent back home through the Navigator.
package client

import (
	"chat-sync/contract"
	"chat-sync/directory"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/notification"
	"chat-sync/session"
	"chat-sync/stream"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
)

type Client struct {
	log       *slog.Logger
	session   *session.Session
	directory *directory.Directory
	stream    *stream.Stream
	composer  *stream.Composer
	gate      *notification.Gate
	navigator contract.Navigator
}

func New(log *slog.Logger, rooms contract.IRoomStore, messages contract.IMessageStore,
	channel contract.IChannel, player contract.IPlayer,
	presenter contract.Presenter, navigator contract.Navigator) *Client {
	gate := notification.NewGate(log, player)
	s := stream.New(log, rooms, messages, channel, gate, presenter)
	return &Client{
		log:       log,
		session:   session.New(),
		directory: directory.New(log, rooms, channel),
		stream:    s,
		composer:  stream.NewComposer(s),
		gate:      gate,
		navigator: navigator,
	}
}

// Open starts following the room list.
func (c *Client) Open(ctx context.Context) error {
	return c.directory.Open(ctx)
}

func (c *Client) SetName(name string) (domain.Identity, error) {
	if err := validateDisplayName(name); err != nil {
		return domain.Identity{}, err
	}
	return c.session.SetIdentity(name)
}

func (c *Client) Identity() (domain.Identity, error) {
	return c.session.RequireIdentity()
}

func (c *Client) Rooms() []domain.Room {
	return c.directory.Rooms()
}

func (c *Client) OnRoomCreated(handler func(domain.Room)) {
	c.directory.OnRoomCreated(handler)
}

// CreateRoom needs a display name. The room is listed once its creation is observed.
func (c *Client) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	if _, err := c.session.RequireIdentity(); err != nil {
		return domain.Room{}, err
	}
	if err := validateRoomName(name); err != nil {
		return domain.Room{}, err
	}
	return c.directory.CreateRoom(ctx, name)
}

// JoinRoom opens roomID. Without identity, or when the room does not exist,
// the user is redirected home and the error is returned as well.
func (c *Client) JoinRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error) {
	identity, err := c.session.RequireIdentity()
	if err != nil {
		c.navigator.RedirectHome(err)
		return domain.Room{}, err
	}

	// Enter leaves the previous room whatever its outcome
	room, err := c.stream.Enter(ctx, roomID, identity)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrRoomSwitched):
			// The join or leave that superseded this one owns the session room
		case stderrors.Is(err, errors.ErrRoomNotFound):
			c.session.LeaveRoom()
			c.navigator.RedirectHome(err)
		default:
			c.session.LeaveRoom()
		}
		return domain.Room{}, err
	}
	c.session.EnterRoom(roomID)
	c.log.Info("Joined room", "room", roomID, "name", room.Name, "as", identity.DisplayName)
	return room, nil
}

func (c *Client) LeaveRoom() {
	c.stream.Leave()
	c.session.LeaveRoom()
}

func (c *Client) SetDraft(draft string) {
	c.composer.SetDraft(draft)
}

func (c *Client) Draft() string {
	return c.composer.Draft()
}

// Send submits the current draft to the open room.
func (c *Client) Send(ctx context.Context) error {
	identity, err := c.session.RequireIdentity()
	if err != nil {
		return err
	}
	roomID, ok := c.session.CurrentRoom()
	if !ok {
		return errors.ErrNotInRoom
	}
	if bound, ok := c.stream.Room(); !ok || bound != roomID {
		return errors.ErrNotInRoom
	}
	if err = validateBody(c.composer.Draft()); err != nil {
		return fmt.Errorf("message too long: %w", err)
	}
	return c.composer.Submit(ctx, roomID, identity.DisplayName)
}

// Say replaces the draft with body and sends it.
func (c *Client) Say(ctx context.Context, body string) error {
	c.composer.SetDraft(body)
	return c.Send(ctx)
}

func (c *Client) Messages() []domain.Message {
	return c.stream.Messages()
}

func (c *Client) CurrentRoom() (domain.RoomID, bool) {
	return c.session.CurrentRoom()
}

// EnableSound must be called from a user action.
func (c *Client) EnableSound(ctx context.Context) (bool, error) {
	return c.gate.Prime(ctx)
}

// DisableSound mutes alerts, a later EnableSound does not need a new unlock.
func (c *Client) DisableSound() {
	c.gate.Disable()
}

func (c *Client) Sound() domain.NotificationState {
	return c.gate.State()
}

// Close ends the connection: subscriptions are released and the session forgotten.
func (c *Client) Close() {
	c.stream.Leave()
	c.directory.Close()
	c.session.Reset()
}
