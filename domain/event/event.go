package event

import (
	"chat-sync/domain"
)

// Topic names a stream of committed inserts, one per table in the store.
type Topic string

const (
	TopicRooms    Topic = "chat_rooms"
	TopicMessages Topic = "messages"
)

type DomainEvent interface {
	Topic() Topic
	RoomID() domain.RoomID
}

// RoomCreated is observed once a room insert has been committed.
type RoomCreated struct {
	Room domain.Room
}

func (r RoomCreated) Topic() Topic { return TopicRooms }

func (r RoomCreated) RoomID() domain.RoomID { return r.Room.ID }

// MessagePosted is observed once a message insert has been committed.
type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) Topic() Topic { return TopicMessages }

func (m MessagePosted) RoomID() domain.RoomID { return m.Message.RoomID }

// Filter narrows a topic subscription to a single room.
// The zero value matches every event of the topic.
type Filter struct {
	room   domain.RoomID
	scoped bool
}

func AllRows() Filter { return Filter{} }

func ForRoom(id domain.RoomID) Filter { return Filter{room: id, scoped: true} }

func (f Filter) Match(e DomainEvent) bool {
	return !f.scoped || e.RoomID() == f.room
}

func (f Filter) String() string {
	if !f.scoped {
		return "*"
	}
	return "chat_room_id=eq." + f.room.String()
}
