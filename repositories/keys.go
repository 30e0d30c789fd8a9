package repositories

import (
	"chat-sync/domain"
	"fmt"
	"strings"
)

const (
	roomPrefix      = "room:"
	messagePrefix   = "msg:"
	roomSequenceKey = "seq:room"
)

// roomKey zero pads the id so that a prefix scan returns rooms in creation order.
func roomKey(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("%s%019d", roomPrefix, id))
}

func roomMessagesPrefix(room domain.RoomID) string {
	return fmt.Sprintf("%s%d:", messagePrefix, room)
}

// messageKey is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Break ties between messages of the same nanosecond by their id.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		roomMessagesPrefix(m.RoomID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

func IsRoomKey(key string) bool { return strings.HasPrefix(key, roomPrefix) }

func IsMessageKey(key string) bool { return strings.HasPrefix(key, messagePrefix) }
