package domain

import (
	"strconv"
	"time"
)

// RoomID is assigned by the store and never reused.
type RoomID int

func (id RoomID) String() string {
	return strconv.Itoa(int(id))
}

// ParseRoomID reads a room identifier as it appears in a route or a command line.
func ParseRoomID(s string) (RoomID, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return RoomID(id), nil
}

// Room is created once and never renamed.
type Room struct {
	ID        RoomID
	Name      string
	CreatedAt time.Time
}
