// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and ordered by creation time.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID // unique identifier
	RoomID    RoomID
	Author    string
	Body      string
	CreatedAt time.Time
}

// Before reports whether m sorts before other.
// CreatedAt is the ordering key, the ID breaks ties so that the order is total.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID.String() < other.ID.String()
}

// CompareMessages is the three-way form of Before, usable with slices.SortFunc.
func CompareMessages(a, b Message) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
