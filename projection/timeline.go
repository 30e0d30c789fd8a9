// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"chat-sync/domain"
	"slices"

	"github.com/google/uuid"
)

// Timeline is the local view of one room's messages.
// Once a message is in the timeline it is never moved nor removed, and no two
// entries share an ID.
type Timeline struct {
	room     domain.RoomID
	messages []domain.Message
	seen     map[uuid.UUID]struct{}
}

func NewTimeline(room domain.RoomID) *Timeline {
	return &Timeline{
		room: room,
		seen: make(map[uuid.UUID]struct{}),
	}
}

func (t *Timeline) Room() domain.RoomID { return t.room }

// Load seeds an empty timeline with a fetched history.
// The history is sorted by the message order first, entries of other rooms and
// duplicates are skipped. It returns the number of messages kept.
func (t *Timeline) Load(history []domain.Message) int {
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, domain.CompareMessages)
	added := 0
	for _, m := range sorted {
		if t.Append(m) {
			added++
		}
	}
	return added
}

// Append adds m at the tail when it belongs to the room and was not seen yet.
func (t *Timeline) Append(m domain.Message) bool {
	if m.RoomID != t.room {
		return false
	}
	if _, ok := t.seen[m.ID]; ok {
		return false
	}
	t.seen[m.ID] = struct{}{}
	t.messages = append(t.messages, m)
	return true
}

// Merge appends, in the given order, every message not already present.
// It returns the messages actually appended.
func (t *Timeline) Merge(messages []domain.Message) []domain.Message {
	var added []domain.Message
	for _, m := range messages {
		if t.Append(m) {
			added = append(added, m)
		}
	}
	return added
}

func (t *Timeline) Contains(id uuid.UUID) bool {
	_, ok := t.seen[id]
	return ok
}

func (t *Timeline) Len() int { return len(t.messages) }

// Messages returns a copy of the timeline.
func (t *Timeline) Messages() []domain.Message {
	return slices.Clone(t.messages)
}

// Last returns the most recent message.
func (t *Timeline) Last() (domain.Message, bool) {
	if len(t.messages) == 0 {
		return domain.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
