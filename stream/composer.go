package stream

import (
	"chat-sync/domain"
	"context"
	"sync"
)

type Sender interface {
	Send(ctx context.Context, roomID domain.RoomID, author, body string) error
}

// Composer holds the draft of the message being written.
type Composer struct {
	mu     sync.Mutex
	sender Sender
	draft  string
}

func NewComposer(sender Sender) *Composer {
	return &Composer{sender: sender}
}

func (c *Composer) SetDraft(draft string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = draft
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Submit sends the draft. The draft is cleared once the store accepted the
// write and kept as is on failure so that it can be retried.
func (c *Composer) Submit(ctx context.Context, roomID domain.RoomID, author string) error {
	draft := c.Draft()
	if err := c.sender.Send(ctx, roomID, author, draft); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Keep what was typed while the write was in flight
	if c.draft == draft {
		c.draft = ""
	}
	return nil
}
